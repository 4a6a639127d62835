// launching the server, result storage, kafka
package appServer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mars1836/drug-recognition/config"
	"github.com/Mars1836/drug-recognition/internal/database"
	"github.com/Mars1836/drug-recognition/internal/metrics"
	"github.com/Mars1836/drug-recognition/internal/pkg/detector"
	"github.com/Mars1836/drug-recognition/internal/pkg/kafka"
	"github.com/Mars1836/drug-recognition/internal/pkg/redis"
	"github.com/Mars1836/drug-recognition/internal/pkg/storage"
	"github.com/Mars1836/drug-recognition/internal/service"
	"github.com/Mars1836/drug-recognition/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags), // os.Stderr can be replaced with ElsasticSearch in the feature
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Closer releases a dependency on shutdown.
type Closer func() error

// NewHandler wires repositories, the producer and the detector into a router.
// The returned closers must be called once the server has stopped.
func NewHandler(ctx context.Context, cfg *config.Config) (http.Handler, []Closer, error) {
	repo, closers, err := newResultRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	closers = append(closers, producer.Close)

	detectionService := service.NewDetectionService(
		detector.NewStubDetector(),
		repo,
		producer,
		cfg.Detection.MaxUploadBytes,
	)

	m := metrics.New("drug-detection-service")
	detectionHandler := transport.NewDetectionHandler(detectionService, m, cfg.Detection.MaxUploadBytes)

	router := transport.InitRoutes(detectionHandler, m, transport.RouterOptions{
		APIURL:    cfg.Web.APIURL,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	return router, closers, nil
}

func newResultRepository(ctx context.Context, cfg *config.Config) (database.ResultRepository, []Closer, error) {
	switch cfg.Storage.Driver {
	case "redis":
		client, err := redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return database.NewRedisResultRepository(client, cfg.Storage.ResultTTL), []Closer{client.Close}, nil
	default:
		logrus.WithField("path", cfg.Storage.Path).Info("Using file result storage")
		return database.NewFileResultRepository(storage.NewFileStorage(cfg.Storage.Path), cfg.Storage.ResultTTL), nil, nil
	}
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, closers, err := NewHandler(context.Background(), cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, handler); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":    cfg.Server.Port,
		"version": cfg.Server.AppVersion,
	}).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("App Shutting Down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logrus.WithError(err).Warn("Failed to release resource")
		}
	}
}
