// consumes detection audit events from kafka and logs them
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Mars1836/drug-recognition/config"
	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/Mars1836/drug-recognition/internal/pkg/kafka"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	brokers := strings.Split(config.GetEnv("KAFKA_BROKERS", strings.Join(cfg.Kafka.Brokers, ",")), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		logrus.Fatal("No Kafka brokers configured (kafka.brokers or KAFKA_BROKERS)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kafka.StartConsumer(ctx, brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, handleEvent)
	if err != nil {
		logrus.Fatalf("Consumer stopped: %v", err)
	}
	logrus.Info("Auditor stopped")
}

func handleEvent(_ context.Context, value []byte) error {
	var event entity.DetectionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"process_id": event.ProcessID,
		"mode":       event.Mode,
		"filename":   event.Filename,
		"file_size":  event.FileSize,
		"detections": event.Detections,
		"source":     event.Source,
		"at":         event.OccurredAt,
	}).Info("Detection recorded")
	return nil
}
