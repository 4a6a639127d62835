package transport

import (
	"net/http"

	"github.com/Mars1836/drug-recognition/internal/metrics"
	"github.com/Mars1836/drug-recognition/internal/transport/middleware"
	"github.com/Mars1836/drug-recognition/internal/web"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	// APIURL is injected into the browser form; empty means same origin.
	APIURL    string
	RateLimit float64
	RateBurst int
}

func InitRoutes(detectionHandler *DetectionHandler, m *metrics.Metrics, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))

	router.SetHTMLTemplate(web.Templates())
	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{"APIURL": opts.APIURL})
	})

	limited := router.Group("/api", middleware.RateLimit(opts.RateLimit, opts.RateBurst))
	{
		limited.POST("/detect-drug", detectionHandler.DetectDrugUpload)

		v1 := limited.Group("/v1")
		{
			v1.POST("/detect-drug", detectionHandler.DetectDrug)
			v1.GET("/detect-drug/:process_id", detectionHandler.GetResult)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "drug-detection-service",
		})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	return router
}
