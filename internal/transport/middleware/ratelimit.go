package middleware

import (
	"net/http"

	"github.com/Mars1836/drug-recognition/internal/entity"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit applies one shared token bucket. A non-positive rps disables it.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, entity.ErrorResponse{Error: "Too many requests"})
			return
		}
		c.Next()
	}
}
