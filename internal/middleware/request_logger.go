package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/metrics"
)

// RequestLogger logs each request with its latency and records metrics
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		metrics.ObserveHTTP(c.Request.Method, path, strconv.Itoa(status), elapsed.Seconds())

		entry := logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  status,
			"latency": elapsed.String(),
			"ip":      c.ClientIP(),
		})

		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}
