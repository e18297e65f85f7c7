package middleware

import (
	"time"

	"biostats-go/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoggerMiddleware 日志中间件，collector 非空时同时记录请求指标
func LoggerMiddleware(logger *logrus.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if collector != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			collector.RecordHTTPRequest(c.Request.Method, route, status, latency)
		}

		entry := logger.WithFields(logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"latency":    latency,
			"length":     c.Writer.Size(),
		})

		if sessionID := GetSessionID(c); sessionID != "" {
			entry = entry.WithField("session_id", sessionID)
		}
		if userID, exists := GetUserID(c); exists {
			entry = entry.WithField("user_id", userID)
		}

		if status >= 500 {
			entry.Error("HTTP Request")
		} else if status >= 400 {
			entry.Warn("HTTP Request")
		} else {
			entry.Info("HTTP Request")
		}
	}
}
