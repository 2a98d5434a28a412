package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/internal/utils"
)

// RequestLogger logs every request with its status and latency.
// Health checks and the live event stream are logged at Debug.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         utils.GetRealIP(c),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": utils.GetUserAgent(c),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if admin, ok := GetAdminContext(c); ok {
			fields["admin"] = admin.Subject
		}

		entry := logger.WithFields(fields)
		for i, err := range c.Errors {
			entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
		}

		switch {
		case len(c.Errors) > 0:
			entry.Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		case path == "/health" || c.Writer.Header().Get("Content-Type") == "text/event-stream":
			entry.Debug("Request completed successfully")
		default:
			entry.Info("Request completed successfully")
		}
	}
}
