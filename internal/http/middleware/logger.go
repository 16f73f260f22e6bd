package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gmalla/backend/internal/metrics"
)

// Logger writes one access line per request and feeds the HTTP metrics.
func Logger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		code := strconv.Itoa(status)
		metrics.HTTPRequests.WithLabelValues(method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(method, path, code).Observe(latency.Seconds())

		rid := c.GetString(RequestIDHeader)
		evt := l.Info()
		if status >= 500 {
			evt = l.Error()
		}
		evt.
			Str("request_id", rid).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Msg("request")
	}
}
