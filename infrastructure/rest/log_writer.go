package rest

import (
	"chat-relay/auth"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// logWriter redirects what gin writes on its own (panic traces caught by
// the recovery middleware) to the structured logger.
type logWriter struct {
	logger *slog.Logger
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.logger.Error(strings.TrimRight(string(p), "\n"), "source", "gin")
	return len(p), nil
}

// requestLogger logs one line per request; server errors at Error, client errors at Warn.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if userID := auth.UserID(c); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", attrs...)
		case status >= 400:
			logger.Warn("HTTP request", attrs...)
		default:
			logger.Debug("HTTP request", attrs...)
		}
	}
}
