// Structured request logging for the health/readiness HTTP surface.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/scuffle-video/api/internal/logger"
)

// StructuredLogger logs one line per request with request ID, method, path,
// status, duration and client IP, at a level derived from the status code.
func StructuredLogger() gin.HandlerFunc {
	return StructuredLoggerWithConfig(StructuredLoggerConfig{LogQuery: true})
}

// StructuredLoggerConfig customizes StructuredLogger.
type StructuredLoggerConfig struct {
	// SkipPaths lists paths to skip logging for (e.g. load-balancer probes
	// of /health, which would otherwise dominate the log volume).
	SkipPaths []string

	// LogQuery controls whether query parameters are logged.
	LogQuery bool
}

// StructuredLoggerWithConfig builds the request-logging middleware with
// custom config.
func StructuredLoggerWithConfig(config StructuredLoggerConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		raw := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		event := logger.GetLogger().WithLevel(levelForStatus(status)).
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if config.LogQuery && raw != "" {
			event = event.Str("query", raw)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}

func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
