package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

const (
	RequestIDHeader  = "X-Request-ID"
	ContextRequestID = "requestId"
)

// LoggingMiddleware tags each request with an id (echoed in X-Request-ID)
// and logs it once it completes. Generation requests can run for minutes, so
// the latency field is the one to watch.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("subject", c.GetString(ContextSubject)).
			Int("errors", len(c.Errors)).
			Msg("request")
	}
}
