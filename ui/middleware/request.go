package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wastedash/internal"
)

// RequestIDHeader carries the per-request identifier in both directions
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID assigns every request an id, reusing a valid incoming one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or ""
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs one line per request at debug level, and failures at warn
func AccessLog(logger *internal.Logger) gin.HandlerFunc {
	logger = logger.WithComponent("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		if status >= 500 {
			logger.Warn("%s %s -> %d in %s (request %s)", c.Request.Method, c.Request.URL.Path, status, elapsed, GetRequestID(c))
			return
		}
		logger.Debug("%s %s -> %d in %s (request %s)", c.Request.Method, c.Request.URL.Path, status, elapsed, GetRequestID(c))
	}
}
