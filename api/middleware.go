package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
	"linkhub.app/ratelimit"
)

const loggerContextKey = "requestLogger"

// correlationMiddleware extracts or generates the correlation ID, mirrors
// it on the response, and stores a request-scoped child logger.
func (s *Server) correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := logger.CorrelationIDFromHeader(c.Request.Header)
		c.Header(logger.CorrelationIDHeader, correlationID)
		c.Set(loggerContextKey, s.log.WithCorrelationID(correlationID))
		c.Next()
	}
}

// requestLogger returns the request-scoped logger, falling back to the
// server logger when middleware did not run (direct handler tests).
func (s *Server) requestLogger(c *gin.Context) *logger.Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return s.log
}

// inflightMiddleware tracks requests so shutdown can wait for them.
func (s *Server) inflightMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.inflight.Add()
		defer s.inflight.Done()
		c.Next()
	}
}

// metricsMiddleware records request count and latency per route.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.registry.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// recoveryMiddleware converts handler panics into logged 500 responses.
// The request path must never take the whole process down.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.requestLogger(c).LogSecurity("handler_panic", "critical", map[string]interface{}{
					"path":  c.Request.URL.Path,
					"panic": r,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					models.ErrorResponse{Error: "Internal server error"})
			}
		}()
		c.Next()
	}
}

// rateLimitMiddleware enforces one policy keyed by client IP. Limit headers
// are set on every response, allowed or denied.
func (s *Server) rateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Check(c.ClientIP())
		s.registry.RecordRateLimit(limiter.Policy(), result.Allowed)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			retryAfter := time.Until(result.ResetTime)
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
			s.requestLogger(c).LogSecurity("rate_limit_exceeded", "low", map[string]interface{}{
				"policy": limiter.Policy(),
				"ip":     c.ClientIP(),
			})
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				models.ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
