package api

import (
	"bytes"
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"linkhub.app/breaker"
)

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// health aggregates component checks. Database failure makes the whole
// service unhealthy; cache or upstream trouble only degrades it.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := map[string]componentHealth{
		"database":        s.checkDatabase(ctx),
		"cache":           s.checkCache(),
		"ai_provider":     s.checkBreaker(),
		"circuit_breaker": {Status: s.breaker.State().String()},
	}

	overall := statusHealthy
	if components["cache"].Status != statusHealthy || components["ai_provider"].Status != statusHealthy {
		overall = statusDegraded
	}
	if components["database"].Status != statusHealthy {
		overall = statusUnhealthy
	}

	statusCode := http.StatusOK
	if overall == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":     overall,
		"components": components,
	})
}

// healthReady reports whether the service can serve traffic.
func (s *Server) healthReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]componentHealth{
		"database": s.checkDatabase(ctx),
		"cache":    s.checkCache(),
	}

	status := "ready"
	statusCode := http.StatusOK
	for _, check := range checks {
		if check.Status == statusUnhealthy {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(statusCode, gin.H{"status": status, "checks": checks})
}

// healthLive reports process liveness with uptime and memory usage.
func (s *Server) healthLive(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"uptime": time.Since(s.startTime).String(),
		"memory": gin.H{
			"alloc_bytes":       mem.Alloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
			"goroutines":        runtime.NumGoroutine(),
			"heap_object_count": mem.HeapObjects,
		},
	})
}

// metricsEndpoint serves the text exposition snapshot, or 403 when metrics
// are disabled by configuration.
func (s *Server) metricsEndpoint(c *gin.Context) {
	if !s.config.Metrics.Enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "metrics are disabled"})
		return
	}
	s.registry.Handler().ServeHTTP(c.Writer, c.Request)
}

func (s *Server) checkDatabase(ctx context.Context) componentHealth {
	sqlDB, err := s.db.DB()
	if err != nil {
		return componentHealth{Status: statusUnhealthy, Error: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return componentHealth{Status: statusUnhealthy, Error: err.Error()}
	}
	return componentHealth{Status: statusHealthy}
}

// checkCache performs a set/get/delete round trip on a probe key.
func (s *Server) checkCache() componentHealth {
	const probeKey = "health:probe"
	probeValue := []byte("ok")

	s.cache.Set(probeKey, probeValue, time.Minute)
	value, found := s.cache.Get(probeKey)
	s.cache.Delete(probeKey)

	if !found || !bytes.Equal(value, probeValue) {
		return componentHealth{Status: statusUnhealthy, Error: "cache round trip failed"}
	}
	return componentHealth{Status: statusHealthy}
}

// checkBreaker infers upstream reachability from breaker state rather than
// making a live call against a possibly failing dependency.
func (s *Server) checkBreaker() componentHealth {
	switch s.breaker.State() {
	case breaker.StateOpen:
		return componentHealth{Status: statusUnhealthy, Error: "circuit breaker is open"}
	case breaker.StateHalfOpen:
		return componentHealth{Status: statusDegraded}
	default:
		return componentHealth{Status: statusHealthy}
	}
}
