// Package metrics exposes the process-wide Prometheus registry. Components
// record events through narrow functions instead of touching raw collectors.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every collector. Tests build isolated instances instead of
// sharing a process global.
type Registry struct {
	mu       sync.Mutex
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	dbQueries       *prometheus.CounterVec
	dbDuration      *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cacheSize       *prometheus.GaugeVec
	cacheHitRatio   *prometheus.GaugeVec
	authAttempts    *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	authDuration    prometheus.Histogram
	apiCalls        *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	apiErrors       *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	breakerFailures *prometheus.CounterVec
	breakerSuccess  *prometheus.CounterVec
	rateLimitChecks *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// NewRegistry creates a registry with all collectors registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.build()
	return r
}

func (r *Registry) build() {
	r.registry = prometheus.NewRegistry()
	factory := promauto.With(r.registry)

	r.httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	r.dbQueries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_db_queries_total",
			Help: "The total number of database queries",
		},
		[]string{"operation", "table"},
	)
	r.dbDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkhub_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)
	r.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_cache_hits_total",
			Help: "The total number of cache hits",
		},
		[]string{"cache_type"},
	)
	r.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_cache_misses_total",
			Help: "The total number of cache misses",
		},
		[]string{"cache_type"},
	)
	r.cacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linkhub_cache_size",
			Help: "Current number of entries in the cache",
		},
		[]string{"cache_type"},
	)
	r.cacheHitRatio = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linkhub_cache_hit_ratio",
			Help: "Cache hit ratio (hits/total requests)",
		},
		[]string{"cache_type"},
	)
	r.authAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_auth_attempts_total",
			Help: "The total number of authentication attempts",
		},
		[]string{"result"},
	)
	r.authFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_auth_failures_total",
			Help: "The total number of authentication failures",
		},
		[]string{"reason"},
	)
	r.authDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkhub_auth_duration_seconds",
			Help:    "Authentication attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.apiCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_external_api_calls_total",
			Help: "The total number of external API calls",
		},
		[]string{"provider"},
	)
	r.apiDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkhub_external_api_duration_seconds",
			Help:    "External API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	r.apiErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_external_api_errors_total",
			Help: "The total number of external API errors",
		},
		[]string{"provider", "kind"},
	)
	r.breakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linkhub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)
	r.breakerFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_circuit_breaker_failures_total",
			Help: "The total number of failures seen by the circuit breaker",
		},
		[]string{"name"},
	)
	r.breakerSuccess = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_circuit_breaker_successes_total",
			Help: "The total number of successes seen by the circuit breaker",
		},
		[]string{"name"},
	)
	r.rateLimitChecks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_rate_limit_checks_total",
			Help: "The total number of rate limit checks",
		},
		[]string{"policy"},
	)
	r.rateLimitDenied = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_rate_limit_violations_total",
			Help: "The total number of rate limit violations",
		},
		[]string{"policy"},
	)
	r.errorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkhub_errors_total",
			Help: "The total number of application errors by type",
		},
		[]string{"type"},
	)
}

// RecordHTTPRequest records one handled request.
func (r *Registry) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery records one persistence-layer operation.
func (r *Registry) RecordDBQuery(operation, table string, duration time.Duration) {
	r.dbQueries.WithLabelValues(operation, table).Inc()
	r.dbDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordCacheHit records a hit and refreshes the hit ratio gauge.
func (r *Registry) RecordCacheHit(cacheType string, hits, misses uint64) {
	r.cacheHits.WithLabelValues(cacheType).Inc()
	r.updateHitRatio(cacheType, hits, misses)
}

// RecordCacheMiss records a miss and refreshes the hit ratio gauge.
func (r *Registry) RecordCacheMiss(cacheType string, hits, misses uint64) {
	r.cacheMisses.WithLabelValues(cacheType).Inc()
	r.updateHitRatio(cacheType, hits, misses)
}

// SetCacheSize updates the entry-count gauge.
func (r *Registry) SetCacheSize(cacheType string, size int) {
	r.cacheSize.WithLabelValues(cacheType).Set(float64(size))
}

func (r *Registry) updateHitRatio(cacheType string, hits, misses uint64) {
	total := hits + misses
	if total == 0 {
		return
	}
	r.cacheHitRatio.WithLabelValues(cacheType).Set(float64(hits) / float64(total))
}

// RecordAuthAttempt records an authentication attempt and its latency.
func (r *Registry) RecordAuthAttempt(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.authAttempts.WithLabelValues(result).Inc()
	r.authDuration.Observe(duration.Seconds())
}

// RecordAuthFailure records the reason a login was refused.
func (r *Registry) RecordAuthFailure(reason string) {
	r.authFailures.WithLabelValues(reason).Inc()
}

// RecordAPICall records an outbound external dependency call.
func (r *Registry) RecordAPICall(provider string, duration time.Duration, err error) {
	r.apiCalls.WithLabelValues(provider).Inc()
	r.apiDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if err != nil {
		r.apiErrors.WithLabelValues(provider, "call").Inc()
	}
}

// RecordCircuitBreakerState updates the state gauge for one breaker.
func (r *Registry) RecordCircuitBreakerState(name string, state int) {
	r.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerResult counts a single execution outcome.
func (r *Registry) RecordCircuitBreakerResult(name string, success bool) {
	if success {
		r.breakerSuccess.WithLabelValues(name).Inc()
		return
	}
	r.breakerFailures.WithLabelValues(name).Inc()
}

// RecordRateLimit counts a check and, when denied, a violation.
func (r *Registry) RecordRateLimit(policy string, allowed bool) {
	r.rateLimitChecks.WithLabelValues(policy).Inc()
	if !allowed {
		r.rateLimitDenied.WithLabelValues(policy).Inc()
	}
}

// RecordError counts an application error by taxonomy type.
func (r *Registry) RecordError(errorType string) {
	r.errorsTotal.WithLabelValues(errorType).Inc()
}

// Handler returns the text exposition endpoint for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Reset rebuilds every collector, used for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.build()
}
