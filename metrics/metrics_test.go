package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exposition(t *testing.T, r *Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestRegistryExposesRecordedMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordHTTPRequest("GET", "/api/profiles/:handle", 200, 15*time.Millisecond)
	r.RecordDBQuery("select", "profiles", 3*time.Millisecond)
	r.RecordCacheHit("memory", 1, 0)
	r.RecordCacheMiss("memory", 1, 1)
	r.SetCacheSize("memory", 42)
	r.RecordAuthAttempt(true, 80*time.Millisecond)
	r.RecordAuthFailure("invalid_credentials")
	r.RecordAPICall("openai", 200*time.Millisecond, nil)
	r.RecordCircuitBreakerState("ai", 1)
	r.RecordCircuitBreakerResult("ai", false)
	r.RecordRateLimit("login", false)
	r.RecordError("RATE_LIMIT_ERROR")

	body := exposition(t, r)

	assert.Contains(t, body, `linkhub_http_requests_total{method="GET",path="/api/profiles/:handle",status="200"} 1`)
	assert.Contains(t, body, `linkhub_db_queries_total{operation="select",table="profiles"} 1`)
	assert.Contains(t, body, `linkhub_cache_hits_total{cache_type="memory"} 1`)
	assert.Contains(t, body, `linkhub_cache_misses_total{cache_type="memory"} 1`)
	assert.Contains(t, body, `linkhub_cache_size{cache_type="memory"} 42`)
	assert.Contains(t, body, `linkhub_cache_hit_ratio{cache_type="memory"} 0.5`)
	assert.Contains(t, body, `linkhub_auth_attempts_total{result="success"} 1`)
	assert.Contains(t, body, `linkhub_auth_failures_total{reason="invalid_credentials"} 1`)
	assert.Contains(t, body, `linkhub_external_api_calls_total{provider="openai"} 1`)
	assert.Contains(t, body, `linkhub_circuit_breaker_state{name="ai"} 1`)
	assert.Contains(t, body, `linkhub_circuit_breaker_failures_total{name="ai"} 1`)
	assert.Contains(t, body, `linkhub_rate_limit_checks_total{policy="login"} 1`)
	assert.Contains(t, body, `linkhub_rate_limit_violations_total{policy="login"} 1`)
	assert.Contains(t, body, `linkhub_errors_total{type="RATE_LIMIT_ERROR"} 1`)
}

func TestRegistryAPICallErrorCounted(t *testing.T) {
	r := NewRegistry()

	r.RecordAPICall("openai", 10*time.Millisecond, errors.New("connection refused"))

	body := exposition(t, r)
	assert.Contains(t, body, `linkhub_external_api_errors_total{kind="call",provider="openai"} 1`)
}

func TestRegistryRateLimitAllowedNotCountedAsViolation(t *testing.T) {
	r := NewRegistry()

	r.RecordRateLimit("api", true)

	body := exposition(t, r)
	assert.Contains(t, body, `linkhub_rate_limit_checks_total{policy="api"} 1`)
	assert.NotContains(t, body, "linkhub_rate_limit_violations_total")
}

func TestRegistryHitRatioSkipsZeroTotal(t *testing.T) {
	r := NewRegistry()

	r.RecordCacheHit("memory", 0, 0)

	body := exposition(t, r)
	assert.NotContains(t, body, "linkhub_cache_hit_ratio")
}

func TestRegistryInstancesAreIsolated(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.RecordError("INTERNAL_ERROR")

	assert.Contains(t, exposition(t, a), "linkhub_errors_total")
	assert.NotContains(t, exposition(t, b), "linkhub_errors_total")
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()

	r.RecordError("INTERNAL_ERROR")
	require.Contains(t, exposition(t, r), "linkhub_errors_total")

	r.Reset()
	assert.NotContains(t, exposition(t, r), "linkhub_errors_total")
}
