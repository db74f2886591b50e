package logger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// correlationHeaders are checked in priority order when extracting an
// inbound correlation ID.
var correlationHeaders = []string{
	"X-Correlation-ID",
	"X-Request-ID",
	"X-Trace-ID",
}

// CorrelationIDHeader is the response header mirroring the request's ID.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationIDFromHeader returns the inbound correlation ID or generates
// a fresh one when no known header is present.
func CorrelationIDFromHeader(h http.Header) string {
	for _, name := range correlationHeaders {
		if id := h.Get(name); id != "" {
			return id
		}
	}
	return NewCorrelationID()
}

// NewCorrelationID builds a timestamped ID with a random suffix. Collision
// probability is acceptable for tracing; these are not security tokens.
func NewCorrelationID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
