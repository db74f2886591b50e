// Package cache provides a TTL-bounded key/value store used to memoize
// expensive reads. The memory backend is authoritative for the eviction and
// statistics contract; the redis backend delegates expiry to the server.
package cache

import "time"

// Store is the generic byte cache consumed by typed adapters.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string) bool
	Has(key string) bool
	Clear()
	Stats() Stats
	Stop()
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}
