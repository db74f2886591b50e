package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
	seq       uint64
}

// MemoryConfig controls the in-memory backend. Zero values fall back to
// the defaults below.
type MemoryConfig struct {
	MaxSize       int
	DefaultTTL    time.Duration
	SweepInterval time.Duration

	// Clock is overridable so tests can drive expiry without sleeping.
	Clock func() time.Time
}

const (
	defaultMaxSize       = 1000
	defaultTTL           = 5 * time.Minute
	defaultSweepInterval = time.Minute
)

// MemoryCache is a TTL cache with a bounded size. When a new key would
// exceed MaxSize, the entry with the earliest expiry is evicted. With
// homogeneous TTLs that approximates least-recently-written order; it is a
// deliberate simplification, not true access-recency LRU.
//
// One mutex guards the map, the counters, and the sweep so readers never
// observe a half-applied eviction.
type MemoryCache struct {
	mu     sync.Mutex
	data   map[string]memoryEntry
	hits   uint64
	misses uint64
	seq    uint64

	maxSize       int
	defaultTTL    time.Duration
	sweepInterval time.Duration
	clock         func() time.Time

	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
}

// NewMemoryCache creates the cache and starts its background sweep.
func NewMemoryCache(config MemoryConfig) *MemoryCache {
	if config.MaxSize <= 0 {
		config.MaxSize = defaultMaxSize
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = defaultTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaultSweepInterval
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	c := &MemoryCache{
		data:          make(map[string]memoryEntry),
		maxSize:       config.MaxSize,
		defaultTTL:    config.DefaultTTL,
		sweepInterval: config.SweepInterval,
		clock:         config.Clock,
		ticker:        time.NewTicker(config.SweepInterval),
		stopCh:        make(chan struct{}),
	}

	go c.sweepLoop()
	return c
}

// Get returns the value for key. An expired entry counts as a miss and is
// removed as a side effect.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if !c.clock().Before(entry.expiresAt) {
		delete(c.data, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.data, true
}

// Set stores value under key. A non-positive ttl uses the default. Inserting
// a new key at capacity evicts exactly one entry first; overwriting an
// existing key never evicts.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	if value == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictEarliest()
	}

	c.seq++
	c.data[key] = memoryEntry{
		data:      value,
		expiresAt: c.clock().Add(ttl),
		seq:       c.seq,
	}
}

// evictEarliest removes the entry with the smallest expiresAt, breaking
// ties by insertion order. Must be called while holding the mutex.
func (c *MemoryCache) evictEarliest() {
	var victim string
	var found bool
	var earliest time.Time
	var earliestSeq uint64

	for key, entry := range c.data {
		if !found || entry.expiresAt.Before(earliest) ||
			(entry.expiresAt.Equal(earliest) && entry.seq < earliestSeq) {
			victim = key
			earliest = entry.expiresAt
			earliestSeq = entry.seq
			found = true
		}
	}

	if found {
		delete(c.data, victim)
	}
}

// Delete removes key, reporting whether an entry existed.
func (c *MemoryCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.data[key]
	delete(c.data, key)
	return exists
}

// Has reports whether key is present and unexpired without touching the
// hit/miss counters.
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	return exists && c.clock().Before(entry.expiresAt)
}

// Clear drops every entry. Counters are kept; they are cumulative.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]memoryEntry)
}

// Stats returns a consistent snapshot of counters and current size.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Size:   len(c.data),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Stop cancels the background sweep. Safe to call more than once.
func (c *MemoryCache) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}

func (c *MemoryCache) sweepLoop() {
	for {
		select {
		case <-c.ticker.C:
			c.removeExpiredEntries()
		case <-c.stopCh:
			c.ticker.Stop()
			return
		}
	}
}

func (c *MemoryCache) removeExpiredEntries() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	for key, entry := range c.data {
		if !now.Before(entry.expiresAt) {
			delete(c.data, key)
		}
	}
}
