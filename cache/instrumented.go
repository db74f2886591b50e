package cache

import (
	"time"

	"linkhub.app/metrics"
	"linkhub.app/pkg/logger"
)

// InstrumentedStore decorates a Store with metrics and cache logging so
// backends stay free of instrumentation concerns.
type InstrumentedStore struct {
	store     Store
	cacheType string
	registry  *metrics.Registry
	log       *logger.Logger
}

func NewInstrumentedStore(store Store, cacheType string, registry *metrics.Registry, log *logger.Logger) *InstrumentedStore {
	return &InstrumentedStore{
		store:     store,
		cacheType: cacheType,
		registry:  registry,
		log:       log,
	}
}

func (c *InstrumentedStore) Get(key string) ([]byte, bool) {
	data, found := c.store.Get(key)

	stats := c.store.Stats()
	if found {
		c.registry.RecordCacheHit(c.cacheType, stats.Hits, stats.Misses)
	} else {
		c.registry.RecordCacheMiss(c.cacheType, stats.Hits, stats.Misses)
	}
	c.log.LogCache("get", key, found)

	return data, found
}

func (c *InstrumentedStore) Set(key string, value []byte, ttl time.Duration) {
	c.store.Set(key, value, ttl)
	c.registry.SetCacheSize(c.cacheType, c.store.Stats().Size)
	c.log.LogCache("set", key, false)
}

func (c *InstrumentedStore) Delete(key string) bool {
	deleted := c.store.Delete(key)
	c.registry.SetCacheSize(c.cacheType, c.store.Stats().Size)
	return deleted
}

func (c *InstrumentedStore) Has(key string) bool {
	return c.store.Has(key)
}

func (c *InstrumentedStore) Clear() {
	c.store.Clear()
	c.registry.SetCacheSize(c.cacheType, 0)
}

func (c *InstrumentedStore) Stats() Stats {
	return c.store.Stats()
}

func (c *InstrumentedStore) Stop() {
	c.store.Stop()
}
