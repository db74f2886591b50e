// Package scheduler implements background maintenance for the runtime
package scheduler

import (
	"sync"
	"time"

	"linkhub.app/breaker"
	"linkhub.app/cache"
	"linkhub.app/metrics"
	"linkhub.app/pkg/logger"
)

// breaker state gauge values
const (
	gaugeClosed   = 0
	gaugeOpen     = 1
	gaugeHalfOpen = 2
)

// Scheduler periodically refreshes gauges that have no natural update
// point, such as cache size and circuit breaker state, and logs a runtime
// stats line for operators.
type Scheduler struct {
	store    cache.Store
	circuit  *breaker.Breaker
	registry *metrics.Registry
	log      *logger.Logger
	interval time.Duration

	stopCh chan struct{}
	once   sync.Once
}

// NewScheduler creates and configures the maintenance scheduler
func NewScheduler(store cache.Store, circuit *breaker.Breaker, registry *metrics.Registry, log *logger.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		store:    store,
		circuit:  circuit,
		registry: registry,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler's operations. Blocks until Stop is called.
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refresh()
	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.stopCh:
			return
		}
	}
}

// Stop cancels the maintenance loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}

func (s *Scheduler) refresh() {
	stats := s.store.Stats()
	s.registry.SetCacheSize("profile", stats.Size)

	state := s.circuit.State()
	gauge := gaugeClosed
	switch state {
	case breaker.StateOpen:
		gauge = gaugeOpen
	case breaker.StateHalfOpen:
		gauge = gaugeHalfOpen
	}
	s.registry.RecordCircuitBreakerState(s.circuit.Name(), gauge)

	s.log.Debug("runtime stats", map[string]interface{}{
		"cacheSize":    stats.Size,
		"cacheHitRate": stats.HitRate,
		"breakerState": state.String(),
	})
}
