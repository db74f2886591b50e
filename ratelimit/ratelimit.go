// Package ratelimit implements fixed-window admission control keyed by an
// identifier, typically a client IP.
//
// A burst that straddles a window boundary can admit up to twice the limit
// in a short interval. That is an accepted property of the fixed-window
// design; the limiter deters abuse rather than enforcing exact quotas.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of one admission check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

type entry struct {
	count     int
	resetTime time.Time
}

// Config controls one limiter instance. Distinct policies (login, signup,
// click, api) must use distinct instances so identifiers never collide.
type Config struct {
	Policy        string
	MaxRequests   int
	Window        time.Duration
	SweepInterval time.Duration
	Clock         func() time.Time
}

const defaultLimiterSweep = time.Minute

// Limiter holds one counter and reset time per identifier. An entry whose
// reset time has passed is logically absent even before the sweep runs.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]entry

	policy string
	max    int
	window time.Duration
	clock  func() time.Time

	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
}

// New creates a limiter and starts its background sweep.
func New(config Config) *Limiter {
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaultLimiterSweep
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	l := &Limiter{
		entries: make(map[string]entry),
		policy:  config.Policy,
		max:     config.MaxRequests,
		window:  config.Window,
		clock:   config.Clock,
		ticker:  time.NewTicker(config.SweepInterval),
		stopCh:  make(chan struct{}),
	}

	go l.sweepLoop()
	return l
}

// Policy returns the name this instance was configured with.
func (l *Limiter) Policy() string {
	return l.policy
}

// Limit returns the configured maximum per window.
func (l *Limiter) Limit() int {
	return l.max
}

// Check admits or rejects one request for identifier. The first request in
// a window (or after the previous window elapsed) always succeeds.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()

	e, exists := l.entries[identifier]
	if !exists || !now.Before(e.resetTime) {
		reset := now.Add(l.window)
		l.entries[identifier] = entry{count: 1, resetTime: reset}
		return Result{
			Allowed:   true,
			Remaining: l.max - 1,
			ResetTime: reset,
		}
	}

	e.count++
	l.entries[identifier] = e

	remaining := l.max - e.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   e.count <= l.max,
		Remaining: remaining,
		ResetTime: e.resetTime,
	}
}

// Reset clears one identifier, forgiving its prior attempts. Used after a
// successful authentication.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, identifier)
}

// Size returns the number of tracked identifiers, including entries whose
// window has elapsed but which the sweep has not yet removed.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Stop cancels the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() {
		close(l.stopCh)
	})
}

func (l *Limiter) sweepLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.removeElapsedEntries()
		case <-l.stopCh:
			l.ticker.Stop()
			return
		}
	}
}

func (l *Limiter) removeElapsedEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for identifier, e := range l.entries {
		if !now.Before(e.resetTime) {
			delete(l.entries, identifier)
		}
	}
}
