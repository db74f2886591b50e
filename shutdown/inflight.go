package shutdown

import (
	"context"
	"sync"
)

// InflightTracker counts requests currently being handled so shutdown can
// wait for them to drain instead of sleeping a fixed duration.
type InflightTracker struct {
	mu     sync.Mutex
	count  int
	zeroCh chan struct{}
}

func NewInflightTracker() *InflightTracker {
	ch := make(chan struct{})
	close(ch)
	return &InflightTracker{zeroCh: ch}
}

// Add marks one request as started.
func (t *InflightTracker) Add() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		t.zeroCh = make(chan struct{})
	}
	t.count++
}

// Done marks one request as finished.
func (t *InflightTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return
	}
	t.count--
	if t.count == 0 {
		close(t.zeroCh)
	}
}

// Count returns the number of requests in flight.
func (t *InflightTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Wait blocks until the counter reaches zero or ctx expires, reporting
// whether the drain completed.
func (t *InflightTracker) Wait(ctx context.Context) bool {
	for {
		t.mu.Lock()
		if t.count == 0 {
			t.mu.Unlock()
			return true
		}
		ch := t.zeroCh
		t.mu.Unlock()

		select {
		case <-ch:
			// Loop to re-check; a new request may have started.
		case <-ctx.Done():
			return false
		}
	}
}
