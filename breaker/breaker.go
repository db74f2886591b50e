// Package breaker implements a three-state circuit breaker that isolates
// calls to an unreliable external dependency.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker's position in its CLOSED/OPEN/HALF_OPEN machine.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrOpen is returned when a call is rejected without invoking the
// operation.
var ErrOpen = errors.New("circuit breaker is open")

// ErrTimeout is returned when the operation lost the timeout race. It
// counts as a failure toward opening the circuit.
var ErrTimeout = errors.New("operation timed out")

// Config controls one breaker instance.
type Config struct {
	Name             string
	FailureThreshold int
	ResetTimeout     time.Duration
	SuccessThreshold int
	RequestTimeout   time.Duration
	Clock            func() time.Time

	// OnStateChange is invoked outside the mutex after every transition.
	OnStateChange func(name string, from, to State)
}

// Stats is a point-in-time snapshot of breaker state and counters.
type Stats struct {
	State           State
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
	LastSuccessTime time.Time
	NextAttemptTime time.Time
	TotalRequests   uint64
	TotalFailures   uint64
	TotalSuccesses  uint64
}

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
	defaultSuccessThreshold = 2
	defaultRequestTimeout   = 10 * time.Second
)

// Breaker wraps calls with failure counting and a per-call timeout race.
// The generation counter invalidates results that arrive after a state
// transition, so a slow probe can never retroactively corrupt state.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	resetTimeout     time.Duration
	successThreshold int
	requestTimeout   time.Duration
	clock            func() time.Time
	onStateChange    func(name string, from, to State)

	state           State
	generation      uint64
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time
	nextAttemptTime time.Time
	totalRequests   uint64
	totalFailures   uint64
	totalSuccesses  uint64
}

// New creates a breaker in the CLOSED state.
func New(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaultFailureThreshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = defaultResetTimeout
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaultSuccessThreshold
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Breaker{
		name:             config.Name,
		failureThreshold: config.FailureThreshold,
		resetTimeout:     config.ResetTimeout,
		successThreshold: config.SuccessThreshold,
		requestTimeout:   config.RequestTimeout,
		clock:            config.Clock,
		onStateChange:    config.OnStateChange,
		state:            StateClosed,
	}
}

// Name returns the configured breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// Execute runs op unless the circuit is open. The operation races a timer;
// whichever settles first is authoritative and a late result is discarded.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	generation, err := b.beforeCall()
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	// Buffered so the goroutine can settle after a timeout without leaking.
	done := make(chan error, 1)
	go func() {
		done <- op(callCtx)
	}()

	select {
	case opErr := <-done:
		if opErr != nil {
			b.afterCall(generation, false)
			return opErr
		}
		b.afterCall(generation, true)
		return nil
	case <-callCtx.Done():
		b.afterCall(generation, false)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return callCtx.Err()
	}
}

// beforeCall admits or rejects the call, transitioning OPEN to HALF_OPEN
// when the reset timeout has elapsed.
func (b *Breaker) beforeCall() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	if b.state == StateOpen {
		if b.clock().Before(b.nextAttemptTime) {
			return 0, ErrOpen
		}
		b.transition(StateHalfOpen)
	}

	return b.generation, nil
}

// afterCall applies the outcome unless the breaker transitioned while the
// operation was in flight.
func (b *Breaker) afterCall(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return
	}

	if success {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

// onSuccess and onFailure run while holding the mutex.
func (b *Breaker) onSuccess() {
	b.totalSuccesses++
	b.lastSuccessTime = b.clock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) onFailure() {
	b.totalFailures++
	b.lastFailureTime = b.clock()

	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// A single failure during the trial reopens the circuit.
		b.transition(StateOpen)
	}
}

// transition moves to a new state while holding the mutex. Each transition
// bumps the generation so in-flight results from the old state are dropped.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}

	b.state = to
	b.generation++

	switch to {
	case StateOpen:
		b.nextAttemptTime = b.clock().Add(b.resetTimeout)
		b.successCount = 0
	case StateClosed:
		b.failureCount = 0
		b.successCount = 0
	case StateHalfOpen:
		b.successCount = 0
	}

	if b.onStateChange != nil {
		go b.onStateChange(b.name, from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a consistent snapshot.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
		LastSuccessTime: b.lastSuccessTime,
		NextAttemptTime: b.nextAttemptTime,
		TotalRequests:   b.totalRequests,
		TotalFailures:   b.totalFailures,
		TotalSuccesses:  b.totalSuccesses,
	}
}

// Reset forces the breaker CLOSED with zeroed counters. Administrative
// override; never triggered by traffic.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failureCount = 0
	b.successCount = 0
}

// Open forces the breaker OPEN immediately. Administrative override.
func (b *Breaker) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateOpen)
}
