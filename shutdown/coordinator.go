// Package shutdown coordinates ordered, timeout-bounded cleanup when the
// process receives a termination signal or hits an unrecoverable error.
package shutdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkhub.app/pkg/logger"
)

// Handler is one named cleanup step. Timeout zero uses the coordinator
// default. Handlers run at most once, in registration order.
type Handler struct {
	Name    string
	Timeout time.Duration
	Func    func(ctx context.Context) error
}

// Config controls coordinator-wide timing.
type Config struct {
	DefaultHandlerTimeout time.Duration
	DrainTimeout          time.Duration
}

const (
	defaultHandlerTimeout = 10 * time.Second
	defaultDrainTimeout   = 15 * time.Second
)

// Coordinator runs registered handlers sequentially on the first trigger.
// A handler error or timeout is recorded and never aborts later handlers.
type Coordinator struct {
	mu        sync.Mutex
	handlers  []Handler
	triggered bool

	defaultTimeout time.Duration
	drainTimeout   time.Duration
	inflight       *InflightTracker
	log            *logger.Logger
}

// NewCoordinator builds a coordinator logging through log.
func NewCoordinator(config Config, inflight *InflightTracker, log *logger.Logger) *Coordinator {
	if config.DefaultHandlerTimeout <= 0 {
		config.DefaultHandlerTimeout = defaultHandlerTimeout
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaultDrainTimeout
	}
	return &Coordinator{
		defaultTimeout: config.DefaultHandlerTimeout,
		drainTimeout:   config.DrainTimeout,
		inflight:       inflight,
		log:            log,
	}
}

// Inflight exposes the request tracker for middleware wiring.
func (c *Coordinator) Inflight() *InflightTracker {
	return c.inflight
}

// Register appends a handler. Names must be unique.
func (c *Coordinator) Register(h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.handlers {
		if existing.Name == h.Name {
			return fmt.Errorf("shutdown handler %q already registered", h.Name)
		}
	}
	c.handlers = append(c.handlers, h)
	return nil
}

// Unregister removes a handler by name.
func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, h := range c.handlers {
		if h.Name == name {
			c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
			return
		}
	}
}

// Trigger runs the shutdown sequence once and returns the process exit
// code. Repeat triggers are logged and ignored.
func (c *Coordinator) Trigger(reason string) int {
	c.mu.Lock()
	if c.triggered {
		c.mu.Unlock()
		c.log.Warn("shutdown already in progress, ignoring trigger", map[string]interface{}{
			"reason": reason,
		})
		return 0
	}
	c.triggered = true
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	c.log.Info("shutdown triggered", map[string]interface{}{"reason": reason})

	c.drainRequests()

	for _, h := range handlers {
		c.runHandler(h)
	}

	exitCode := 0
	if err := c.log.Flush(); err != nil {
		exitCode = 1
	}
	return exitCode
}

// drainRequests waits for in-flight requests to finish, bounded by the
// drain timeout.
func (c *Coordinator) drainRequests() {
	if c.inflight == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()

	if c.inflight.Wait(ctx) {
		c.log.Info("in-flight requests drained", nil)
		return
	}
	c.log.Warn("drain timeout elapsed with requests still in flight", map[string]interface{}{
		"remaining": c.inflight.Count(),
	})
}

func (c *Coordinator) runHandler(h Handler) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panicked: %v", r)
			}
		}()
		done <- h.Func(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			c.log.Error("shutdown handler failed", map[string]interface{}{
				"handler": h.Name,
				"error":   err.Error(),
			})
			return
		}
		c.log.Info("shutdown handler completed", map[string]interface{}{
			"handler":    h.Name,
			"durationMs": time.Since(start).Milliseconds(),
		})
	case <-ctx.Done():
		c.log.Error("shutdown handler timed out", map[string]interface{}{
			"handler": h.Name,
			"timeout": timeout.String(),
		})
	}
}
