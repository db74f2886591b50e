// Package logger wraps slog with request correlation, sensitive-field
// redaction, and an explicit flush used during graceful shutdown.
package logger

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Logger carries an immutable context bag. Deriving a child never mutates
// the parent; all children share one flushable output writer.
type Logger struct {
	slogger *slog.Logger
	out     *flushWriter
}

// flushWriter serializes writes from concurrent requests and lets the
// shutdown path drain buffered entries.
type flushWriter struct {
	mu sync.Mutex
	bw *bufio.Writer
}

func (w *flushWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Write(p)
}

func (w *flushWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Flush()
}

// New creates a JSON logger writing to stdout at the given level.
func New(level slog.Level) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a logger writing to w, used by tests to capture output.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	out := &flushWriter{bw: bufio.NewWriter(w)}
	return &Logger{
		slogger: slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})),
		out:     out,
	}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Child returns a logger with extra context fields pre-set. Sensitive
// values are redacted before they are attached.
func (l *Logger) Child(fields map[string]interface{}) *Logger {
	return &Logger{
		slogger: l.slogger.With(fieldsToArgs(Redact(fields).(map[string]interface{}))...),
		out:     l.out,
	}
}

// WithCorrelationID is a convenience for the most common child derivation.
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{
		slogger: l.slogger.With("correlationId", id),
		out:     l.out,
	}
}

func (l *Logger) Debug(msg string, data map[string]interface{}) {
	l.slogger.Debug(msg, redactedArgs(data)...)
}

func (l *Logger) Info(msg string, data map[string]interface{}) {
	l.slogger.Info(msg, redactedArgs(data)...)
}

func (l *Logger) Warn(msg string, data map[string]interface{}) {
	l.slogger.Warn(msg, redactedArgs(data)...)
}

func (l *Logger) Error(msg string, data map[string]interface{}) {
	l.slogger.Error(msg, redactedArgs(data)...)
}

// Flush drains buffered log entries. Called by the shutdown coordinator
// after all handlers have run.
func (l *Logger) Flush() error {
	return l.out.Flush()
}

// LogAuth records an authentication event without ever logging credentials.
func (l *Logger) LogAuth(event, identifier string, success bool, data map[string]interface{}) {
	fields := map[string]interface{}{
		"event":      event,
		"identifier": identifier,
		"success":    success,
	}
	for k, v := range data {
		fields[k] = v
	}
	if success {
		l.Info("auth event", fields)
		return
	}
	l.Warn("auth event", fields)
}

// LogDatabase records a persistence-layer operation with its latency.
func (l *Logger) LogDatabase(operation, table string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"operation":  operation,
		"table":      table,
		"durationMs": duration.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("database operation failed", fields)
		return
	}
	l.Debug("database operation", fields)
}

// LogAPICall records an outbound call to an external dependency.
func (l *Logger) LogAPICall(provider, endpoint string, status int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"provider":   provider,
		"endpoint":   endpoint,
		"status":     status,
		"durationMs": duration.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("external api call failed", fields)
		return
	}
	l.Info("external api call", fields)
}

// LogCache records a cache lookup outcome.
func (l *Logger) LogCache(operation, key string, hit bool) {
	l.Debug("cache operation", map[string]interface{}{
		"operation": operation,
		"key":       key,
		"hit":       hit,
	})
}

// LogSecurity maps severity to log level: low/medium log as warnings,
// high/critical as errors.
func (l *Logger) LogSecurity(event, severity string, details map[string]interface{}) {
	fields := map[string]interface{}{
		"event":    event,
		"severity": severity,
	}
	for k, v := range details {
		fields[k] = v
	}
	switch severity {
	case "high", "critical":
		l.Error("security event", fields)
	default:
		l.Warn("security event", fields)
	}
}

func redactedArgs(data map[string]interface{}) []interface{} {
	if len(data) == 0 {
		return nil
	}
	return fieldsToArgs(Redact(data).(map[string]interface{}))
}

func fieldsToArgs(fields map[string]interface{}) []interface{} {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
