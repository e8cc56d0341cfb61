package log

import "github.com/sofa-labs/couchsync/internal/ports"

// NoopLogger discards all log output. Useful in tests.
type NoopLogger struct{}

// NewNoopLogger creates a logger that does nothing.
func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

// Debug does nothing.
func (NoopLogger) Debug(msg string, fields ...ports.Field) {}

// Info does nothing.
func (NoopLogger) Info(msg string, fields ...ports.Field) {}

// Warn does nothing.
func (NoopLogger) Warn(msg string, fields ...ports.Field) {}

// Error does nothing.
func (NoopLogger) Error(msg string, fields ...ports.Field) {}
