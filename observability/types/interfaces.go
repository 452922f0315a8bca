// Package types defines the contracts for structured logging and metrics
// collection used across the dataset acquisition framework.
//
// The package follows clean architecture principles with minimal abstraction:
// core code depends on these interfaces, never on a concrete logger or
// metrics backend.
package types

import (
	"context"
	"io"
)

// Logger defines the contract for structured logging.
// Implementations should produce JSON-formatted output suitable for log
// aggregation systems. All methods are context-aware to support request
// tracing and correlation.
type Logger interface {
	// Info logs general operational information that doesn't require action.
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs an error message with the associated error object.
	Error(ctx context.Context, msg string, err error, fields Fields)

	// Warn logs potentially harmful situations that don't prevent operation.
	Warn(ctx context.Context, msg string, fields Fields)

	// Debug logs detailed information useful during development and
	// troubleshooting. Typically filtered out in production.
	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a new Logger that includes the given fields in all
	// subsequent log entries. Useful for per-request context like a source
	// key or destination path.
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for metrics collection.
// Implementations should provide Prometheus-compatible metrics following
// Prometheus naming conventions.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation type.
	RecordSuccess(operationType string)

	// RecordError increments the error counter for an operation and error
	// category (e.g. "config", "transport", "precondition").
	RecordError(operationType string, errorType string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, duration float64)

	// RecordBytes records the size in bytes of a transferred payload.
	RecordBytes(source string, bytes int64)

	// StartOperation increments the in-progress gauge for an operation.
	// Must be paired with EndOperation, typically via defer.
	StartOperation(operation string)

	// EndOperation decrements the in-progress gauge for an operation.
	EndOperation(operation string)
}

// Fields represents structured logging fields as key-value pairs.
// Values must be JSON-serializable.
type Fields map[string]interface{}

// Config holds observability configuration for the provider.
type Config struct {
	// ServiceName identifies the service in logs and metrics.
	ServiceName string

	// Environment specifies the deployment environment
	// ("development", "staging", "production").
	Environment string

	// LogLevel sets the minimum log level to output
	// ("debug", "info", "warn", "error").
	LogLevel string

	// LogOutput specifies where logs are written. Defaults to os.Stdout.
	LogOutput io.Writer

	// AdditionalFields are included in every log entry.
	AdditionalFields Fields
}

// Provider manages the lifecycle of observability components. It acts as a
// factory for Logger and Metrics instances; repeated calls with the same
// component name return the same instance.
type Provider interface {
	Logger(component string) Logger
	Metrics(component string) Metrics
	Close() error
}
