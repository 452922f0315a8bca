package observability

import (
	"context"

	"datasetfetch/observability/types"
)

// nopLogger discards every log entry. Used as the default when a caller does
// not supply a logger.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all entries.
func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Info(ctx context.Context, msg string, fields types.Fields)             {}
func (nopLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {}
func (nopLogger) Warn(ctx context.Context, msg string, fields types.Fields)             {}
func (nopLogger) Debug(ctx context.Context, msg string, fields types.Fields)            {}
func (n nopLogger) WithFields(fields types.Fields) Logger                               { return n }

// nopMetrics discards every observation.
type nopMetrics struct{}

// NewNopMetrics returns a Metrics collector that discards all observations.
func NewNopMetrics() Metrics {
	return nopMetrics{}
}

func (nopMetrics) RecordSuccess(operationType string)                  {}
func (nopMetrics) RecordError(operationType string, errorType string)  {}
func (nopMetrics) RecordDuration(operation string, duration float64)   {}
func (nopMetrics) RecordBytes(source string, bytes int64)              {}
func (nopMetrics) StartOperation(operation string)                     {}
func (nopMetrics) EndOperation(operation string)                       {}
