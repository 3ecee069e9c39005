package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"callqa/pkg/logger"
)

// Operations slower than this are logged at warn level the moment they
// complete, independent of the reporting thresholds.
const slowCallSeconds = 5.0

// Monitor records timing and outcome for instrumented operations. It is a
// plain value wired explicitly into whatever needs instrumentation.
type Monitor struct {
	store  *Store
	logger *zap.Logger
}

// NewMonitor creates a monitor recording into store.
func NewMonitor(store *Store) *Monitor {
	return &Monitor{store: store, logger: logger.Get()}
}

func (m *Monitor) observe(ctx context.Context, operation string, start time.Time, argCount int, callErr error) {
	duration := time.Since(start).Seconds()

	metadata := map[string]any{
		"function":   operation,
		"args_count": argCount,
	}
	if callErr != nil {
		metadata["error"] = callErr.Error()
	}

	m.store.RecordMetric(ctx, Record{
		Operation: operation,
		Duration:  duration,
		Timestamp: time.Now(),
		Success:   callErr == nil,
		Metadata:  metadata,
	})

	if duration > slowCallSeconds {
		m.logger.Warn("slow operation",
			zap.String("operation", operation),
			zap.Float64("duration_seconds", duration),
		)
	}
}

// Instrument wraps fn so every call is timed and recorded under operation.
// The wrapped function's value and error pass through untouched. These are
// package-level functions rather than Monitor methods because Go does not
// support generic methods.
func Instrument[T any](m *Monitor, operation string, fn func() (T, error)) func() (T, error) {
	return func() (T, error) {
		start := time.Now()
		val, err := fn()
		m.observe(context.Background(), operation, start, 0, err)
		return val, err
	}
}

// InstrumentContext is the wrapper constructor for context-aware functions.
// Recording uses a detached context so the metric write does not die with
// the caller's context.
func InstrumentContext[T any](m *Monitor, operation string, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		start := time.Now()
		val, err := fn(ctx)
		m.observe(context.WithoutCancel(ctx), operation, start, 1, err)
		return val, err
	}
}
