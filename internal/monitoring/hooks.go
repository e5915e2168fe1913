package monitoring

import (
	"context"
	"time"
)

// ObservabilityHook receives guard operation events. Metadata never carries
// field values, only field names and outcome details.
type ObservabilityHook interface {
	// Called before an operation starts
	OnOperationStart(ctx context.Context, operation string, metadata map[string]any)

	// Called after an operation completes (success or failure)
	OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any)

	// Called when a failure is swallowed or isolated
	OnError(ctx context.Context, operation string, err error, metadata map[string]any)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (n *NoOpObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
}

// LoggingObservabilityHook logs all operations
type LoggingObservabilityHook struct {
	logger Logger
}

// NewLoggingObservabilityHook creates a new logging observability hook
func NewLoggingObservabilityHook(logger Logger) *LoggingObservabilityHook {
	if logger == nil {
		logger = NopLogger{}
	}
	return &LoggingObservabilityHook{
		logger: logger,
	}
}

func (l *LoggingObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
	l.logger.Debug("operation started", "operation", operation, "metadata", metadata)
}

func (l *LoggingObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	if err != nil {
		l.logger.Warn("operation completed with errors", "operation", operation, "duration", duration, "error", err, "metadata", metadata)
		return
	}
	l.logger.Debug("operation completed", "operation", operation, "duration", duration, "metadata", metadata)
}

func (l *LoggingObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	l.logger.Error("operation error", "operation", operation, "error", err, "metadata", metadata)
}

// MetricsObservabilityHook records operation timings
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = &NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{
		collector: collector,
	}
}

func (m *MetricsObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
}

func (m *MetricsObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.collector.RecordTiming(MetricOperationTiming, duration, map[string]string{
		"operation": operation,
		"status":    status,
	})
}

func (m *MetricsObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
}

// CompositeObservabilityHook combines multiple hooks
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a new composite hook
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{
		hooks: hooks,
	}
}

func (c *CompositeObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnOperationStart(ctx, operation, metadata)
	}
}

func (c *CompositeObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnOperationComplete(ctx, operation, duration, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnError(ctx, operation, err, metadata)
	}
}
