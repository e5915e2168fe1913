package idguard

import "github.com/hengadev/idguard/internal/monitoring"

// Logger receives structured log records. Arguments after the message are
// slog style key/value pairs.
type Logger = monitoring.Logger

// MetricsCollector receives counters and timings.
type MetricsCollector = monitoring.MetricsCollector

// ObservabilityHook receives operation start, completion and error events.
type ObservabilityHook = monitoring.ObservabilityHook

type (
	StructuredLogger         = monitoring.StructuredLogger
	LoggerConfig             = monitoring.LoggerConfig
	InMemoryMetricsCollector = monitoring.InMemoryMetricsCollector
	NoOpMetricsCollector     = monitoring.NoOpMetricsCollector
	NoOpObservabilityHook    = monitoring.NoOpObservabilityHook
	NopLogger                = monitoring.NopLogger
)

// Metric names
const (
	MetricDecryptFailures = monitoring.MetricDecryptFailures
	MetricEncryptFailures = monitoring.MetricEncryptFailures
	MetricModeFallbacks   = monitoring.MetricModeFallbacks
	MetricLookupHits      = monitoring.MetricLookupHits
	MetricLookupMisses    = monitoring.MetricLookupMisses
	MetricCryptoDegraded  = monitoring.MetricCryptoDegraded
	MetricOperationTiming = monitoring.MetricOperationTiming
)

var (
	NewStructuredLogger           = monitoring.NewStructuredLogger
	NewLoggerFromEnvironment      = monitoring.NewLoggerFromEnvironment
	NewInMemoryMetricsCollector   = monitoring.NewInMemoryMetricsCollector
	NewLoggingObservabilityHook   = monitoring.NewLoggingObservabilityHook
	NewMetricsObservabilityHook   = monitoring.NewMetricsObservabilityHook
	NewCompositeObservabilityHook = monitoring.NewCompositeObservabilityHook
)
