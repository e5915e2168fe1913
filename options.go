package idguard

import (
	"fmt"

	"github.com/hengadev/idguard/internal/monitoring"
	"github.com/hengadev/idguard/internal/protect"
)

// Option configures a Guard.
type Option func(*options) error

type options struct {
	logger        Logger
	metrics       MetricsCollector
	hook          ObservabilityHook
	modeSource    ModeSource
	lazyKeys      bool
	protectorOpts []protect.Option
}

func defaultOptions() *options {
	return &options{
		logger:  monitoring.NewLoggerFromEnvironment("guard"),
		metrics: &monitoring.NoOpMetricsCollector{},
		hook:    &monitoring.NoOpObservabilityHook{},
	}
}

// WithLogger sets the logger used for swallowed failures and degradations.
func WithLogger(logger Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) error {
		if collector == nil {
			return fmt.Errorf("metrics collector cannot be nil")
		}
		o.metrics = collector
		return nil
	}
}

// WithObservabilityHook sets the observability hook.
func WithObservabilityHook(hook ObservabilityHook) Option {
	return func(o *options) error {
		if hook == nil {
			return fmt.Errorf("observability hook cannot be nil")
		}
		o.hook = hook
		return nil
	}
}

// WithModeSource overrides Config.ModeSource and Config.ProtectedMode.
func WithModeSource(source ModeSource) Option {
	return func(o *options) error {
		if source == nil {
			return fmt.Errorf("mode source cannot be nil")
		}
		o.modeSource = source
		return nil
	}
}

// WithLazyKeyDerivation defers cipher key derivation to the first
// encryption or decryption instead of paying it in New.
func WithLazyKeyDerivation() Option {
	return func(o *options) error {
		o.lazyKeys = true
		return nil
	}
}

// withProtectorOptions is used by tests to swap crypto internals.
func withProtectorOptions(opts ...protect.Option) Option {
	return func(o *options) error {
		o.protectorOpts = append(o.protectorOpts, opts...)
		return nil
	}
}
