// Package reliability retries transient failures of remote calls, such as
// fetching the root secret from a secret store.
package reliability

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial attempt)
	MaxAttempts int
	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// Multiplier for exponential backoff
	Multiplier float64
	// Jitter is the fraction of the delay added or removed at random, in [0, 1]
	Jitter float64
	// ShouldRetry decides whether err is worth another attempt
	ShouldRetry func(err error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		ShouldRetry: func(err error) bool {
			return err != nil
		},
	}
}

// Backoff computes exponential delays with jitter.
type Backoff struct {
	config RetryConfig
	rand   func() float64
}

// NewBackoff fills unset fields of config from DefaultRetryConfig.
func NewBackoff(config RetryConfig) *Backoff {
	def := DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = def.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = def.Multiplier
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = def.Jitter
	}
	if config.ShouldRetry == nil {
		config.ShouldRetry = def.ShouldRetry
	}
	return &Backoff{config: config, rand: rand.Float64}
}

// MaxAttempts returns the maximum number of attempts
func (b *Backoff) MaxAttempts() int {
	return b.config.MaxAttempts
}

// NextDelay returns the delay before retry number attempt (0-indexed).
func (b *Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}

	delay := float64(b.config.InitialDelay) * math.Pow(b.config.Multiplier, float64(attempt))
	if delay > float64(b.config.MaxDelay) {
		delay = float64(b.config.MaxDelay)
	}

	if b.config.Jitter > 0 {
		spread := delay * b.config.Jitter
		delay += (b.rand() - 0.5) * 2 * spread
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Execute runs operation until it succeeds, returns an error ShouldRetry
// rejects, the attempts run out or ctx is done. The last error is returned.
func (b *Backoff) Execute(ctx context.Context, operation func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < b.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == b.config.MaxAttempts-1 || !b.config.ShouldRetry(lastErr) {
			return lastErr
		}

		delay := b.NextDelay(attempt)
		if b.config.OnRetry != nil {
			b.config.OnRetry(attempt+1, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// Retry executes operation with config.
func Retry(ctx context.Context, config RetryConfig, operation func(context.Context) error) error {
	return NewBackoff(config).Execute(ctx, operation)
}
