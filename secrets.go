package idguard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hengadev/idguard/internal/reliability"
)

// SecretSource supplies the root secret. Implementations live under
// providers/secrets for Vault, AWS Secrets Manager and AWS KMS.
type SecretSource interface {
	RootSecret(ctx context.Context) ([]byte, error)
}

// EnvSecretSource reads the root secret from the named environment variable.
// An empty name means EnvRootSecret.
type EnvSecretSource string

func (e EnvSecretSource) RootSecret(context.Context) ([]byte, error) {
	name := string(e)
	if name == "" {
		name = EnvRootSecret
	}
	return []byte(os.Getenv(name)), nil
}

// StaticSecretSource returns a fixed secret. Intended for tests.
type StaticSecretSource []byte

func (s StaticSecretSource) RootSecret(context.Context) ([]byte, error) {
	return bytes.Clone(s), nil
}

// LoadRootSecret fetches the root secret from src. Source failures wrap
// ErrSecretStorageUnavailable; an empty or whitespace-only secret is
// ErrRootSecretMissing.
func LoadRootSecret(ctx context.Context, src SecretSource) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: secret source cannot be nil", ErrInvalidConfiguration)
	}
	secret, err := src.RootSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSecretStorageUnavailable, err)
	}
	if len(bytes.TrimSpace(secret)) == 0 {
		return nil, ErrRootSecretMissing
	}
	return secret, nil
}

// NewFromSource loads the root secret from src into cfg and builds a Guard.
func NewFromSource(ctx context.Context, cfg Config, src SecretSource, opts ...Option) (*Guard, error) {
	secret, err := LoadRootSecret(ctx, src)
	if err != nil {
		return nil, err
	}
	cfg.RootSecret = string(secret)
	return New(cfg, opts...)
}

// RetryingSecretSource retries a remote source while it reports
// ErrSecretStorageUnavailable. A missing secret is returned at once.
type RetryingSecretSource struct {
	Source SecretSource

	// MaxAttempts includes the first call. Zero means 3.
	MaxAttempts int
	// InitialDelay doubles after each retry. Zero means 200ms.
	InitialDelay time.Duration

	Logger Logger
}

func (r RetryingSecretSource) RootSecret(ctx context.Context) ([]byte, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("%w: secret source cannot be nil", ErrInvalidConfiguration)
	}
	logger := r.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	var secret []byte
	err := reliability.Retry(ctx, reliability.RetryConfig{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay,
		ShouldRetry:  IsRetryableError,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("root secret fetch failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		},
	}, func(ctx context.Context) error {
		var err error
		secret, err = r.Source.RootSecret(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}
