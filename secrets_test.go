package idguard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ err error }

func (f failingSource) RootSecret(context.Context) ([]byte, error) { return nil, f.err }

func TestLoadRootSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("static source", func(t *testing.T) {
		secret, err := LoadRootSecret(ctx, StaticSecretSource(TestRootSecret))
		require.NoError(t, err)
		assert.Equal(t, []byte(TestRootSecret), secret)
	})

	t.Run("env source defaults to IDGUARD_ROOT_SECRET", func(t *testing.T) {
		t.Setenv(EnvRootSecret, "from-env")
		secret, err := LoadRootSecret(ctx, EnvSecretSource(""))
		require.NoError(t, err)
		assert.Equal(t, []byte("from-env"), secret)
	})

	t.Run("empty secret fails loudly", func(t *testing.T) {
		_, err := LoadRootSecret(ctx, StaticSecretSource(" \n"))
		assert.ErrorIs(t, err, ErrRootSecretMissing)
	})

	t.Run("source failure is retryable", func(t *testing.T) {
		_, err := LoadRootSecret(ctx, failingSource{err: errors.New("vault sealed")})
		assert.ErrorIs(t, err, ErrSecretStorageUnavailable)
		assert.True(t, IsRetryableError(err))
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := LoadRootSecret(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestNewFromSource(t *testing.T) {
	ctx := context.Background()

	g, err := NewFromSource(ctx, PatientProfile(), StaticSecretSource(TestRootSecret), WithLogger(NopLogger{}))
	require.NoError(t, err)
	assert.Equal(t, NewTestGuard(true).HashForLookup("200101001"), g.HashForLookup("200101001"))

	_, err = NewFromSource(ctx, PatientProfile(), StaticSecretSource(nil))
	assert.ErrorIs(t, err, ErrRootSecretMissing)
}

type flakySource struct {
	failures int
	err      error
	calls    int
}

func (f *flakySource) RootSecret(context.Context) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []byte(TestRootSecret), nil
}

func TestRetryingSecretSource(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers from unavailable storage", func(t *testing.T) {
		src := &flakySource{failures: 2, err: fmt.Errorf("%w: vault sealed", ErrSecretStorageUnavailable)}
		secret, err := LoadRootSecret(ctx, RetryingSecretSource{Source: src, InitialDelay: time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, []byte(TestRootSecret), secret)
		assert.Equal(t, 3, src.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		src := &flakySource{failures: 5, err: fmt.Errorf("%w: throttled", ErrSecretStorageUnavailable)}
		_, err := RetryingSecretSource{Source: src, MaxAttempts: 2, InitialDelay: time.Millisecond}.RootSecret(ctx)
		assert.ErrorIs(t, err, ErrSecretStorageUnavailable)
		assert.Equal(t, 2, src.calls)
	})

	t.Run("missing secret is not retried", func(t *testing.T) {
		src := &flakySource{failures: 5, err: ErrRootSecretMissing}
		_, err := RetryingSecretSource{Source: src, InitialDelay: time.Millisecond}.RootSecret(ctx)
		assert.ErrorIs(t, err, ErrRootSecretMissing)
		assert.Equal(t, 1, src.calls)
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := RetryingSecretSource{}.RootSecret(ctx)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}
