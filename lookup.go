package idguard

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Finder fetches a record by the value stored in its lookup field. It must
// return an error wrapping ErrNotFound when no record matches; any other
// error is passed back to the caller of Resolve untouched.
type Finder[R any] func(ctx context.Context, key string) (R, error)

// Resolve finds the record a user identifies by rawKey, whether the record
// was stored before or after protection was enabled.
//
// The raw key is tried first, exactly as given. In ProtectedMode a miss is
// followed by a second attempt with HashForLookup(rawKey). In LegacyMode only
// the raw key is tried. An empty key returns ErrNotFound without calling find.
func Resolve[R any](ctx context.Context, g *Guard, rawKey string, find Finder[R]) (R, error) {
	var zero R
	if strings.TrimSpace(rawKey) == "" {
		return zero, ErrNotFound
	}

	start := time.Now()
	g.hook.OnOperationStart(ctx, opResolve, nil)

	rec, via, err := resolve(ctx, g, rawKey, find)
	switch {
	case err == nil:
		g.metrics.IncrementCounter(MetricLookupHits, map[string]string{"via": via})
	case errors.Is(err, ErrNotFound):
		g.metrics.IncrementCounter(MetricLookupMisses, nil)
	}

	g.hook.OnOperationComplete(ctx, opResolve, time.Since(start), err, map[string]any{"via": via})
	return rec, err
}

func resolve[R any](ctx context.Context, g *Guard, rawKey string, find Finder[R]) (R, string, error) {
	rec, err := find(ctx, rawKey)
	if err == nil {
		return rec, "raw", nil
	}
	if !errors.Is(err, ErrNotFound) {
		return rec, "raw", err
	}

	if g.Mode(ctx) != ProtectedMode {
		return rec, "raw", err
	}

	// Records written after protection was enabled hold the digest.
	rec, err = find(ctx, g.HashForLookup(rawKey))
	return rec, "hashed", err
}

// ResolveByLookupKey is Resolve for finders returning a Record.
func (g *Guard) ResolveByLookupKey(ctx context.Context, rawKey string, find Finder[Record]) (Record, error) {
	return Resolve(ctx, g, rawKey, find)
}
