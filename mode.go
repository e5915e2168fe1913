package idguard

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mode is the write/read policy in effect for a call.
type Mode int

const (
	// LegacyMode stores raw values and compares raw lookup keys only.
	LegacyMode Mode = iota
	// ProtectedMode hashes the lookup field, encrypts display fields and
	// falls back to the hashed key on lookup.
	ProtectedMode
)

func (m Mode) String() string {
	switch m {
	case ProtectedMode:
		return "protected"
	default:
		return "legacy"
	}
}

// ModeSource reports whether protected mode is enabled. It is consulted on
// every call; an error makes the guard fall back to LegacyMode.
type ModeSource interface {
	ProtectedMode(ctx context.Context) (bool, error)
}

// StaticMode is a fixed ModeSource.
type StaticMode bool

func (s StaticMode) ProtectedMode(context.Context) (bool, error) {
	return bool(s), nil
}

// EnvMode reads the named environment variable on each call. An unset or
// empty variable means legacy mode; an unparsable one is an error.
type EnvMode string

func (e EnvMode) ProtectedMode(context.Context) (bool, error) {
	raw, ok := os.LookupEnv(string(e))
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %w", ErrModeUnavailable, string(e), raw, err)
	}
	return enabled, nil
}

// ModeFunc adapts a function to ModeSource.
type ModeFunc func(ctx context.Context) (bool, error)

func (f ModeFunc) ProtectedMode(ctx context.Context) (bool, error) {
	return f(ctx)
}
