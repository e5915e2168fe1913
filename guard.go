package idguard

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/hengadev/errsx"

	"github.com/hengadev/idguard/internal/fielderr"
	"github.com/hengadev/idguard/internal/keys"
	"github.com/hengadev/idguard/internal/protect"
)

// Guard applies the per-record protection policy. On writes it decides which
// fields are hashed, encrypted or left alone; on reads it reverses what can
// be reversed and masks what cannot.
//
// A Guard holds no mutable state and is safe for concurrent use.
type Guard struct {
	lookupField   string
	displayFields map[string]struct{}
	lookupFormat  *regexp.Regexp
	mask          string
	mode          ModeSource
	protector     *protect.Protector

	logger  Logger
	metrics MetricsCollector
	hook    ObservabilityHook
}

// New builds a Guard from cfg. It fails when the root secret is missing;
// there is no default secret.
//
// Unless WithLazyKeyDerivation is given, the cipher key is derived here, once
// per Guard. If the cipher cannot be built the Guard still works but stores
// display fields unencrypted; that degradation is logged at error level.
func New(cfg Config, opts ...Option) (*Guard, error) {
	cfg.DisplayFields = slices.Clone(cfg.DisplayFields)
	if err := cfg.Validate(); err != nil {
		if IsConfigurationError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	o := defaultOptions()
	for i, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("%w: invalid option %d: %w", ErrInvalidConfiguration, i+1, err)
		}
	}

	material, err := keys.NewMaterial([]byte(cfg.RootSecret))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootSecretMissing, err)
	}

	g := &Guard{
		lookupField:   cfg.LookupField,
		displayFields: make(map[string]struct{}, len(cfg.DisplayFields)),
		mask:          cfg.MaskPlaceholder,
		mode:          cfg.modeSource(),
		logger:        o.logger,
		metrics:       o.metrics,
		hook:          o.hook,
	}
	for _, name := range cfg.DisplayFields {
		g.displayFields[name] = struct{}{}
	}
	if cfg.LookupFormat != "" {
		g.lookupFormat = regexp.MustCompile(cfg.LookupFormat)
	}
	if o.modeSource != nil {
		g.mode = o.modeSource
	}

	protectorOpts := append([]protect.Option{protect.WithDegradedHandler(g.onCryptoDegraded)}, o.protectorOpts...)
	g.protector = protect.New(material, protectorOpts...)
	if !o.lazyKeys {
		// A failure has already been reported through onCryptoDegraded.
		_ = g.protector.Prime()
	}

	return g, nil
}

func (g *Guard) onCryptoDegraded(err error) {
	g.logger.Error("crypto primitives unavailable, display fields will pass through unencrypted",
		"critical", true, "error", err)
	g.metrics.IncrementCounter(MetricCryptoDegraded, nil)
	g.hook.OnError(context.Background(), opKeyDerivation, err, map[string]any{"critical": true})
}

// Mode returns the mode in effect for this call. If the mode source fails
// the guard falls back to LegacyMode so existing logins keep working.
func (g *Guard) Mode(ctx context.Context) Mode {
	protected, err := g.mode.ProtectedMode(ctx)
	if err != nil {
		g.logger.Warn("cannot determine protection mode, falling back to legacy mode", "error", err)
		g.metrics.IncrementCounter(MetricModeFallbacks, nil)
		g.hook.OnError(ctx, opMode, err, nil)
		return LegacyMode
	}
	if protected {
		return ProtectedMode
	}
	return LegacyMode
}

// LookupField returns the name of the hashed lookup field.
func (g *Guard) LookupField() string {
	return g.lookupField
}

// IsDisplayField reports whether name is encrypted for storage.
func (g *Guard) IsDisplayField(name string) bool {
	_, ok := g.displayFields[name]
	return ok
}

// DisplayFields returns the encrypted field names in sorted order.
func (g *Guard) DisplayFields() []string {
	return slices.Sorted(maps.Keys(g.displayFields))
}

// Degraded reports whether encryption runs in pass-through mode.
func (g *Guard) Degraded() bool {
	return g.protector.Degraded()
}

// HashForLookup returns the 64 character lowercase hex lookup digest of the
// trimmed input, or "" for empty input.
func (g *Guard) HashForLookup(raw string) string {
	return g.protector.HashForLookup(raw)
}

// Encrypt returns a fresh token for raw, or "" for empty input.
func (g *Guard) Encrypt(raw string) (string, error) {
	return g.protector.Encrypt(raw)
}

// Decrypt opens token. It never fails: values that are not tokens come back
// unchanged, and so do tokens that cannot be opened, in which case the
// failure is logged and counted.
func (g *Guard) Decrypt(ctx context.Context, token string) string {
	plain, err := g.protector.Decrypt(token)
	if err != nil {
		g.reportFieldFailure(ctx, opRevealForDisplay, "", fielderr.Decrypt, err, MetricDecryptFailures)
	}
	return plain
}

// LooksProtected reports whether value is already a lookup digest or an
// encryption token.
func LooksProtected(value string) bool {
	return protect.LooksProtected(value)
}

var storedLookupPattern = regexp.MustCompile(`^(\d{9,}|[0-9a-f]{64})$`)

// ValidStoredLookup reports whether v has the shape of a stored lookup
// value during migration: a raw numeric identifier of at least 9 digits or
// a lookup digest.
func ValidStoredLookup(v string) bool {
	return storedLookupPattern.MatchString(v)
}

// ProtectForWrite returns the values fields should be stored as. The input
// map is not modified.
//
// In ProtectedMode the lookup field is hashed and display fields are
// encrypted; empty values and values that already look protected are kept
// as they are. Other fields pass through. In LegacyMode every value passes
// through.
//
// A field that fails is left out of the result and reported in the returned
// errsx.Map keyed by field name; the remaining fields are still processed
// and returned.
func (g *Guard) ProtectForWrite(ctx context.Context, fields map[string]string) (map[string]string, error) {
	start := time.Now()
	g.hook.OnOperationStart(ctx, opProtectForWrite, map[string]any{"fields": len(fields)})

	mode := g.Mode(ctx)
	out := make(map[string]string, len(fields))
	var errs errsx.Map

	for name, value := range fields {
		if name == g.lookupField && !g.validLookup(value) {
			err := fielderr.NewInvalidFormatError(name, g.lookupFormat.String(), fielderr.Hash)
			errs.Set(name, err)
			g.reportFieldFailure(ctx, opProtectForWrite, name, fielderr.Hash, err, "")
			continue
		}

		if mode == LegacyMode || value == "" || protect.LooksProtected(value) {
			out[name] = value
			continue
		}

		switch {
		case name == g.lookupField:
			out[name] = g.protector.HashForLookup(value)
		case g.IsDisplayField(name):
			token, err := g.protector.Encrypt(value)
			if err != nil {
				ferr := fielderr.NewOperationFailedError(name, fielderr.Encrypt, err)
				errs.Set(name, ferr)
				g.reportFieldFailure(ctx, opProtectForWrite, name, fielderr.Encrypt, ferr, MetricEncryptFailures)
				continue
			}
			out[name] = token
		default:
			out[name] = value
		}
	}

	var err error
	if len(errs) > 0 {
		err = errs.AsError()
	}
	g.hook.OnOperationComplete(ctx, opProtectForWrite, time.Since(start), err, map[string]any{"mode": mode.String()})
	return out, err
}

// validLookup checks a raw lookup value against the configured format.
// Empty and already protected values are always accepted.
func (g *Guard) validLookup(value string) bool {
	if g.lookupFormat == nil || value == "" || protect.LooksProtected(value) {
		return true
	}
	return g.lookupFormat.MatchString(strings.TrimSpace(value))
}

// RevealForDisplay returns fields as they should be shown. Display fields
// holding a token are decrypted; one that cannot be decrypted keeps its
// stored value without affecting the others. A hashed lookup field cannot
// be reversed and is replaced by the mask placeholder. Everything else is
// returned unchanged. This runs the same way in both modes since stored
// data may already be protected.
func (g *Guard) RevealForDisplay(ctx context.Context, fields map[string]string) map[string]string {
	start := time.Now()
	g.hook.OnOperationStart(ctx, opRevealForDisplay, map[string]any{"fields": len(fields)})

	out := make(map[string]string, len(fields))
	failures := 0
	for name, value := range fields {
		switch {
		case name == g.lookupField:
			if protect.IsDigest(value) {
				out[name] = g.mask
			} else {
				out[name] = value
			}
		case g.IsDisplayField(name) && protect.IsToken(value):
			plain, err := g.protector.Decrypt(value)
			if err != nil {
				failures++
				g.reportFieldFailure(ctx, opRevealForDisplay, name, fielderr.Decrypt,
					fielderr.NewOperationFailedError(name, fielderr.Decrypt, err), MetricDecryptFailures)
			}
			out[name] = plain
		default:
			out[name] = value
		}
	}

	g.hook.OnOperationComplete(ctx, opRevealForDisplay, time.Since(start), nil, map[string]any{"decrypt_failures": failures})
	return out
}

// reportFieldFailure makes an isolated failure visible. Field values are
// never logged.
func (g *Guard) reportFieldFailure(ctx context.Context, operation, field string, action fielderr.Action, err error, metric string) {
	g.logger.Warn("field operation failed, continuing with remaining fields",
		"operation", operation, "field", field, "action", action.String(), "error", err)
	if metric != "" {
		g.metrics.IncrementCounter(metric, map[string]string{"field": field})
	}
	g.hook.OnError(ctx, operation, err, map[string]any{"field": field, "action": action.String()})
}
