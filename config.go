package idguard

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hengadev/errsx"
)

// Config holds everything a Guard needs. It is read once by New; later
// changes to a Config value do not affect an existing Guard.
//
// Required fields:
//   - RootSecret: process-wide secret all key material derives from
//   - LookupField: the field used as an exact-match lookup key
//
// Optional fields:
//   - ProtectedMode: static mode flag, ignored when ModeSource is set
//   - ModeSource: consulted on every call to pick the mode
//   - DisplayFields: fields encrypted for storage and decrypted for display
//   - LookupFormat: regular expression raw lookup values must match
//   - MaskPlaceholder: shown instead of a hashed lookup value (default "*********")
//
// Example usage:
//
//	cfg := idguard.PatientProfile()
//	cfg.RootSecret = os.Getenv(idguard.EnvRootSecret)
//	cfg.ProtectedMode = true
//
//	guard, err := idguard.New(cfg)
type Config struct {
	RootSecret      string
	ProtectedMode   bool
	ModeSource      ModeSource
	LookupField     string
	DisplayFields   []string
	LookupFormat    string
	MaskPlaceholder string
}

// PatientProfile returns the field policy of a patient identity record: the
// national ID number is the lookup field and contact, medical aid, next of
// kin and address details are display fields. RootSecret is left empty.
func PatientProfile() Config {
	return Config{
		LookupField:     DefaultLookupField,
		DisplayFields:   slices.Clone(DefaultDisplayFields),
		LookupFormat:    `^\d+$`,
		MaskPlaceholder: DefaultMaskPlaceholder,
	}
}

// Validate checks the configuration and applies defaults to optional fields.
// Problems with field settings are reported together as an errsx.Map keyed
// by setting name; a missing root secret is joined to it as ErrRootSecretMissing.
func (c *Config) Validate() error {
	var errs errsx.Map

	// A missing secret is reported on its own so errors.Is can see it.
	var secretErr error
	if strings.TrimSpace(c.RootSecret) == "" {
		secretErr = fmt.Errorf("%w: set %s or load it from a secret store", ErrRootSecretMissing, EnvRootSecret)
	}

	c.LookupField = strings.TrimSpace(c.LookupField)
	if c.LookupField == "" {
		errs.Set("lookup_field", "lookup field is required")
	}

	seen := make(map[string]struct{}, len(c.DisplayFields))
	for i, name := range c.DisplayFields {
		name = strings.TrimSpace(name)
		c.DisplayFields[i] = name
		switch {
		case name == "":
			errs.Set("display_fields", fmt.Sprintf("display field %d is empty", i))
		case name == c.LookupField:
			errs.Set("display_fields", fmt.Sprintf("%q cannot be both the lookup field and a display field", name))
		default:
			if _, dup := seen[name]; dup {
				errs.Set("display_fields", fmt.Sprintf("display field %q is listed twice", name))
			}
			seen[name] = struct{}{}
		}
	}

	if c.LookupFormat != "" {
		if _, err := regexp.Compile(c.LookupFormat); err != nil {
			errs.Set("lookup_format", fmt.Errorf("invalid lookup format: %w", err))
		}
	}

	if c.MaskPlaceholder == "" {
		c.MaskPlaceholder = DefaultMaskPlaceholder
	}

	if len(errs) > 0 {
		return errors.Join(secretErr, errs.AsError())
	}
	return secretErr
}

// modeSource returns the configured ModeSource or a static one built from ProtectedMode.
func (c Config) modeSource() ModeSource {
	if c.ModeSource != nil {
		return c.ModeSource
	}
	return StaticMode(c.ProtectedMode)
}
