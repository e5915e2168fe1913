package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hengadev/idguard"
)

// RunHash prints the lookup digest of value.
func RunHash(g *idguard.Guard, value, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("value is required")
	}
	return outputValue(io.Writer, "digest", g.HashForLookup(value), format)
}

// RunEncrypt prints a fresh encryption token for value.
func RunEncrypt(g *idguard.Guard, value, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("value is required")
	}
	token, err := g.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt value: %w", err)
	}
	return outputValue(io.Writer, "token", token, format)
}

// RunDecrypt prints the plaintext of token. A token that cannot be opened
// is an error here, unlike RevealForDisplay which keeps it.
func RunDecrypt(ctx context.Context, g *idguard.Guard, token, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	plain := g.Decrypt(ctx, token)
	if plain == token && idguard.LooksProtected(token) && !g.Degraded() {
		return fmt.Errorf("%w: token could not be opened with the configured root secret", idguard.ErrDecryptionFailed)
	}
	return outputValue(io.Writer, "value", plain, format)
}

// RunProtect prints fields as they would be stored in the current mode.
// Fields that fail are reported after the protected ones are printed.
func RunProtect(ctx context.Context, g *idguard.Guard, logger idguard.Logger, fields map[string]string, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	mode := g.Mode(ctx)
	logger.Info("protecting fields", "mode", mode.String(), "count", len(fields))

	protected, err := g.ProtectForWrite(ctx, fields)
	if outErr := outputFields(io.Writer, protected, format); outErr != nil {
		return outErr
	}
	if err != nil {
		return fmt.Errorf("some fields were not protected: %w", err)
	}
	return nil
}

// RunReveal prints stored fields as they should be displayed.
func RunReveal(ctx context.Context, g *idguard.Guard, fields map[string]string, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	return outputFields(io.Writer, g.RevealForDisplay(ctx, fields), format)
}

// status is the JSON shape of RunStatus output.
type status struct {
	Mode          string   `json:"mode"`
	Degraded      bool     `json:"degraded"`
	LookupField   string   `json:"lookup_field"`
	DisplayFields []string `json:"display_fields"`
}

// RunStatus prints the current protection mode and field policy.
func RunStatus(ctx context.Context, g *idguard.Guard, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	s := status{
		Mode:          g.Mode(ctx).String(),
		Degraded:      g.Degraded(),
		LookupField:   g.LookupField(),
		DisplayFields: g.DisplayFields(),
	}
	if format == "json" {
		return outputJSON(io.Writer, s)
	}
	fmt.Fprintf(io.Writer, "mode: %s\n", s.Mode)
	fmt.Fprintf(io.Writer, "degraded: %t\n", s.Degraded)
	fmt.Fprintf(io.Writer, "lookup field: %s\n", s.LookupField)
	fmt.Fprintf(io.Writer, "display fields: %s\n", strings.Join(s.DisplayFields, ", "))
	return nil
}
