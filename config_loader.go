package idguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromEnvironment builds a Config from environment variables.
//
// When envFiles are given they are loaded with godotenv first; otherwise a
// ".env" in the working directory is loaded if present. Variables already
// set in the process environment win over file values.
//
// Variables:
//   - IDGUARD_ROOT_SECRET (required)
//   - IDGUARD_PROTECTED_MODE: read on every guard call through EnvMode
//   - IDGUARD_LOOKUP_FIELD (default "omang")
//   - IDGUARD_DISPLAY_FIELDS: comma separated (default: patient display fields)
//   - IDGUARD_LOOKUP_FORMAT: optional regular expression
//   - IDGUARD_MASK (default "*********")
//
// Example usage:
//
//	cfg, err := idguard.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guard, err := idguard.New(cfg)
func LoadConfigFromEnvironment(envFiles ...string) (Config, error) {
	cfg, err := ConfigFromEnvironment(envFiles...)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

// ConfigFromEnvironment reads the same variables as LoadConfigFromEnvironment
// without validating the result. Use it when the root secret comes from a
// SecretSource and is filled in by NewFromSource.
func ConfigFromEnvironment(envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	cfg := Config{
		RootSecret:      os.Getenv(EnvRootSecret),
		ModeSource:      EnvMode(EnvProtectedMode),
		LookupField:     getEnvOrDefault(EnvLookupField, DefaultLookupField),
		LookupFormat:    os.Getenv(EnvLookupFormat),
		MaskPlaceholder: getEnvOrDefault(EnvMaskPlaceholder, DefaultMaskPlaceholder),
	}
	if raw := os.Getenv(EnvDisplayFields); raw != "" {
		cfg.DisplayFields = splitList(raw)
	} else {
		cfg.DisplayFields = slices.Clone(DefaultDisplayFields)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// fileConfig is the YAML layout of a config file. The root secret itself is
// never read from the file, only the name of the variable holding it.
type fileConfig struct {
	RootSecretEnv   string   `yaml:"root_secret_env"`
	ProtectedMode   bool     `yaml:"protected_mode"`
	LookupField     string   `yaml:"lookup_field"`
	DisplayFields   []string `yaml:"display_fields"`
	LookupFormat    string   `yaml:"lookup_format"`
	MaskPlaceholder string   `yaml:"mask_placeholder"`
}

// LoadConfigFromFile reads a YAML config file:
//
//	root_secret_env: IDGUARD_ROOT_SECRET
//	protected_mode: true
//	lookup_field: omang
//	lookup_format: '^\d+$'
//	display_fields: [cellphone, address, next_of_kin_name]
//	mask_placeholder: "*********"
//
// Omitted lookup_field and display_fields fall back to the patient profile.
func LoadConfigFromFile(path string) (Config, error) {
	cfg, err := ConfigFromFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

// ConfigFromFile reads a config file like LoadConfigFromFile without
// validating the result.
func ConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to read config file: %w", ErrInvalidConfiguration, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config file: %w", ErrInvalidConfiguration, err)
	}

	if fc.RootSecretEnv == "" {
		fc.RootSecretEnv = EnvRootSecret
	}
	if fc.LookupField == "" {
		fc.LookupField = DefaultLookupField
	}
	if fc.DisplayFields == nil {
		fc.DisplayFields = slices.Clone(DefaultDisplayFields)
	}

	return Config{
		RootSecret:      os.Getenv(fc.RootSecretEnv),
		ProtectedMode:   fc.ProtectedMode,
		LookupField:     fc.LookupField,
		DisplayFields:   fc.DisplayFields,
		LookupFormat:    fc.LookupFormat,
		MaskPlaceholder: fc.MaskPlaceholder,
	}, nil
}

// getEnvOrDefault returns the value of an environment variable, or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
