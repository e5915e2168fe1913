package idguard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hengadev/errsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errKeys []string
	}{
		{
			name:   "patient profile with secret",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing lookup field",
			mutate:  func(c *Config) { c.LookupField = " " },
			wantErr: true,
			errKeys: []string{"lookup_field"},
		},
		{
			name:    "duplicate display field",
			mutate:  func(c *Config) { c.DisplayFields = []string{"cellphone", "cellphone"} },
			wantErr: true,
			errKeys: []string{"display_fields"},
		},
		{
			name:    "lookup field also a display field",
			mutate:  func(c *Config) { c.DisplayFields = []string{"omang"} },
			wantErr: true,
			errKeys: []string{"display_fields"},
		},
		{
			name:    "invalid lookup format",
			mutate:  func(c *Config) { c.LookupFormat = "^[0-9" },
			wantErr: true,
			errKeys: []string{"lookup_format"},
		},
		{
			name: "several problems reported together",
			mutate: func(c *Config) {
				c.LookupField = ""
				c.LookupFormat = "("
				c.DisplayFields = []string{""}
			},
			wantErr: true,
			errKeys: []string{"lookup_field", "lookup_format", "display_fields"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := PatientProfile()
			cfg.RootSecret = TestRootSecret
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var errs errsx.Map
			require.True(t, errors.As(err, &errs), "expected an errsx.Map in %v", err)
			assert.Len(t, errs, len(tt.errKeys))
			for _, key := range tt.errKeys {
				assert.Contains(t, errs, key)
			}
		})
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{RootSecret: TestRootSecret, LookupField: " omang "}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "omang", cfg.LookupField)
	assert.Equal(t, DefaultMaskPlaceholder, cfg.MaskPlaceholder)
}

func TestConfigValidateMissingSecret(t *testing.T) {
	cfg := PatientProfile()
	cfg.LookupField = ""

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrRootSecretMissing)

	var errs errsx.Map
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs, "lookup_field")
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv(EnvRootSecret, TestRootSecret)

		cfg, err := LoadConfigFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, TestRootSecret, cfg.RootSecret)
		assert.Equal(t, DefaultLookupField, cfg.LookupField)
		assert.Equal(t, DefaultDisplayFields, cfg.DisplayFields)
		assert.Equal(t, DefaultMaskPlaceholder, cfg.MaskPlaceholder)
		assert.Equal(t, EnvMode(EnvProtectedMode), cfg.ModeSource)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv(EnvRootSecret, TestRootSecret)
		t.Setenv(EnvLookupField, "national_id")
		t.Setenv(EnvDisplayFields, "phone, email ,")
		t.Setenv(EnvLookupFormat, `^\d{9}$`)
		t.Setenv(EnvMaskPlaceholder, "[masked]")

		cfg, err := LoadConfigFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, "national_id", cfg.LookupField)
		assert.Equal(t, []string{"phone", "email"}, cfg.DisplayFields)
		assert.Equal(t, `^\d{9}$`, cfg.LookupFormat)
		assert.Equal(t, "[masked]", cfg.MaskPlaceholder)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv(EnvRootSecret, "")

		_, err := LoadConfigFromEnvironment()
		assert.ErrorIs(t, err, ErrRootSecretMissing)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("env file", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvRootSecret, "")
		os.Unsetenv(EnvRootSecret)
		t.Setenv(EnvLookupField, "")
		os.Unsetenv(EnvLookupField)

		path := filepath.Join(dir, "idguard.env")
		require.NoError(t, os.WriteFile(path, []byte("IDGUARD_ROOT_SECRET=from-file\nIDGUARD_LOOKUP_FIELD=passport\n"), 0o600))

		cfg, err := LoadConfigFromEnvironment(path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.RootSecret)
		assert.Equal(t, "passport", cfg.LookupField)
	})

	t.Run("missing env file", func(t *testing.T) {
		t.Setenv(EnvRootSecret, TestRootSecret)
		_, err := LoadConfigFromEnvironment(filepath.Join(t.TempDir(), "absent.env"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestLoadConfigFromFile(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "idguard.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	t.Run("full file", func(t *testing.T) {
		t.Setenv("PORTAL_SECRET", TestRootSecret)
		path := write(t, `
root_secret_env: PORTAL_SECRET
protected_mode: true
lookup_field: omang
lookup_format: '^\d+$'
display_fields: [cellphone, address]
mask_placeholder: "###"
`)

		cfg, err := LoadConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, TestRootSecret, cfg.RootSecret)
		assert.True(t, cfg.ProtectedMode)
		assert.Equal(t, []string{"cellphone", "address"}, cfg.DisplayFields)
		assert.Equal(t, "###", cfg.MaskPlaceholder)

		g, err := New(cfg, WithLogger(NopLogger{}))
		require.NoError(t, err)
		assert.Equal(t, ProtectedMode, g.Mode(context.Background()))
	})

	t.Run("defaults to patient profile", func(t *testing.T) {
		t.Setenv(EnvRootSecret, TestRootSecret)
		cfg, err := LoadConfigFromFile(write(t, "protected_mode: false\n"))
		require.NoError(t, err)
		assert.Equal(t, DefaultLookupField, cfg.LookupField)
		assert.Equal(t, DefaultDisplayFields, cfg.DisplayFields)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfigFromFile(write(t, "display_fields: {"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestConfigFromEnvironmentSkipsValidation(t *testing.T) {
	t.Setenv(EnvRootSecret, "")

	cfg, err := ConfigFromEnvironment()
	require.NoError(t, err)
	assert.Empty(t, cfg.RootSecret)
	assert.Equal(t, DefaultLookupField, cfg.LookupField)

	_, err = NewFromSource(context.Background(), cfg, StaticSecretSource(TestRootSecret), WithLogger(NopLogger{}))
	assert.NoError(t, err)
}
