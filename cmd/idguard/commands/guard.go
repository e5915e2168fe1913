package commands

import (
	"context"
	"fmt"

	"github.com/hengadev/idguard"
	awssecrets "github.com/hengadev/idguard/providers/secrets/aws"
	"github.com/hengadev/idguard/providers/secrets/awskms"
	"github.com/hengadev/idguard/providers/secrets/hashicorp"
)

// Secret source names accepted by --secret-source.
const (
	SourceEnv   = "env"
	SourceVault = "vault"
	SourceAWS   = "aws"
	SourceKMS   = "kms"
)

// GuardSettings selects where the field policy and the root secret come from.
type GuardSettings struct {
	// ConfigFile is a YAML config file. If empty the environment is used.
	ConfigFile string
	EnvFiles   []string

	// SecretSource is one of env, vault, aws or kms.
	SecretSource string
	Alias        string
	Region       string
	KMSKeyID     string

	// Verbose logs every guard operation.
	Verbose bool
}

// LoadConfig reads the field policy without validating it.
func LoadConfig(s GuardSettings) (idguard.Config, error) {
	if s.ConfigFile != "" {
		return idguard.ConfigFromFile(s.ConfigFile)
	}
	return idguard.ConfigFromEnvironment(s.EnvFiles...)
}

// OpenSecretSource returns the root secret source named by s.SecretSource.
func OpenSecretSource(ctx context.Context, s GuardSettings) (idguard.SecretSource, error) {
	switch s.SecretSource {
	case SourceVault:
		return hashicorp.NewKVSource(ctx, s.Alias)
	case SourceAWS:
		return awssecrets.NewSecretsManagerSource(ctx, awssecrets.Config{Alias: s.Alias, Region: s.Region})
	case SourceKMS:
		return awskms.New(ctx, awskms.Config{KeyID: s.KMSKeyID, Region: s.Region})
	default:
		return nil, fmt.Errorf(
			"%w: invalid secret source: %s (valid options: env, vault, aws, kms)",
			idguard.ErrInvalidConfiguration, s.SecretSource,
		)
	}
}

// LoadGuard builds a Guard from s. With the env source the root secret is
// the one read alongside the config; remote sources are retried while the
// store is unavailable.
func LoadGuard(ctx context.Context, s GuardSettings, logger idguard.Logger) (*idguard.Guard, error) {
	cfg, err := LoadConfig(s)
	if err != nil {
		return nil, err
	}

	opts := []idguard.Option{idguard.WithLogger(logger)}
	if s.Verbose {
		opts = append(opts, idguard.WithObservabilityHook(idguard.NewLoggingObservabilityHook(logger)))
	}

	if s.SecretSource == "" || s.SecretSource == SourceEnv {
		return idguard.New(cfg, opts...)
	}

	src, err := OpenSecretSource(ctx, s)
	if err != nil {
		return nil, err
	}
	return idguard.NewFromSource(ctx, cfg, idguard.RetryingSecretSource{Source: src, Logger: logger}, opts...)
}
