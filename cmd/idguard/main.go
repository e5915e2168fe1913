// Package main provides the idguard command line tool for hashing,
// encrypting and looking up identity records.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hengadev/idguard"
	"github.com/hengadev/idguard/cmd/idguard/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "idguard",
		Usage:   "Protect identity fields with lookup hashing and reversible encryption",
		Version: "1.0.0",
		Flags:   globalFlags(),
		Commands: append(
			append(getFieldCommands(), getRecordCommands()...),
			getSecretCommands()...,
		),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "",
			Usage:   "YAML config file (defaults to IDGUARD_* environment variables)",
		},
		&cli.StringSliceFlag{
			Name:  "env-file",
			Usage: "Env file to load before reading the environment (repeatable)",
		},
		&cli.StringFlag{
			Name:    "secret-source",
			Value:   commands.SourceEnv,
			Usage:   "Root secret source (env, vault, aws, kms)",
			Sources: cli.EnvVars("IDGUARD_SECRET_SOURCE"),
		},
		&cli.StringFlag{
			Name:    "alias",
			Value:   "",
			Usage:   "Deployment alias used in Vault and Secrets Manager paths",
			Sources: cli.EnvVars("IDGUARD_ALIAS"),
		},
		&cli.StringFlag{
			Name:  "region",
			Value: "",
			Usage: "AWS region (defaults to AWS_REGION)",
		},
		&cli.StringFlag{
			Name:    "kms-key-id",
			Value:   "",
			Usage:   "KMS key ID, ARN or alias used to wrap the root secret",
			Sources: cli.EnvVars("IDGUARD_KMS_KEY_ID"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Log every guard operation",
		},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func guardSettings(cmd *cli.Command) commands.GuardSettings {
	return commands.GuardSettings{
		ConfigFile:   cmd.String("config"),
		EnvFiles:     cmd.StringSlice("env-file"),
		SecretSource: cmd.String("secret-source"),
		Alias:        cmd.String("alias"),
		Region:       cmd.String("region"),
		KMSKeyID:     cmd.String("kms-key-id"),
		Verbose:      cmd.Bool("verbose"),
	}
}

func newLogger() *idguard.StructuredLogger {
	return idguard.NewLoggerFromEnvironment("cli")
}

func loadGuard(ctx context.Context, cmd *cli.Command, logger idguard.Logger) (*idguard.Guard, error) {
	return commands.LoadGuard(ctx, guardSettings(cmd), logger)
}
