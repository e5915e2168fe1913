package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hengadev/idguard/cmd/idguard/commands"
	"github.com/hengadev/idguard/providers/secrets/awskms"
)

func getSecretCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init-secret",
			Usage: "Generate a root secret and store it in Vault or Secrets Manager",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Replace an existing root secret",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				settings := guardSettings(cmd)
				if settings.SecretSource != commands.SourceVault && settings.SecretSource != commands.SourceAWS {
					return fmt.Errorf("init-secret needs --secret-source=vault or --secret-source=aws")
				}
				src, err := commands.OpenSecretSource(ctx, settings)
				if err != nil {
					return err
				}
				store, ok := src.(commands.RootSecretStore)
				if !ok {
					return fmt.Errorf("secret source %s cannot store secrets", settings.SecretSource)
				}
				return commands.RunInitSecret(ctx, store, newLogger(), cmd.Bool("force"), nil, commands.DefaultIO())
			},
		},
		{
			Name:  "wrap-secret",
			Usage: "Generate a root secret wrapped with AWS KMS",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				settings := guardSettings(cmd)
				src, err := awskms.New(ctx, awskms.Config{KeyID: settings.KMSKeyID, Region: settings.Region})
				if err != nil {
					return err
				}
				return commands.RunWrapSecret(ctx, src, newLogger(), nil, commands.DefaultIO())
			},
		},
	}
}
