package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/hengadev/idguard/cmd/idguard/commands"
)

func fieldFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "field",
		Usage: "Field as name=value (repeatable); reads a JSON object from stdin when omitted",
	}
}

func getFieldCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "hash",
			Usage:     "Print the lookup digest of a value",
			ArgsUsage: "<value>",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				g, err := loadGuard(ctx, cmd, newLogger())
				if err != nil {
					return err
				}
				return commands.RunHash(g, cmd.Args().First(), cmd.String("format"), commands.DefaultIO())
			},
		},
		{
			Name:      "encrypt",
			Usage:     "Encrypt a value into a token",
			ArgsUsage: "<value>",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				g, err := loadGuard(ctx, cmd, newLogger())
				if err != nil {
					return err
				}
				return commands.RunEncrypt(g, cmd.Args().First(), cmd.String("format"), commands.DefaultIO())
			},
		},
		{
			Name:      "decrypt",
			Usage:     "Decrypt a token",
			ArgsUsage: "<token>",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				g, err := loadGuard(ctx, cmd, newLogger())
				if err != nil {
					return err
				}
				return commands.RunDecrypt(ctx, g, cmd.Args().First(), cmd.String("format"), commands.DefaultIO())
			},
		},
		{
			Name:  "protect",
			Usage: "Print fields as they would be stored in the current mode",
			Flags: []cli.Flag{fieldFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				logger := newLogger()
				g, err := loadGuard(ctx, cmd, logger)
				if err != nil {
					return err
				}
				io := commands.DefaultIO()
				fields, err := commands.ParseFields(cmd.StringSlice("field"), io.Reader)
				if err != nil {
					return err
				}
				return commands.RunProtect(ctx, g, logger, fields, cmd.String("format"), io)
			},
		},
		{
			Name:  "reveal",
			Usage: "Print stored fields as they should be displayed",
			Flags: []cli.Flag{fieldFlag(), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				g, err := loadGuard(ctx, cmd, newLogger())
				if err != nil {
					return err
				}
				io := commands.DefaultIO()
				fields, err := commands.ParseFields(cmd.StringSlice("field"), io.Reader)
				if err != nil {
					return err
				}
				return commands.RunReveal(ctx, g, fields, cmd.String("format"), io)
			},
		},
		{
			Name:  "status",
			Usage: "Show the protection mode and field policy",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				g, err := loadGuard(ctx, cmd, newLogger())
				if err != nil {
					return err
				}
				return commands.RunStatus(ctx, g, cmd.String("format"), commands.DefaultIO())
			},
		},
	}
}
