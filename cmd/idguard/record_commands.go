package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/hengadev/idguard"
	"github.com/hengadev/idguard/cmd/idguard/commands"
)

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Value: commands.StoreSQLite,
			Usage: "Record store (sqlite, s3)",
		},
		&cli.StringFlag{
			Name:    "db",
			Value:   "file:identities.db?_busy_timeout=5000",
			Usage:   "SQLite DSN",
			Sources: cli.EnvVars("IDGUARD_DB"),
		},
		&cli.StringFlag{
			Name:    "bucket",
			Value:   "",
			Usage:   "S3 bucket holding records",
			Sources: cli.EnvVars("IDGUARD_BUCKET"),
		},
		&cli.StringFlag{
			Name:  "prefix",
			Value: "",
			Usage: "S3 key prefix (defaults to identities/)",
		},
	}
}

func openStore(ctx context.Context, cmd *cli.Command, logger idguard.Logger) (idguard.RecordStore, func(), error) {
	store, closeFn, err := commands.OpenStore(ctx, commands.StoreSettings{
		Kind:   cmd.String("store"),
		DSN:    cmd.String("db"),
		Bucket: cmd.String("bucket"),
		Prefix: cmd.String("prefix"),
		Region: cmd.String("region"),
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := closeFn(); err != nil {
			logger.Error("failed to close record store", "error", err)
		}
	}, nil
}

func getRecordCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "register",
			Usage: "Protect a record and save it",
			Flags: append(storeFlags(), fieldFlag(), formatFlag()),
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
				store, closeStore, err := openStore(ctx, cmd, logger)
				if err != nil {
					return err
				}
				defer closeStore()

				return commands.RunRegister(ctx, g, store, logger, fields, cmd.String("format"), io)
			},
		},
		{
			Name:      "lookup",
			Usage:     "Find a record by its raw lookup key and display it",
			ArgsUsage: "<key>",
			Flags:     append(storeFlags(), formatFlag()),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				logger := newLogger()
				g, err := loadGuard(ctx, cmd, logger)
				if err != nil {
					return err
				}
				store, closeStore, err := openStore(ctx, cmd, logger)
				if err != nil {
					return err
				}
				defer closeStore()

				return commands.RunLookup(ctx, g, store, logger, cmd.Args().First(), cmd.String("format"), commands.DefaultIO())
			},
		},
	}
}
