package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/checkit/internal/app"
	"github.com/MrSnakeDoc/checkit/internal/config"
	"github.com/MrSnakeDoc/checkit/internal/logger"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "checkit",
		Short:         "Time-boxed uptime monitoring for a list of domains",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load configuration from this .env file only")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override CHECKIT_LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(
		newSweepCmd(opts),
		newAdmitCmd(opts),
		newReportCmd(opts),
		newStatusCmd(opts),
		newMigrateCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration with the global flags applied.
func (o *rootOptions) load() (*config.Config, logger.Logger, error) {
	if o.envFile != "" {
		if err := os.Setenv("ENV_FILE", o.envFile); err != nil {
			return nil, nil, err
		}
	}
	cfg := config.Load()
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	log := logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLog,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	return cfg, log, nil
}

// withApp builds the application, runs fn and releases everything.
func (o *rootOptions) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
