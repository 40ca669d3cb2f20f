package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/ringside/internal/config"
	"github.com/okian/ringside/pkg/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "ringside",
		Short: "Ringside fight statistics pipeline",
		Long: `Ringside scans an event result store, folds every bout into per-athlete
fight statistics and writes them into canonical athlete profiles.

Runs come in three modes:
  full    aggregate every event not yet processed
  merge   combine the historical and current archives
  event   aggregate a single event`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path (defaults to $"+config.EnvFile+")")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		newServeCommand(flags),
		newRunCommand(flags),
		newMigrateCommand(flags),
		newArchiveCommand(flags),
		newFixturesCommand(flags),
	)
	return root
}

// setup loads configuration and configures the global logger from it.
// Flags win over file and environment.
func (f *globalFlags) setup(ctx context.Context, logOut io.Writer) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = os.Getenv(config.EnvFile)
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	if err := logger.Configure(cfg.LogFormat, logOut); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
