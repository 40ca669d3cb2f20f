package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/ringside/internal/adapters/postgres"
)

// ErrNoDatabase is returned by commands that need Postgres when none is configured.
var ErrNoDatabase = errors.New("database_url is not configured")

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the profile and ledger schema",
	}

	databaseURL := func(cmd *cobra.Command) (string, error) {
		cfg, err := flags.setup(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		if cfg.DatabaseURL == "" {
			return "", ErrNoDatabase
		}
		return cfg.DatabaseURL, nil
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			return postgres.MigrateDown(url, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				url, err := databaseURL(cmd)
				if err != nil {
					return err
				}
				if err := postgres.MigrateUp(url); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				url, err := databaseURL(cmd)
				if err != nil {
					return err
				}
				v, dirty, err := postgres.MigrationVersion(url)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}
