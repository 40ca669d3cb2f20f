package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ringside/internal/adapters/archivestore"
	"github.com/okian/ringside/internal/domain/archive"
	"github.com/okian/ringside/pkg/logger"
)

// ErrNoArchiveDir is returned by archive commands when archives would only live in memory.
var ErrNoArchiveDir = errors.New("archive_dir is not configured; archives are in-memory and gone after each command")

func openArchives(flags *globalFlags, cmd *cobra.Command) (*archivestore.Store, error) {
	cfg, err := flags.setup(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if cfg.ArchiveDir == "" {
		return nil, ErrNoArchiveDir
	}
	return archivestore.Open(cfg.ArchiveDir, archivestore.WithLogger(logger.Named("archive")))
}

func newArchiveCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect and manage period archives",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "freeze <period>",
			Short: "Freeze an archive so later runs cannot fold into it",
			Long: `Freeze marks a period archive as closed. A frozen archive is still read by
merge runs but full and single event runs refuse to fold into it.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				store, err := openArchives(flags, cmd)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				if err := store.Freeze(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archive %s frozen\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <period>",
			Short: "Print the size and state of an archive",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				store, err := openArchives(flags, cmd)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				lookup, err := store.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if lookup.State != archive.Present {
					fmt.Fprintf(cmd.OutOrStdout(), "archive %s is %s\n", args[0], lookup.State)
					return nil
				}
				a := lookup.Archive
				fmt.Fprintf(cmd.OutOrStdout(), "archive %s: %d athletes, %d events, frozen=%t, updated %s\n",
					a.Meta.Period, len(a.Records), len(a.Processed), a.Meta.Frozen, a.Meta.UpdatedAt.Format(time.RFC3339))
				return nil
			},
		},
	)
	return cmd
}
