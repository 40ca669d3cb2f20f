package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	service "github.com/okian/ringside/internal/app"
	"github.com/okian/ringside/internal/app/progress"
	"github.com/okian/ringside/internal/config"
	"github.com/okian/ringside/pkg/logger"
)

func newRunCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one aggregation in the foreground",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")

	runMode := func(mode string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, argv []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := flags.setup(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			eventID := ""
			if len(argv) > 0 {
				eventID = argv[0]
			}
			sink := func(msg string) { fmt.Fprintln(cmd.ErrOrStderr(), msg) }
			summary, err := runOnce(ctx, cfg, mode, eventID, sink)
			if asJSON {
				out, mErr := json.MarshalIndent(summary, "", "  ")
				if mErr != nil {
					return mErr
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), describe(summary))
			}
			return err
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "full",
			Short: "Aggregate every event not yet processed",
			Args:  cobra.NoArgs,
			RunE:  runMode(service.ModeFull),
		},
		&cobra.Command{
			Use:   "merge",
			Short: "Merge the current archive with the historical archive",
			Args:  cobra.NoArgs,
			RunE:  runMode(service.ModeMerge),
		},
		&cobra.Command{
			Use:   "event <event-id>",
			Short: "Aggregate a single event",
			Args:  cobra.ExactArgs(1),
			RunE:  runMode(service.ModeEvent),
		},
	)
	return cmd
}

func runOnce(ctx context.Context, cfg *config.Config, mode, eventID string, sink progress.Sink) (service.RunSummary, error) {
	p, err := openPipeline(ctx, cfg)
	if err != nil {
		return service.RunSummary{Mode: mode, Message: err.Error()}, err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Get().Error(ctx, "close pipeline", logger.Error(err))
		}
	}()

	switch mode {
	case service.ModeFull:
		return p.svc.RunFullAggregation(ctx, sink)
	case service.ModeMerge:
		return p.svc.RunMergeCurrentWithHistory(ctx, sink)
	default:
		return p.svc.RunSingleEventMerge(ctx, eventID, sink)
	}
}
