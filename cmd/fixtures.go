package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/ringside/internal/adapters/resultstore"
	"github.com/okian/ringside/internal/fixtures"
	"github.com/okian/ringside/pkg/logger"
)

func newFixturesCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Generate and serve synthetic result stores",
	}
	cmd.AddCommand(newFixturesGenerateCommand(flags), newFixturesServeCommand(flags))
	return cmd
}

func newFixturesGenerateCommand(flags *globalFlags) *cobra.Command {
	var (
		out   string
		start string
	)
	cfg := fixtures.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a reproducible synthetic result store to a JSON file",
		Long: `Generate writes events, bouts and athletes to a JSON fixture. The same
seed and sizes always produce the same file.

Examples:
  ringside fixtures generate --out fixture.json
  ringside fixtures generate --events 200 --athletes 500 --seed 7 --out big.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := flags.setup(ctx, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if start != "" {
				t, err := time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("%w: start: %w", fixtures.ErrInvalidConfig, err)
				}
				cfg.Start = t
			}

			fx, stats, err := fixtures.Generate(ctx, cfg)
			if err != nil {
				return err
			}
			if err := resultstore.WriteFixture(out, fx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d events (%d with results), %d results, %d athletes\n",
				out, stats.Events, stats.WithResults, stats.Results, stats.Athletes)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "fixture.json", "output file")
	f.StringVar(&start, "start", "", "date of the newest event, YYYY-MM-DD (default today)")
	f.IntVar(&cfg.Events, "events", cfg.Events, "number of events")
	f.IntVar(&cfg.Athletes, "athletes", cfg.Athletes, "roster size")
	f.IntVar(&cfg.BoutsPerEvent, "bouts", cfg.BoutsPerEvent, "bouts per event")
	f.Float64Var(&cfg.MissingRatio, "missing-ratio", cfg.MissingRatio, "share of events without a result document")
	f.Float64Var(&cfg.TournamentRatio, "tournament-ratio", cfg.TournamentRatio, "share of tournament bouts")
	f.Float64Var(&cfg.NoDOBRatio, "no-dob-ratio", cfg.NoDOBRatio, "share of athletes without a date of birth")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	return cmd
}

func newFixturesServeCommand(flags *globalFlags) *cobra.Command {
	var (
		file string
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a fixture over the result store HTTP protocol",
		Long: `Serve exposes a fixture file as a result store so that a pipeline configured
with result_store_url can be exercised end to end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := flags.setup(ctx, cmd.ErrOrStderr()); err != nil {
				return err
			}
			mem, err := resultstore.LoadFixture(file)
			if err != nil {
				return err
			}
			return serveFixture(ctx, addr, resultstore.NewHandler(mem))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fixture.json", "fixture file")
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	return cmd
}

func serveFixture(ctx context.Context, addr string, h http.Handler) error {
	log := logger.Get()
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "serving fixture result store", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
