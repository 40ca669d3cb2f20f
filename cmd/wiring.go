package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ringside/internal/adapters/archivestore"
	"github.com/okian/ringside/internal/adapters/postgres"
	"github.com/okian/ringside/internal/adapters/repository"
	"github.com/okian/ringside/internal/adapters/resultstore"
	service "github.com/okian/ringside/internal/app"
	"github.com/okian/ringside/internal/config"
	"github.com/okian/ringside/internal/domain/scan"
	"github.com/okian/ringside/pkg/logger"
)

// ErrNoResultStore is returned when neither a URL nor a fixture is configured.
var ErrNoResultStore = errors.New("no result store configured: set result_store_url or result_store_fixture")

// pipeline is the fully wired service with everything it must close.
type pipeline struct {
	svc      *service.Service
	store    repository.Store
	archives *archivestore.Store
}

func openPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	log := logger.Get()

	results, err := openResultStore(cfg)
	if err != nil {
		return nil, err
	}

	var store repository.Store
	if cfg.DatabaseURL != "" {
		store, err = postgres.Open(ctx, cfg.DatabaseURL, postgres.WithLogger(log.Named("postgres")))
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn(ctx, "database_url not set; profiles are kept in memory")
		store = repository.NewMemoryStore()
	}

	if cfg.ArchiveDir == "" {
		log.Warn(ctx, "archive_dir not set; archives are kept in memory and a later merge will not see this run")
	}
	archives, err := archivestore.Open(cfg.ArchiveDir, archivestore.WithLogger(log.Named("archive")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := service.New(results, store, archives,
		service.WithLogger(log.Named("service")),
		service.WithPageSize(cfg.PageSize),
		service.WithFetchConcurrency(cfg.FetchConcurrency),
		service.WithMaxBatchOps(cfg.MaxBatchOps),
		service.WithProgressBuffer(cfg.ProgressBuffer),
		service.WithPeriods(cfg.HistoryPeriod, cfg.CurrentPeriod),
	)
	return &pipeline{svc: svc, store: store, archives: archives}, nil
}

func openResultStore(cfg *config.Config) (scan.ResultStore, error) {
	switch {
	case cfg.ResultStoreURL != "":
		return resultstore.NewClient(cfg.ResultStoreURL,
			resultstore.WithRateLimit(cfg.ResultStoreRPS),
			resultstore.WithRetries(cfg.ResultStoreRetries),
			resultstore.WithTimeout(cfg.ResultStoreTimeout()),
			resultstore.WithBackoff(250*time.Millisecond),
			resultstore.WithLogger(logger.Named("resultstore")),
		), nil
	case cfg.ResultStoreFixture != "":
		mem, err := resultstore.LoadFixture(cfg.ResultStoreFixture)
		if err != nil {
			return nil, err
		}
		return mem, nil
	default:
		return nil, ErrNoResultStore
	}
}

// Close stops background runs before closing the stores they use.
func (p *pipeline) Close() error {
	p.svc.Stop()
	return errors.Join(p.archives.Close(), p.store.Close())
}

func describe(s service.RunSummary) string {
	return fmt.Sprintf("run %s (%s): %s", s.RunID, s.Mode, s.Message)
}
