// Package config defines process configuration and its loading hooks.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Every field carries a koanf tag matching its file/env key.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// PageSize is the number of events requested per scanner page.
	PageSize int `koanf:"page_size" validate:"min=1,max=5000"`

	// FetchConcurrency bounds concurrent result document fetches.
	FetchConcurrency int `koanf:"fetch_concurrency" validate:"min=1,max=256"`

	// MaxBatchOps is the hard operation limit for one atomic commit.
	MaxBatchOps int `koanf:"max_batch_ops" validate:"min=1"`

	// ProgressBuffer sizes the non-blocking progress dispatcher.
	ProgressBuffer int `koanf:"progress_buffer" validate:"min=1"`

	// DatabaseURL is the Postgres DSN for profiles and the ledger.
	// When empty an in-memory store is used.
	DatabaseURL string `koanf:"database_url"`

	// ResultStoreURL is the base URL of the event result store.
	ResultStoreURL string `koanf:"result_store_url" validate:"omitempty,url"`

	// ResultStoreFixture is a JSON file served as the result store when no URL is set.
	ResultStoreFixture string `koanf:"result_store_fixture"`

	// ResultStoreRPS rate limits calls to the result store.
	ResultStoreRPS float64 `koanf:"result_store_rps" validate:"gte=0"`

	// ResultStoreTimeoutMS bounds a single HTTP call to the result store.
	ResultStoreTimeoutMS int `koanf:"result_store_timeout_ms" validate:"min=1"`

	// ResultStoreRetries is the number of retries after a failed call.
	ResultStoreRetries int `koanf:"result_store_retries" validate:"min=0,max=10"`

	// ArchiveDir holds the badger archive database. Empty means in-memory.
	ArchiveDir string `koanf:"archive_dir"`

	// HistoryPeriod and CurrentPeriod name the frozen and live archives.
	HistoryPeriod string `koanf:"history_period" validate:"required"`
	CurrentPeriod string `koanf:"current_period" validate:"required,nefield=HistoryPeriod"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		PageSize:             500,
		FetchConcurrency:     8,
		MaxBatchOps:          500,
		ProgressBuffer:       64,
		ResultStoreRPS:       20,
		ResultStoreTimeoutMS: 10_000,
		ResultStoreRetries:   2,
		HistoryPeriod:        "history",
		CurrentPeriod:        "current",
	}
}

// ResultStoreTimeout returns the per-call timeout as a duration.
func (c *Config) ResultStoreTimeout() time.Duration {
	return time.Duration(c.ResultStoreTimeoutMS) * time.Millisecond
}
