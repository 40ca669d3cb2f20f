// Package repository defines the canonical profile store and processed-event
// ledger contracts, with an in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/ringside/internal/domain/batch"
	"github.com/okian/ringside/internal/domain/model"
)

// ProfileStore provides read/write access to canonical profiles.
type ProfileStore interface {
	// FindByExternalID returns every profile carrying the external id.
	// More than one is a data integrity problem the caller must surface.
	FindByExternalID(ctx context.Context, externalID string) ([]model.CanonicalProfile, error)
	// FindByID returns model.ErrNotFound when no profile has the id.
	FindByID(ctx context.Context, id string) (model.CanonicalProfile, error)
	// CommitBatch creates and updates profiles in one atomic step.
	CommitBatch(ctx context.Context, creates []model.CanonicalProfile, updates []model.ProfileUpdate) error
}

// Ledger is the append-only record of processed events.
type Ledger interface {
	ListProcessed(ctx context.Context) ([]model.ProcessedEvent, error)
	// AppendProcessed ignores entries whose event id is already ledgered.
	AppendProcessed(ctx context.Context, entries []model.ProcessedEvent) error
}

// Stats is a point-in-time size summary.
type Stats struct {
	Profiles  int `json:"profiles"`
	Processed int `json:"processed_events"`
}

// Store is a profile store and ledger that commits both in one chunk.
type Store interface {
	ProfileStore
	Ledger
	batch.Committer
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
