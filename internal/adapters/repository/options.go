package repository

import (
	"time"

	"github.com/okian/ringside/internal/domain/model"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the timestamp source used for updates.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithProfiles seeds the store, e.g. with profiles created by other systems.
func WithProfiles(profiles ...model.CanonicalProfile) Option {
	return func(s *MemoryStore) {
		for _, p := range profiles {
			s.put(p)
		}
	}
}
