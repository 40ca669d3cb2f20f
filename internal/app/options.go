package service

import (
	"io"
	"time"

	"github.com/okian/ringside/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPageSize sets the events requested per catalog page.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithFetchConcurrency bounds concurrent result document fetches.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithMaxBatchOps sets the operation limit of one atomic commit.
func WithMaxBatchOps(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchOps = n
		}
	}
}

// WithProgressBuffer sets how many progress messages may queue before dropping.
func WithProgressBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.progressBuffer = n
		}
	}
}

// WithProgressGrace bounds how long a finished run waits for its progress
// sink to drain before returning.
func WithProgressGrace(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.progressGrace = d
		}
	}
}

// WithPeriods names the historical and current archives.
func WithPeriods(history, current string) Option {
	return func(s *Service) {
		if history != "" {
			s.historyPeriod = history
		}
		if current != "" {
			s.currentPeriod = current
		}
	}
}

// WithRand sets the entropy source for fallback profile ids.
func WithRand(r io.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.rand = r
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newRunID = next
		}
	}
}

// WithRunHistory sets how many runs and messages per run the tracker keeps.
func WithRunHistory(runs, messages int) Option {
	return func(s *Service) {
		s.tracker = newTracker(runs, messages)
	}
}
