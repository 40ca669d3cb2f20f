package scan

import (
	"context"
	"time"

	"github.com/okian/ringside/pkg/logger"
)

// Option applies a configuration option to the Scanner.
type Option func(*Scanner)

// WithPageSize sets the number of events requested per page.
func WithPageSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithConcurrency bounds concurrent result document fetches.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSkip avoids fetching events for which skip returns true.
func WithSkip(skip func(ctx context.Context, eventID string) bool) Option {
	return func(s *Scanner) {
		s.skip = skip
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the draft timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}
