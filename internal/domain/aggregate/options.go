package aggregate

import (
	"time"

	"github.com/okian/ringside/pkg/logger"
)

// Option applies a configuration option to the Accumulator.
type Option func(*Accumulator)

// WithLogger sets the logger used for validation gaps.
func WithLogger(l logger.Logger) Option {
	return func(a *Accumulator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Accumulator) {
		if now != nil {
			a.now = now
		}
	}
}
