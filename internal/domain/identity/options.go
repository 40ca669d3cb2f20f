package identity

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/okian/ringside/pkg/logger"
)

var defaultRand io.Reader = rand.Reader //nolint:gochecknoglobals // overridable entropy source

func randInt(r io.Reader, max *big.Int) (int64, error) {
	n, err := rand.Int(r, max)
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithRand sets the entropy source for fallback ids.
func WithRand(r io.Reader) Option {
	return func(res *Resolver) {
		if r != nil {
			res.rand = r
		}
	}
}

// WithLogger sets the logger used to surface fallback ids.
func WithLogger(l logger.Logger) Option {
	return func(res *Resolver) {
		if l != nil {
			res.log = l
		}
	}
}
