package batch

import "github.com/okian/ringside/pkg/logger"

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithMaxOps sets the operation limit per chunk.
func WithMaxOps(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.maxOps = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}
