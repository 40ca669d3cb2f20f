package dedupe

type options struct {
	capacity int
	seed     []string
}

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*options)

// WithCapacity pre-sizes the set.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithSeed records ids up front, e.g. the current ledger contents.
func WithSeed(ids ...string) Option {
	return func(o *options) {
		o.seed = append(o.seed, ids...)
	}
}
