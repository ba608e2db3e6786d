package match

import "runtime"

// DefaultMaxRows caps the reference set; only the first DefaultMaxRows rows
// in input order are kept.
const DefaultMaxRows = 1000

type options struct {
	maxRows int
	workers int
}

// Option customises Build.
type Option func(*options)

// WithMaxRows keeps at most n reference rows, first by input order.
// n <= 0 disables the cap.
func WithMaxRows(n int) Option {
	return func(o *options) { o.maxRows = n }
}

// WithWorkers sets the parallelism of BestMatchBatch. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func newOptions(opts []Option) *options {
	o := &options{maxRows: DefaultMaxRows}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}
