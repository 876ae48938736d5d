package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ivan-cunha/aspic-format/internal/compression"
	"github.com/ivan-cunha/aspic-format/internal/metrics"
)

const (
	DefaultRowGroupSize = 100000
	DefaultParallelism  = 4
)

// Options configure writers and readers. Readers must use the codec the
// file was written with.
type Options struct {
	RowGroupSize int
	Codec        compression.Codec
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Parallelism  int
}

type Option func(*Options)

func WithRowGroupSize(n int) Option {
	return func(o *Options) { o.RowGroupSize = n }
}

func WithCodec(c compression.Codec) Option {
	return func(o *Options) { o.Codec = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithParallelism bounds how many row groups Scan decodes at once.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

func buildOptions(opts []Option) (Options, error) {
	o := Options{
		RowGroupSize: DefaultRowGroupSize,
		Parallelism:  DefaultParallelism,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RowGroupSize <= 0 {
		return o, fmt.Errorf("%w: row group size %d", ErrInvalidOption, o.RowGroupSize)
	}
	if o.Parallelism <= 0 {
		return o, fmt.Errorf("%w: parallelism %d", ErrInvalidOption, o.Parallelism)
	}
	if o.Codec == nil {
		o.Codec = compression.Default()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, nil
}
