package sieve

import (
	"context"

	"github.com/creasty/defaults"

	"github.com/kbukum/primesieve/pipeline"
	"github.com/kbukum/primesieve/stream"
	"github.com/kbukum/primesieve/validation"
)

// Config selects the range and the stream transport of a run.
type Config struct {
	Low       int64  `yaml:"low" mapstructure:"low" json:"low" default:"2" validate:"gte=0"`
	High      int64  `yaml:"high" mapstructure:"high" json:"high" default:"36" validate:"gte=0"`
	Buffer    int    `yaml:"buffer" mapstructure:"buffer" json:"buffer" default:"16" validate:"gte=0"`
	Transport string `yaml:"transport" mapstructure:"transport" json:"transport" default:"chan" validate:"omitempty,oneof=chan pipe"`
	MaxStages int    `yaml:"max_stages" mapstructure:"max_stages" json:"max_stages" validate:"gte=0"`
	// Limit stops the run after that many primes. Zero means no limit.
	Limit int `yaml:"limit" mapstructure:"limit" json:"limit" validate:"gte=0"`
}

// ApplyDefaults fills zero fields from the default tags. Loaders call it;
// Run does not, so an explicit zero High stays the empty range.
func (c *Config) ApplyDefaults() {
	_ = defaults.Set(c)
}

// Validate checks the config and returns an INVALID_INPUT error on failure.
// High below Low is valid and selects the empty range.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Options returns the run options the config implies.
func (c *Config) Options() ([]Option, error) {
	factory, err := stream.NewFactory(c.Transport, c.Buffer)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithStreams(factory)}
	if c.MaxStages > 0 {
		opts = append(opts, WithMaxStages(c.MaxStages))
	}
	return opts, nil
}

// Sink receives primes in ascending order. A sink error stops the run.
type Sink func(ctx context.Context, prime int64) error

// Run finds the primes of cfg and sends each one to sink. Options given
// here take precedence over those derived from cfg. An empty Transport
// means chan. The returned summary is never nil once cfg is valid.
func Run(ctx context.Context, cfg Config, sink Sink, opts ...Option) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	d := NewDriver(cfg.Low, cfg.High, append(base, opts...)...)
	p := pipeline.From[int64](d)
	if cfg.Limit > 0 {
		p = pipeline.Take(p, cfg.Limit)
	}

	err = pipeline.Drain(p, func(ctx context.Context, v int64) error {
		return sink(ctx, v)
	}).Run(ctx)
	return d.Summary(), err
}

// Primes returns a lazy pipeline over the primes in [low, high). Each
// iteration starts a fresh chain that is torn down when the iterator is
// closed.
func Primes(low, high int64, opts ...Option) *pipeline.Pipeline[int64] {
	return pipeline.FromFunc(func(context.Context) pipeline.Iterator[int64] {
		return NewDriver(low, high, opts...)
	})
}
