package sieve

import (
	"github.com/google/uuid"

	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/stream"
)

// DefaultBuffer is the channel capacity used when no stream factory is given.
const DefaultBuffer = 16

// Options configures a run.
type Options struct {
	// Streams creates every stream of the run.
	Streams stream.Factory
	// Observer receives lifecycle notifications.
	Observer Observer
	// Logger receives stage and run logs.
	Logger *logger.Logger
	// MaxStages bounds the number of stages a run may create. Zero means
	// no bound beyond the size of the candidate range.
	MaxStages int
	// RunID identifies the run in logs, spans and summaries.
	RunID string
}

// Option is a functional option for a run.
type Option func(*Options)

// WithStreams sets the stream factory.
func WithStreams(f stream.Factory) Option {
	return func(o *Options) { o.Streams = f }
}

// WithObserver adds an observer. Repeated calls add more observers.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if o.Observer == nil {
			o.Observer = obs
			return
		}
		o.Observer = Observers(o.Observer, obs)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMaxStages bounds the number of stages.
func WithMaxStages(n int) Option {
	return func(o *Options) { o.MaxStages = n }
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *Options) { o.RunID = id }
}

func resolveOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Streams == nil {
		o.Streams = stream.ChanFactory(DefaultBuffer)
	}
	if o.Logger == nil {
		o.Logger = logger.WithComponent("sieve")
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	o.Observer = Observers(&logObserver{log: o.Logger}, o.Observer)
	return o
}
