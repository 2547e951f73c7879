package sieve

import (
	"context"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/stream"
)

// Generate starts a unit writing low, low+1, ..., high-1 to a fresh stream
// and closing it. It returns the read end without waiting. The caller owns
// both the stream's read end and the unit.
func Generate(ctx context.Context, low, high int64, opts ...Option) (stream.Reader, *Unit, error) {
	return generate(ctx, low, high, resolveOptions(opts))
}

func generate(ctx context.Context, low, high int64, o *Options) (stream.Reader, *Unit, error) {
	s, err := o.Streams()
	if err != nil {
		return nil, nil, exhausted("stream", err)
	}
	unit := spawn("generator", o.Observer, func() (err error) {
		defer func() {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		for v := low; v < high; v++ {
			if err := s.Write(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
	return s, unit, nil
}

// exhausted maps a creation failure to RESOURCE_EXHAUSTED unless it already
// carries that code.
func exhausted(resource string, err error) error {
	if errors.IsResourceExhausted(err) {
		return err
	}
	return errors.ResourceExhausted(resource, err)
}
