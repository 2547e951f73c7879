package sieve

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/stream"
)

// Stage is one filter of the chain. It owns its input stream, the write end
// of its output stream and its forwarding unit.
type Stage struct {
	// Index is the 1-based position of the stage in the chain.
	Index int
	// Base is the first value the stage read. It never changes.
	Base int64

	output    stream.Reader
	unit      *Unit
	forwarded atomic.Int64
	dropped   atomic.Int64
}

// StageInfo is a snapshot of a stage.
type StageInfo struct {
	Index     int   `json:"index"`
	Base      int64 `json:"base"`
	Forwarded int64 `json:"forwarded"`
	Dropped   int64 `json:"dropped"`
}

// CreateStage reads the first value of input. If input is already exhausted
// it releases input and returns ok=false without spawning anything.
// Otherwise the value becomes the stage base, a forwarding unit is started
// and the stage is returned at once. The caller must Wait on the stage and
// consume or release its Output.
func CreateStage(ctx context.Context, index int, input stream.Reader, opts ...Option) (*Stage, bool, error) {
	return createStage(ctx, index, input, resolveOptions(opts))
}

func createStage(ctx context.Context, index int, input stream.Reader, o *Options) (*Stage, bool, error) {
	base, ok, err := input.Read(ctx)
	if err != nil {
		_ = input.Release()
		return nil, false, err
	}
	if !ok {
		_ = input.Release()
		return nil, false, nil
	}
	if base < 2 {
		_ = input.Release()
		return nil, false, errors.Invariant(fmt.Sprintf("stage %d read base %d, want a value >= 2", index, base)).
			WithDetail("base", base)
	}

	out, err := o.Streams()
	if err != nil {
		_ = input.Release()
		return nil, false, exhausted("stream", err)
	}

	st := &Stage{Index: index, Base: base, output: out}
	o.Observer.StageCreated(ctx, st.Info())
	st.unit = spawn(fmt.Sprintf("stage-%d", index), o.Observer, func() error {
		err := st.forward(ctx, input, out)
		o.Observer.StageFinished(ctx, st.Info(), err)
		return err
	})
	return st, true, nil
}

// forward copies every input value not divisible by Base to output. The
// output is closed and the input released on every exit path, so the rest
// of the chain always observes end-of-stream.
func (s *Stage) forward(ctx context.Context, input stream.Reader, output stream.Writer) (err error) {
	defer func() {
		if cerr := output.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if rerr := input.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	for {
		v, ok, err := input.Read(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if v%s.Base == 0 {
			s.dropped.Add(1)
			continue
		}
		if err := output.Write(ctx, v); err != nil {
			return err
		}
		s.forwarded.Add(1)
	}
}

// Output returns the read end of the stage output.
func (s *Stage) Output() stream.Reader { return s.output }

// Wait reaps the forwarding unit and returns its error.
func (s *Stage) Wait() error { return s.unit.Wait() }

// Done is closed when the forwarding unit has terminated.
func (s *Stage) Done() <-chan struct{} { return s.unit.Done() }

// Info returns a snapshot of the stage counters.
func (s *Stage) Info() StageInfo {
	return StageInfo{
		Index:     s.Index,
		Base:      s.Base,
		Forwarded: s.forwarded.Load(),
		Dropped:   s.dropped.Load(),
	}
}
