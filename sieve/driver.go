package sieve

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/pipeline"
	"github.com/kbukum/primesieve/stream"
)

const tracerName = "github.com/kbukum/primesieve/sieve"

// Summary describes a finished run.
type Summary struct {
	RunID   string        `json:"run_id"`
	Low     int64         `json:"low"`
	High    int64         `json:"high"`
	Primes  int           `json:"primes"`
	Stages  []StageInfo   `json:"stages"`
	Elapsed time.Duration `json:"elapsed"`
	// Stopped is true when the run was torn down before the generator's
	// end-of-stream reached the head of the chain.
	Stopped bool `json:"stopped"`
}

// Driver grows the chain of stages and reports the base of each new stage.
// It owns the generator, every stage and the stream at the head of the
// chain. Callers must Close it on every path.
type Driver struct {
	low, high int64
	opts      *Options
	log       *logger.Logger

	mu        sync.Mutex
	started   bool
	closed    bool
	exhausted bool
	err       error
	closeErr  error

	// closing and abort let Close stop a Next blocked in another goroutine
	// before it waits for mu.
	closing atomic.Bool
	abort   atomic.Pointer[context.CancelFunc]

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span
	begin  time.Time

	head   stream.Reader
	gen    *Unit
	stages []*Stage
	primes int
	limit  int64
}

var _ pipeline.Iterator[int64] = (*Driver)(nil)

// NewDriver returns a driver over [low, high). Nothing runs until the first
// Next.
func NewDriver(low, high int64, opts ...Option) *Driver {
	o := resolveOptions(opts)
	return &Driver{
		low:  low,
		high: high,
		opts: o,
		log: o.Logger.WithFields(map[string]interface{}{
			logger.FieldRunID: o.RunID,
		}),
	}
}

// RunID returns the id of the run.
func (d *Driver) RunID() string { return d.opts.RunID }

// candidates returns the generator range. Candidates start at 2 so that the
// first value every stage reads is prime; bases below low are not reported.
func (d *Driver) candidates() (int64, int64) {
	if d.low >= d.high {
		return d.low, d.low
	}
	return 2, max(d.high, 2)
}

// Next returns the next prime in [low, high). It returns ok=false once the
// chain is exhausted. Canceling ctx while Next blocks stops the whole run.
func (d *Driver) Next(ctx context.Context) (int64, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, false, errors.StreamClosed("next")
	}
	if d.exhausted || d.err != nil {
		return 0, false, d.err
	}
	if !d.started {
		if err := d.start(ctx); err != nil {
			d.err = err
			return 0, false, err
		}
	}

	stop := context.AfterFunc(ctx, d.cancel)
	defer stop()
	if err := ctx.Err(); err != nil {
		d.err = errors.Canceled("next", err)
		return 0, false, d.err
	}

	for {
		st, err := d.advance()
		if err != nil {
			if ctx.Err() != nil && !errors.IsCanceled(err) {
				err = stderrors.Join(errors.Canceled("next", ctx.Err()), err)
			}
			d.err = err
			return 0, false, err
		}
		if st == nil {
			// A canceled chain drains to end-of-stream; that is not exhaustion.
			if err := d.ctx.Err(); err != nil {
				d.err = errors.Canceled("next", context.Cause(d.ctx))
				return 0, false, d.err
			}
			d.exhausted = true
			return 0, false, nil
		}
		if st.Base >= d.low {
			d.primes++
			return st.Base, true, nil
		}
	}
}

func (d *Driver) start(ctx context.Context) error {
	d.started = true
	d.begin = time.Now()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runCtx, d.span = otel.Tracer(tracerName).Start(runCtx, "sieve.run",
		trace.WithAttributes(
			attribute.String("sieve.run_id", d.opts.RunID),
			attribute.Int64("sieve.low", d.low),
			attribute.Int64("sieve.high", d.high),
		))
	d.ctx, d.cancel = runCtx, cancel
	d.abort.Store(&cancel)
	if d.closing.Load() {
		cancel()
	}

	genLow, genHigh := d.candidates()
	d.limit = genHigh - genLow
	head, gen, err := generate(d.ctx, genLow, genHigh, d.opts)
	if err != nil {
		return err
	}
	d.head, d.gen = head, gen
	d.log.Debug("generator started", logger.Fields(logger.FieldLow, genLow, logger.FieldHigh, genHigh))
	return nil
}

// advance creates the next stage over the head stream. It returns nil when
// the head stream is exhausted.
func (d *Driver) advance() (*Stage, error) {
	index := len(d.stages) + 1
	st, ok, err := createStage(d.ctx, index, d.head, d.opts)
	if err != nil || !ok {
		d.head = nil
		return nil, err
	}
	d.stages = append(d.stages, st)
	d.head = st.Output()
	d.span.AddEvent("stage", trace.WithAttributes(
		attribute.Int("sieve.stage", index),
		attribute.Int64("sieve.base", st.Base),
	))

	if int64(len(d.stages)) > d.limit {
		return nil, errors.Invariant(fmt.Sprintf("created %d stages for %d candidates", len(d.stages), d.limit)).
			WithDetail("stages", len(d.stages))
	}
	if d.opts.MaxStages > 0 && len(d.stages) > d.opts.MaxStages {
		return nil, errors.ResourceExhausted("stage", nil).
			WithDetail("limit", d.opts.MaxStages)
	}
	return st, nil
}

// Close stops the run and reaps every unit. It returns the errors of all
// units joined. CANCELED errors are dropped when the run was stopped early
// or when another unit failed. Close is idempotent and may be called while
// another goroutine is blocked in Next; that Next returns CANCELED.
func (d *Driver) Close() error {
	d.closing.Store(true)
	if cancel := d.abort.Load(); cancel != nil {
		(*cancel)()
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return d.closeErr
	}
	d.closed = true
	if !d.started {
		return nil
	}

	stopped := !d.exhausted
	d.cancel()
	if d.head != nil {
		_ = d.head.Release()
		d.head = nil
	}

	var errs []error
	if d.gen != nil {
		if err := d.gen.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("generator: %w", err))
		}
	}
	for _, st := range d.stages {
		if err := st.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("stage %d (base %d): %w", st.Index, st.Base, err))
		}
	}
	// Cancellation caused by the teardown itself, or by a failure elsewhere
	// in the chain, is not reported.
	if kept := dropCanceled(errs); stopped || len(kept) > 0 {
		errs = kept
	}
	d.closeErr = stderrors.Join(errs...)

	summary := d.summary(stopped)
	runErr := stderrors.Join(d.err, d.closeErr)
	d.finishSpan(summary, runErr)
	d.opts.Observer.RunFinished(d.ctx, summary, runErr)
	return d.closeErr
}

// Summary returns a snapshot of the run. After Close it is final.
func (d *Driver) Summary() *Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary(!d.exhausted)
}

func (d *Driver) summary(stopped bool) *Summary {
	s := &Summary{
		RunID:   d.opts.RunID,
		Low:     d.low,
		High:    d.high,
		Primes:  d.primes,
		Stages:  make([]StageInfo, 0, len(d.stages)),
		Stopped: stopped && d.started,
	}
	if d.started {
		s.Elapsed = time.Since(d.begin)
	}
	for _, st := range d.stages {
		s.Stages = append(s.Stages, st.Info())
	}
	return s
}

func (d *Driver) finishSpan(s *Summary, err error) {
	d.span.SetAttributes(
		attribute.Int("sieve.primes", s.Primes),
		attribute.Int("sieve.stages", len(s.Stages)),
		attribute.Bool("sieve.stopped", s.Stopped),
	)
	if err != nil {
		d.span.RecordError(err)
		d.span.SetStatus(codes.Error, err.Error())
	}
	d.span.End()
}

func dropCanceled(errs []error) []error {
	var kept []error
	for _, err := range errs {
		if !errors.IsCanceled(err) {
			kept = append(kept, err)
		}
	}
	return kept
}
