package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/sieve"
)

// SieveMetrics records run and stage metrics. It is a sieve.Observer.
type SieveMetrics struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
	primes      metric.Int64Counter
	stages      metric.Int64Counter
	forwarded   metric.Int64Counter
	dropped     metric.Int64Counter
	unitsActive metric.Int64UpDownCounter
}

var _ sieve.Observer = (*SieveMetrics)(nil)

// NewSieveMetrics creates the sieve instruments on the given meter.
func NewSieveMetrics(meter metric.Meter) (*SieveMetrics, error) {
	m := &SieveMetrics{}
	var err error
	if m.runs, err = meter.Int64Counter("sieve.runs",
		metric.WithDescription("Finished runs by status")); err != nil {
		return nil, fmt.Errorf("creating sieve.runs counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("sieve.run.duration",
		metric.WithDescription("Duration of runs in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating sieve.run.duration histogram: %w", err)
	}
	if m.primes, err = meter.Int64Counter("sieve.primes",
		metric.WithDescription("Primes reported")); err != nil {
		return nil, fmt.Errorf("creating sieve.primes counter: %w", err)
	}
	if m.stages, err = meter.Int64Counter("sieve.stages",
		metric.WithDescription("Stages created")); err != nil {
		return nil, fmt.Errorf("creating sieve.stages counter: %w", err)
	}
	if m.forwarded, err = meter.Int64Counter("sieve.values.forwarded",
		metric.WithDescription("Values forwarded by stages")); err != nil {
		return nil, fmt.Errorf("creating sieve.values.forwarded counter: %w", err)
	}
	if m.dropped, err = meter.Int64Counter("sieve.values.dropped",
		metric.WithDescription("Values dropped by stages")); err != nil {
		return nil, fmt.Errorf("creating sieve.values.dropped counter: %w", err)
	}
	if m.unitsActive, err = meter.Int64UpDownCounter("sieve.units.active",
		metric.WithDescription("Execution units spawned and not yet reaped")); err != nil {
		return nil, fmt.Errorf("creating sieve.units.active gauge: %w", err)
	}
	return m, nil
}

func (m *SieveMetrics) StageCreated(ctx context.Context, _ sieve.StageInfo) {
	m.stages.Add(ctx, 1)
}

func (m *SieveMetrics) StageFinished(ctx context.Context, info sieve.StageInfo, _ error) {
	m.forwarded.Add(ctx, info.Forwarded)
	m.dropped.Add(ctx, info.Dropped)
}

func (m *SieveMetrics) UnitSpawned(string) {
	m.unitsActive.Add(context.Background(), 1)
}

func (m *SieveMetrics) UnitReaped(string, error) {
	m.unitsActive.Add(context.Background(), -1)
}

func (m *SieveMetrics) RunFinished(ctx context.Context, s *sieve.Summary, err error) {
	status := runStatus(s, err)
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status)))
	m.runDuration.Record(ctx, s.Elapsed.Seconds(), metric.WithAttributes(attribute.String(AttrStatus, status)))
	m.primes.Add(ctx, int64(s.Primes))
}

// runStatus is "ok", "stopped" or the error code of a failed run.
func runStatus(s *sieve.Summary, err error) string {
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return string(appErr.Code)
		}
		return string(errors.ErrCodeInternal)
	}
	if s.Stopped {
		return "stopped"
	}
	return "ok"
}
