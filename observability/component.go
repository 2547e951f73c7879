package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/primesieve/component"
)

const instrumentationName = "github.com/kbukum/primesieve"

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// Telemetry owns the tracer and meter providers of a binary and the
// instruments built on them.
type Telemetry struct {
	config      Config
	service     string
	version     string
	environment string
	writer      io.Writer

	metrics *Metrics
	sieve   *SieveMetrics

	mu sync.RWMutex
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewTelemetry returns a telemetry component for a service. The request
// and sieve instruments are created right away on the global meter, which
// forwards them to the provider installed by Start, so they can be wired
// into handlers before any component runs.
func NewTelemetry(cfg Config, service, version, environment string) (*Telemetry, error) {
	meter := Meter(instrumentationName)
	metrics, err := NewMetrics(meter)
	if err != nil {
		return nil, err
	}
	sieveMetrics, err := NewSieveMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &Telemetry{
		config:      cfg,
		service:     service,
		version:     version,
		environment: environment,
		metrics:     metrics,
		sieve:       sieveMetrics,
	}, nil
}

// WithWriter redirects stdout exports to w.
func (t *Telemetry) WithWriter(w io.Writer) *Telemetry {
	t.writer = w
	return t
}

// Name returns the component name.
func (t *Telemetry) Name() string { return "telemetry" }

// Start installs the global tracer and meter providers.
func (t *Telemetry) Start(ctx context.Context) error {
	tcfg := t.config.Tracer(t.service, t.version, t.environment)
	tcfg.Writer = t.writer
	tp, err := InitTracer(ctx, tcfg)
	if err != nil {
		return err
	}

	mcfg := t.config.Meter(t.service, t.version, t.environment)
	mp, err := InitMeter(ctx, &mcfg)
	if err != nil {
		return stderrors.Join(err, tp.Shutdown(ctx))
	}

	t.mu.Lock()
	t.tp, t.mp = tp, mp
	t.mu.Unlock()
	return nil
}

// Stop flushes and shuts down both providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	tp, mp := t.tp, t.mp
	t.tp, t.mp = nil, nil
	t.mu.Unlock()

	var errs []error
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

// Health reports whether the providers are installed.
func (t *Telemetry) Health(context.Context) component.Health {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tp == nil {
		return component.Health{Name: t.Name(), Status: component.StatusUnhealthy, Message: "providers not running"}
	}
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

// Describe returns the startup summary line.
func (t *Telemetry) Describe() component.Description {
	details := "exporter=" + t.config.Exporter
	if t.config.Exporter == ExporterOTLP {
		details += " endpoint=" + t.config.Endpoint
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}

// Metrics returns the request instruments.
func (t *Telemetry) Metrics() *Metrics { return t.metrics }

// SieveMetrics returns the run observer.
func (t *Telemetry) SieveMetrics() *SieveMetrics { return t.sieve }
