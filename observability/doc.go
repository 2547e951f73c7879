// Package observability provides OpenTelemetry tracing and metrics for the
// sieve and its HTTP surface.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, cfg.Telemetry.Tracer("primes", version, env))
//	defer tp.Shutdown(ctx)
//
// Every run records a "sieve.run" span with one event per stage.
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	sm, err := observability.NewSieveMetrics(observability.Meter("primes"))
//	sieve.Run(ctx, cfg, sink, sieve.WithObserver(sm))
//
// Health Checks:
//
//	health := observability.NewServiceHealth("primes", "1.0.0")
//	health.AddComponent(checker.CheckHealth(ctx))
package observability
