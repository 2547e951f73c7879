// Package pipeline provides composable, pull-based data pipeline operators.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain, or ForEach. Each stage pulls from the previous stage on demand,
// so a slow consumer slows the producer without explicit flow control.
//
// # Operators
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value (logging, metrics)
//   - Take: stop after n values and close the source
//
// # Usage
//
//	primes := sieve.Primes(2, 1000)
//	first := pipeline.Take(primes, 10)
//	results, err := pipeline.Collect(ctx, first)
//
// Collect and Drain always close the iterator they pull from and return its
// Close error joined with their own.
package pipeline
