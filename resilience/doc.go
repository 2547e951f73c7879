// Package resilience guards the sieve service and its clients.
//
//   - Bulkhead: bounds concurrent sieve runs, each of which owns one
//     goroutine per stage
//   - RateLimiter: token bucket in front of the HTTP surface
//   - CircuitBreaker: fails fast when a remote sieve service is down
//   - Retry: retries retryable failures with exponential backoff
//
// Rejections are *errors.AppError values so they map onto HTTP statuses
// without translation:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("primes-api"))
//	primes, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() ([]int64, error) {
//	    return resilience.ExecuteBreaker(cb, func() ([]int64, error) {
//	        return fetch(ctx)
//	    })
//	})
package resilience
