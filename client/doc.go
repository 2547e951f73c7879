// Package client is the HTTP client of the primes service. Requests go
// through resty and are guarded by a circuit breaker and a retry policy
// from the resilience package. Server error bodies are decoded back into
// *errors.AppError so callers can branch on codes exactly as in-process
// callers do.
package client
