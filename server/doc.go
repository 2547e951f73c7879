// Package server provides the primes HTTP service: a Gin engine served over
// HTTP/1.1 and h2c, the /primes handlers, and lifecycle integration through
// the component package.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - CORS: cross-origin headers and preflight
//   - Observability: server spans and request metrics
//   - RateLimit: token bucket limiting backed by the resilience package
//   - RequestLogger: request logging with duration tracking
//
// # Endpoints
//
//   - /primes: JSON list of the primes of a range
//   - /primes/stream: primes written as they are found, as lines, NDJSON
//     or server-sent events
//   - /health, /alive, /ready: probes
//   - /version: build information
//   - /metrics/runtime: memory and goroutine counters
package server
