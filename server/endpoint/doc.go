// Package endpoint provides the probe and metadata handlers of the primes
// HTTP server.
package endpoint
