// Package errors provides the structured error type shared by the sieve,
// its stream transports and the HTTP surface.
package errors
