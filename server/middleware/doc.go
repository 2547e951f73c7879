// Package middleware holds the gin middleware of the primes HTTP surface.
package middleware
