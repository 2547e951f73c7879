// Package version reports the build version of the primes binary.
package version
