// Package bootstrap drives the lifecycle of the primes binaries: typed
// config, logger initialization, component start and stop, lifecycle hooks
// and signal handling for both long-running servers and finite runs.
package bootstrap
