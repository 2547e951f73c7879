// Package logger provides structured logging for the sieve using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("sieve")
//	log.Info("run finished", logger.Fields("primes", 11, "stages", 11))
package logger
