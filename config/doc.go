// Package config loads binary configuration from a YAML file, a .env file
// and the environment.
//
// Viper reads the first config.yml found in the standard locations
// (./cmd/<name>/config.yml, ./config/config.yml, ./config.yml, ...) or the
// file given with WithConfigFile. Environment variables override file
// values: with WithEnvPrefix("PRIMES"), PRIMES_SIEVE_HIGH sets sieve.high.
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("primes", &cfg, config.WithEnvPrefix("PRIMES"))
//
// Configs implementing Defaulter and Validator are defaulted and validated
// after decoding.
package config
