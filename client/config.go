package client

import (
	"time"

	"github.com/creasty/defaults"

	"github.com/kbukum/primesieve/resilience"
	"github.com/kbukum/primesieve/validation"
)

// Config configures the client.
type Config struct {
	// BaseURL is the address of a primes server.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" default:"http://localhost:8080" validate:"required,url"`
	// Timeout bounds a single request, streams included.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout" default:"30s" validate:"gt=0"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers" json:"headers,omitempty"`

	Retry          resilience.RetryConfig          `yaml:"retry" mapstructure:"retry" json:"retry"`
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker" json:"circuit_breaker"`
}

// ApplyDefaults fills zero fields from the default tags.
func (c *Config) ApplyDefaults() {
	_ = defaults.Set(c)
	if c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = "primes-server"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
