package server

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"

	"github.com/kbukum/primesieve/resilience"
	"github.com/kbukum/primesieve/server/middleware"
	"github.com/kbukum/primesieve/validation"
)

// Config holds HTTP server configuration.
type Config struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled" default:"true"`
	Host         string        `yaml:"host" mapstructure:"host" json:"host" default:"0.0.0.0"`
	Port         int           `yaml:"port" mapstructure:"port" json:"port" default:"8080" validate:"gte=0,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" default:"15s" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout" default:"60s" validate:"gte=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout" default:"60s" validate:"gte=0"`

	// MaxHigh caps the upper bound a request may ask for.
	MaxHigh int64 `yaml:"max_high" mapstructure:"max_high" json:"max_high" default:"20000" validate:"gte=2"`
	// RunTimeout bounds a single sieve run started by a request.
	RunTimeout time.Duration `yaml:"run_timeout" mapstructure:"run_timeout" json:"run_timeout" default:"30s" validate:"gt=0"`

	CORS      middleware.CORSConfig        `yaml:"cors" mapstructure:"cors" json:"cors"`
	RateLimit resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit" json:"rate_limit"`
	Bulkhead  resilience.BulkheadConfig    `yaml:"bulkhead" mapstructure:"bulkhead" json:"bulkhead"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	_ = defaults.Set(c)
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID}
	}
	if c.Bulkhead.Name == "" {
		c.Bulkhead.Name = "sieve-runs"
	}
	if c.RateLimit.Name == "" {
		c.RateLimit.Name = "http"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Address returns host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
