package main

import (
	stderrors "errors"

	"github.com/creasty/defaults"

	"github.com/kbukum/primesieve/cache"
	"github.com/kbukum/primesieve/client"
	"github.com/kbukum/primesieve/config"
	"github.com/kbukum/primesieve/observability"
	"github.com/kbukum/primesieve/server"
	"github.com/kbukum/primesieve/sieve"
	"github.com/kbukum/primesieve/validation"
)

const (
	serviceName = "primes"
	envPrefix   = "PRIMES"
)

// Config is the configuration of the primes binary.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Sieve     sieve.Config         `yaml:"sieve" mapstructure:"sieve"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Cache     cache.Config         `yaml:"cache" mapstructure:"cache"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Client    client.Config        `yaml:"client" mapstructure:"client"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Sieve.ApplyDefaults()
	c.Server.ApplyDefaults()
	_ = defaults.Set(&c.Cache)
	_ = defaults.Set(&c.Telemetry)
	c.Client.ApplyDefaults()
}

// Validate checks every section and reports all failures together.
func (c *Config) Validate() error {
	return stderrors.Join(
		c.ServiceConfig.Validate(),
		c.Sieve.Validate(),
		c.Server.Validate(),
		c.Cache.Validate(),
		validation.Validate(&c.Telemetry),
		c.Client.Validate(),
	)
}

// loadConfig reads the config file, the .env file and PRIMES_* variables.
// An empty path searches the default locations.
func loadConfig(path string) (*Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	opts = append(opts, config.WithEnvPrefix(envPrefix))

	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
