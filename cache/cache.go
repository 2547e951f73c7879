// Package cache memoises complete sieve results keyed by their range.
// It wraps a ristretto cache whose cost is the byte size of the stored
// primes, so MaxCost bounds memory rather than entry count.
package cache

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/validation"
)

// Config configures the result cache.
type Config struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled" default:"true"`
	NumCounters int64         `yaml:"num_counters" mapstructure:"num_counters" json:"num_counters" default:"10000" validate:"gte=1"`
	MaxCost     int64         `yaml:"max_cost" mapstructure:"max_cost" json:"max_cost" default:"16777216" validate:"gte=1"`
	BufferItems int64         `yaml:"buffer_items" mapstructure:"buffer_items" json:"buffer_items" default:"64" validate:"gte=1"`
	TTL         time.Duration `yaml:"ttl" mapstructure:"ttl" json:"ttl" default:"10m"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	KeysAdded uint64  `json:"keys_added"`
	CostAdded uint64  `json:"cost_added"`
	Ratio     float64 `json:"ratio"`
}

// Cache stores the primes of [low, high) ranges.
type Cache struct {
	raw    *ristretto.Cache
	config Config
	flight singleflight.Group
}

// New creates a cache from cfg.
func New(cfg Config) (*Cache, error) {
	raw, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxCost,
		BufferItems:        cfg.BufferItems,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, errors.ResourceExhausted("cache", err)
	}
	return &Cache{raw: raw, config: cfg}, nil
}

// Key is the cache key of a range.
func Key(low, high int64) string {
	return fmt.Sprintf("%d:%d", low, high)
}

// Get returns a copy of the cached primes of [low, high).
func (c *Cache) Get(low, high int64) ([]int64, bool) {
	v, ok := c.raw.Get(Key(low, high))
	if !ok {
		return nil, false
	}
	primes, ok := v.([]int64)
	if !ok {
		return nil, false
	}
	return slices.Clone(primes), true
}

// Set stores the primes of [low, high). Only complete results belong here.
// Admission is asynchronous; the returned bool reports whether the value
// was accepted into the write buffer.
func (c *Cache) Set(low, high int64, primes []int64) bool {
	return c.raw.SetWithTTL(Key(low, high), slices.Clone(primes), cost(primes), c.config.TTL)
}

// cost is the byte size of primes, at least 1.
func cost(primes []int64) int64 {
	return int64(8*len(primes)) + 1
}

// GetOrCompute returns the cached primes of [low, high) or computes,
// stores and returns them. The bool reports a cache hit. Concurrent misses
// on one range share a single compute, run with the context of the caller
// that started it; a caller whose own ctx ends stops waiting with CANCELED.
func (c *Cache) GetOrCompute(ctx context.Context, low, high int64, compute func(context.Context) ([]int64, error)) ([]int64, bool, error) {
	if primes, ok := c.Get(low, high); ok {
		return primes, true, nil
	}
	ch := c.flight.DoChan(Key(low, high), func() (any, error) {
		primes, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(low, high, primes)
		return primes, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return slices.Clone(res.Val.([]int64)), false, nil
	case <-ctx.Done():
		return nil, false, errors.Canceled("cache compute", ctx.Err())
	}
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.raw.Wait()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.raw.Clear()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.raw.Close()
}

// Stats returns the hit and admission counters.
func (c *Cache) Stats() Stats {
	m := c.raw.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		CostAdded: m.CostAdded(),
		Ratio:     m.Ratio(),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}
