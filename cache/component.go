package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/primesieve/component"
)

const componentName = "cache"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component manages a Cache's lifecycle.
type Component struct {
	cache   *Cache
	stopped atomic.Bool
}

// NewComponent wraps c.
func NewComponent(c *Cache) *Component {
	return &Component{cache: c}
}

func (cc *Component) Name() string { return componentName }

func (cc *Component) Start(context.Context) error { return nil }

// Stop closes the cache.
func (cc *Component) Stop(context.Context) error {
	if cc.stopped.CompareAndSwap(false, true) {
		cc.cache.Close()
	}
	return nil
}

func (cc *Component) Health(context.Context) component.Health {
	if cc.stopped.Load() {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "cache closed"}
	}
	s := cc.cache.Stats()
	return component.Health{
		Name:    componentName,
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("hits=%d misses=%d", s.Hits, s.Misses),
	}
}

func (cc *Component) Describe() component.Description {
	cfg := cc.cache.Config()
	return component.Description{
		Name:    "Result cache",
		Type:    "cache",
		Details: fmt.Sprintf("max_cost=%d ttl=%s", cfg.MaxCost, cfg.TTL),
	}
}
