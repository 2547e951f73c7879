package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creasty/defaults"

	"github.com/kbukum/primesieve/component"
	"github.com/kbukum/primesieve/errors"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		t.Fatal(err)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t)
	want := []int64{2, 3, 5, 7}
	if !c.Set(2, 10, want) {
		t.Fatal("set rejected")
	}
	c.Wait()

	got, ok := c.Get(2, 10)
	if !ok || !slices.Equal(got, want) {
		t.Fatalf("expected %v, got (%v, %v)", want, got, ok)
	}
	if _, ok := c.Get(2, 11); ok {
		t.Error("different range must miss")
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := newTestCache(t)
	in := []int64{2, 3}
	c.Set(2, 4, in)
	c.Wait()
	in[0] = 99

	got, _ := c.Get(2, 4)
	got[1] = 42
	again, _ := c.Get(2, 4)
	if !slices.Equal(again, []int64{2, 3}) {
		t.Errorf("cached value was aliased: %v", again)
	}
}

func TestCache_EmptyResult(t *testing.T) {
	c := newTestCache(t)
	c.Set(10, 10, nil)
	c.Wait()
	got, ok := c.Get(10, 10)
	if !ok || len(got) != 0 {
		t.Errorf("expected cached empty result, got (%v, %v)", got, ok)
	}
}

func TestCache_GetOrCompute(t *testing.T) {
	c := newTestCache(t)
	calls := 0
	compute := func(context.Context) ([]int64, error) {
		calls++
		return []int64{11, 13}, nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), 10, 15, compute)
	if err != nil || hit || !slices.Equal(got, []int64{11, 13}) {
		t.Fatalf("unexpected first result (%v, %v, %v)", got, hit, err)
	}
	c.Wait()
	got, hit, err = c.GetOrCompute(context.Background(), 10, 15, compute)
	if err != nil || !hit || calls != 1 {
		t.Fatalf("expected hit without compute, got (%v, %v, %v) calls=%d", got, hit, err, calls)
	}

	stats := c.Stats()
	if stats.Hits < 1 || stats.Misses < 1 {
		t.Errorf("expected hit and miss recorded, got %+v", stats)
	}
}

func TestCache_GetOrComputeSharesConcurrentMisses(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) ([]int64, error) {
		calls.Add(1)
		<-release
		return []int64{2, 3, 5, 7}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]int64, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = c.GetOrCompute(context.Background(), 2, 10, compute)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected one compute for %d concurrent misses, got %d", callers, n)
	}
	for i := range callers {
		if errs[i] != nil || !slices.Equal(results[i], []int64{2, 3, 5, 7}) {
			t.Errorf("caller %d: got (%v, %v)", i, results[i], errs[i])
		}
	}
	results[0][0] = 99
	if results[1][0] != 2 {
		t.Error("callers must not share the result slice")
	}
}

func TestCache_GetOrComputeWaiterCanceled(t *testing.T) {
	c := newTestCache(t)
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	go func() {
		_, _, _ = c.GetOrCompute(context.Background(), 2, 36, func(context.Context) ([]int64, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.GetOrCompute(ctx, 2, 36, func(context.Context) ([]int64, error) {
		t.Error("second caller must join the running compute")
		return nil, nil
	})
	if !errors.IsCanceled(err) {
		t.Errorf("expected CANCELED, got %v", err)
	}
}

func TestCache_ComputeErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	_, _, err := c.GetOrCompute(context.Background(), 2, 36, func(context.Context) ([]int64, error) {
		return nil, fmt.Errorf("stage 3: torn record")
	})
	if err == nil {
		t.Fatal("expected compute error")
	}
	c.Wait()
	if _, ok := c.Get(2, 36); ok {
		t.Error("failed result must not be cached")
	}
}

func TestCache_TTL(t *testing.T) {
	var cfg Config
	_ = defaults.Set(&cfg)
	cfg.TTL = 10 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.Set(2, 10, []int64{2, 3, 5, 7})
	c.Wait()
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(2, 10); ok {
		t.Error("expected entry to expire")
	}
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t)
	c.Set(2, 10, []int64{2, 3, 5, 7})
	c.Wait()
	c.Clear()
	if _, ok := c.Get(2, 10); ok {
		t.Error("expected empty cache after Clear")
	}
}

func TestConfig_Validate(t *testing.T) {
	var cfg Config
	_ = defaults.Set(&cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.MaxCost = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max_cost")
	}
	if _, err := New(Config{}); err == nil {
		t.Error("expected ristretto to reject a zero config")
	}
}

func TestComponent(t *testing.T) {
	var cfg Config
	_ = defaults.Set(&cfg)
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cc := NewComponent(c)
	ctx := context.Background()
	if err := cc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := cc.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", h)
	}
	if d := cc.Describe(); d.Type != "cache" {
		t.Errorf("unexpected description %+v", d)
	}
	_ = cc.Stop(ctx)
	_ = cc.Stop(ctx)
	if h := cc.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after stop, got %+v", h)
	}
}
