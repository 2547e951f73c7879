package resilience

import (
	"testing"
	"time"

	"github.com/kbukum/primesieve/errors"
)

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "http", Rate: 1, Burst: 3})
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d within burst was rejected", i)
		}
	}
	if rl.Allow() {
		t.Error("request beyond burst should be rejected")
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "http", Rate: 10, Burst: 1})
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	if !rl.Allow() {
		t.Fatal("first request should pass")
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}
	now = now.Add(150 * time.Millisecond)
	if !rl.Allow() {
		t.Error("bucket should refill after 100ms at 10 rps")
	}
}

func TestRateLimiter_RefillCapsAtBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "http", Rate: 100, Burst: 2})
	now := time.Now()
	rl.now = func() time.Time { return now }
	now = now.Add(time.Hour)
	if got := rl.Tokens(); got != 2 {
		t.Errorf("expected tokens capped at burst 2, got %v", got)
	}
}

func TestRateLimiter_Execute(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "http", Rate: 1, Burst: 1})
	if err := rl.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	err := rl.Execute(func() error {
		t.Error("should not run")
		return nil
	})
	if !errors.HasCode(err, errors.ErrCodeRateLimited) {
		t.Errorf("expected RATE_LIMITED, got %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.Rate() != 10 || rl.Burst() != 10 {
		t.Errorf("unexpected defaults rate=%v burst=%d", rl.Rate(), rl.Burst())
	}
	if !rl.AllowN(10) || rl.AllowN(1) {
		t.Error("expected exactly burst tokens")
	}
}
