package resilience

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
)

func newTestBreaker(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "primes-api",
		MaxFailures: maxFailures,
		Timeout:     timeout,
		Logger:      logger.Nop(),
	})
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := newTestBreaker(3, time.Second)
	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
	called := false
	if err := cb.Execute(func() error { called = true; return nil }); err != nil || !called {
		t.Errorf("expected call to pass, got (%v, %v)", called, err)
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := newTestBreaker(3, time.Second)
	down := errors.Unavailable("primes-api", stderrors.New("connection refused"))

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return down })
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	err := cb.Execute(func() error {
		t.Error("function should not run while open")
		return nil
	})
	if !stderrors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen cause, got %v", err)
	}
	if !errors.IsUnavailable(err) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestCircuitBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	cb := newTestBreaker(2, time.Second)
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return errors.InvalidInput("high", "too large") })
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("caller errors must not trip the breaker: state=%s failures=%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(1, 20*time.Millisecond)
	_ = cb.Execute(func() error { return stderrors.New("eof") })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(1, 20*time.Millisecond)
	_ = cb.Execute(func() error { return stderrors.New("eof") })
	time.Sleep(30 * time.Millisecond)

	_ = cb.Execute(func() error { return stderrors.New("still down") })
	if cb.State() != StateOpen {
		t.Errorf("expected open after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(1, time.Minute)
	_ = cb.Execute(func() error { return stderrors.New("eof") })
	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("expected reset breaker, got %s with %d failures", cb.State(), cb.Failures())
	}
}

func TestExecuteBreaker(t *testing.T) {
	cb := newTestBreaker(3, time.Second)
	got, err := ExecuteBreaker(cb, func() ([]int64, error) { return []int64{2, 3}, nil })
	if err != nil || len(got) != 2 {
		t.Errorf("unexpected result (%v, %v)", got, err)
	}
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := newTestBreaker(1000, time.Second)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Execute(func() error {
				if i%2 == 0 {
					return stderrors.New("eof")
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown",
	} {
		if state.String() != want {
			t.Errorf("got %q, want %q", state.String(), want)
		}
	}
}
