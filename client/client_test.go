package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/resilience"
	"github.com/kbukum/primesieve/server"
	"github.com/kbukum/primesieve/sieve"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func primesServer(t *testing.T) *httptest.Server {
	t.Helper()
	return primesServerWith(t, func(*server.Config) {})
}

func primesServerWith(t *testing.T, configure func(*server.Config)) *httptest.Server {
	t.Helper()
	var cfg server.Config
	cfg.ApplyDefaults()
	configure(&cfg)
	s := server.New(cfg, logger.Nop())
	s.ApplyMiddleware("primes", nil)
	s.RegisterDefaultEndpoints("primes", nil)
	var run sieve.Config
	run.ApplyDefaults()
	server.NewPrimesHandler(cfg, run, server.WithLogger(logger.Nop())).Register(s.GinEngine())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(url string) Config {
	return Config{
		BaseURL: url,
		Timeout: 5 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
		CircuitBreaker: resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute},
	}
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(testConfig(url), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.BaseURL != "http://localhost:8080" || cfg.Retry.MaxAttempts != 3 || cfg.CircuitBreaker.MaxFailures != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if _, err := New(Config{BaseURL: "not a url"}); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestClient_Primes(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	res, err := c.Primes(context.Background(), Query{Low: 10, High: 36})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{11, 13, 17, 19, 23, 29, 31}
	if res.Count != len(want) || res.Low != 10 || res.High != 36 {
		t.Fatalf("unexpected result %+v", res)
	}
	for i, p := range want {
		if res.Primes[i] != p {
			t.Errorf("prime %d: got %d, want %d", i, res.Primes[i], p)
		}
	}
	if res.Meta.RunID == "" {
		t.Error("expected run id in meta")
	}
}

func TestClient_PrimesLimit(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	res, err := c.Primes(context.Background(), Query{High: 100, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 3 || !res.Meta.Stopped {
		t.Errorf("unexpected limited result %+v", res)
	}
}

func TestClient_ServerErrorDecoded(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	_, err := c.Primes(context.Background(), Query{High: 1 << 40})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput || appErr.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected decoded INVALID_INPUT, got %v", err)
	}
	if c.Breaker().Failures() != 0 {
		t.Error("caller errors must not count against the server")
	}
}

func TestClient_Stream(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	var got []int64
	err := c.Stream(context.Background(), Query{High: 20}, func(p int64) error {
		got = append(got, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 || got[0] != 2 || got[7] != 19 {
		t.Errorf("unexpected stream %v", got)
	}
}

func TestClient_StreamCallbackStops(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	stop := errors.Canceled("consume", nil)
	n := 0
	err := c.Stream(context.Background(), Query{High: 1000}, func(int64) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	if err != stop || n != 2 {
		t.Errorf("expected callback error after 2 primes, got %v after %d", err, n)
	}
}

func TestClient_StreamErrorRecord(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, `{"prime":2}`+"\n"+`{"prime":3}`+"\n")
		_, _ = io.WriteString(w, `{"error":{"code":"RESOURCE_EXHAUSTED","message":"unable to create stage","retryable":false}}`+"\n")
	}))
	defer ts.Close()

	var got []int64
	err := newClient(t, ts.URL).Stream(context.Background(), Query{High: 36}, func(p int64) error {
		got = append(got, p)
		return nil
	})
	if !errors.IsResourceExhausted(err) {
		t.Fatalf("expected RESOURCE_EXHAUSTED from the trailing record, got %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected the primes before the error, got %v", got)
	}
}

func TestClient_StreamRunTimeout(t *testing.T) {
	ts := primesServerWith(t, func(cfg *server.Config) {
		cfg.MaxHigh = 2_000_000
		cfg.RunTimeout = 100 * time.Millisecond
	})
	var count int
	err := newClient(t, ts.URL).Stream(context.Background(), Query{Low: 2, High: 2_000_000}, func(int64) error {
		count++
		return nil
	})
	if err == nil {
		t.Fatalf("a run cut off by its timeout must fail, got nil after %d primes", count)
	}
	if !errors.IsAppError(err) {
		t.Errorf("expected an AppError, got %T %v", err, err)
	}
	if count == 0 || count >= 148933 {
		t.Errorf("expected a partial run, got %d primes", count)
	}
}

func TestClient_Health(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	sh, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sh.Service != "primes" || sh.Status != "up" {
		t.Errorf("unexpected health %+v", sh)
	}
}

func TestClient_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"low":0,"high":3,"count":1,"primes":[2]},"meta":{"cached":true}}`))
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.CircuitBreaker.MaxFailures = 5
	c, err := New(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Primes(context.Background(), Query{High: 3})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 || res.Count != 1 || !res.Meta.Cached {
		t.Errorf("expected success on third attempt, calls=%d res=%+v", calls.Load(), res)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := newClient(t, ts.URL)
	_, err := c.Primes(context.Background(), Query{High: 10})
	if !errors.IsUnavailable(err) {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
	if c.Breaker().State() != resilience.StateOpen {
		t.Fatalf("expected open breaker, got %s", c.Breaker().State())
	}
	if calls.Load() != 2 {
		t.Errorf("breaker should stop calls after 2 failures, got %d", calls.Load())
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := newClient(t, url)
	if _, err := c.Primes(context.Background(), Query{High: 10}); !errors.IsUnavailable(err) {
		t.Errorf("expected SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestClient_Canceled(t *testing.T) {
	c := newClient(t, primesServer(t).URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Primes(ctx, Query{High: 10}); !errors.IsCanceled(err) {
		t.Errorf("expected CANCELED, got %v", err)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		code   errors.ErrorCode
	}{
		{http.StatusTooManyRequests, errors.ErrCodeRateLimited},
		{http.StatusBadGateway, errors.ErrCodeUnavailable},
		{http.StatusNotFound, errors.ErrCodeInternal},
	}
	for _, tc := range tests {
		if got := statusError(tc.status, nil); got.Code != tc.code {
			t.Errorf("status %d: expected %s, got %s", tc.status, tc.code, got.Code)
		}
	}
}
