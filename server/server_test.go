package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/cache"
	"github.com/kbukum/primesieve/component"
	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/sieve"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var first11 = []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31}

func testConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	return cfg
}

func runConfig() sieve.Config {
	cfg := sieve.Config{}
	cfg.ApplyDefaults()
	return cfg
}

func newTestServer(t *testing.T, cfg Config, opts ...PrimesOption) *Server {
	t.Helper()
	s := New(cfg, logger.Nop())
	s.ApplyMiddleware("primes", nil)
	s.RegisterDefaultEndpoints("primes", nil)
	opts = append([]PrimesOption{WithLogger(logger.Nop())}, opts...)
	NewPrimesHandler(cfg, runConfig(), opts...).Register(s.GinEngine())
	return s
}

type primesBody struct {
	Data PrimesResult `json:"data"`
	Meta Meta         `json:"meta"`
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodePrimes(t *testing.T, w *httptest.ResponseRecorder) primesBody {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body primesBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	return body
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorBody {
	t.Helper()
	var resp errors.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected error body, got %q: %v", w.Body.String(), err)
	}
	return resp.Error
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.Host != "0.0.0.0" || cfg.MaxHigh != 20000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RunTimeout != 30*time.Second || cfg.Bulkhead.MaxConcurrent != 4 || cfg.Bulkhead.Name == "" {
		t.Errorf("unexpected run defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected port out of range to fail")
	}
}

func TestPrimes_List(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := decodePrimes(t, get(t, s, "/primes?high=36"))
	if !equal(body.Data.Primes, first11) || body.Data.Count != 11 {
		t.Errorf("unexpected primes: %+v", body.Data)
	}
	if body.Meta.Cached || body.Meta.Stopped || body.Meta.Stages != 11 {
		t.Errorf("unexpected meta: %+v", body.Meta)
	}
}

func TestPrimes_LowBound(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := decodePrimes(t, get(t, s, "/primes?low=10&high=30"))
	want := []int64{11, 13, 17, 19, 23, 29}
	if !equal(body.Data.Primes, want) {
		t.Errorf("got %v, want %v", body.Data.Primes, want)
	}
}

func TestPrimes_EmptyRanges(t *testing.T) {
	s := newTestServer(t, testConfig())
	for _, q := range []string{"high=0", "high=2", "low=30&high=10", "low=5&high=5"} {
		t.Run(q, func(t *testing.T) {
			body := decodePrimes(t, get(t, s, "/primes?"+q))
			if body.Data.Count != 0 || len(body.Data.Primes) != 0 {
				t.Errorf("expected empty range, got %+v", body.Data)
			}
		})
	}
}

func TestPrimes_Limit(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := decodePrimes(t, get(t, s, "/primes?high=36&limit=4"))
	if !equal(body.Data.Primes, first11[:4]) {
		t.Errorf("got %v", body.Data.Primes)
	}
	if !body.Meta.Stopped {
		t.Error("limited run should report stopped")
	}
}

func TestPrimes_InvalidQuery(t *testing.T) {
	s := newTestServer(t, testConfig())
	tests := []struct {
		query string
		code  errors.ErrorCode
	}{
		{"", errors.ErrCodeMissingField},
		{"low=3", errors.ErrCodeMissingField},
		{"high=abc", errors.ErrCodeInvalidInput},
		{"high=10&low=-1", errors.ErrCodeInvalidInput},
		{"high=999999", errors.ErrCodeInvalidInput},
		{"high=10&limit=-2", errors.ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			w := get(t, s, "/primes?"+tc.query)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if body := decodeError(t, w); body.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, body.Code)
			}
		})
	}
}

func TestPrimes_Cache(t *testing.T) {
	var ccfg cache.Config
	ccfg.NumCounters, ccfg.MaxCost, ccfg.BufferItems, ccfg.TTL = 1000, 1<<20, 64, time.Minute
	c, err := cache.New(ccfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	s := newTestServer(t, testConfig(), WithCache(c))

	first := decodePrimes(t, get(t, s, "/primes?high=36"))
	if first.Meta.Cached {
		t.Fatal("first request cannot be a cache hit")
	}
	c.Wait()

	second := decodePrimes(t, get(t, s, "/primes?high=36"))
	if !second.Meta.Cached || !equal(second.Data.Primes, first11) {
		t.Errorf("expected cached full result, got %+v", second)
	}

	limited := decodePrimes(t, get(t, s, "/primes?high=36&limit=3"))
	if !limited.Meta.Cached || !equal(limited.Data.Primes, first11[:3]) || !limited.Meta.Stopped {
		t.Errorf("expected truncated cached result, got %+v", limited)
	}

	decodePrimes(t, get(t, s, "/primes?high=50&limit=2"))
	c.Wait()
	if _, ok := c.Get(0, 50); ok {
		t.Error("a limited run must not be cached")
	}
}

func TestPrimes_StreamLines(t *testing.T) {
	s := newTestServer(t, testConfig())
	w := get(t, s, "/primes/stream?high=12")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := "prime 2\nprime 3\nprime 5\nprime 7\nprime 11\n"
	if w.Body.String() != want {
		t.Errorf("got %q, want %q", w.Body.String(), want)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
}

func TestPrimes_StreamJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	w := get(t, s, "/primes/stream?high=8&format=json")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 records, got %q", w.Body.String())
	}
	var rec struct {
		Prime int64 `json:"prime"`
	}
	if err := json.Unmarshal([]byte(lines[3]), &rec); err != nil || rec.Prime != 7 {
		t.Errorf("unexpected last record %q: %v", lines[3], err)
	}
	if w.Header().Get("Content-Type") != "application/x-ndjson" {
		t.Errorf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
}

func TestPrimes_StreamSSE(t *testing.T) {
	s := newTestServer(t, testConfig())
	w := get(t, s, "/primes/stream?high=4&format=sse")
	want := "event: prime\ndata: {\"prime\":2}\n\nevent: prime\ndata: {\"prime\":3}\n\n"
	if w.Body.String() != want {
		t.Errorf("got %q, want %q", w.Body.String(), want)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" || w.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("unexpected headers %v", w.Header())
	}
}

func TestPrimes_StreamSSEErrorEvent(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, logger.Nop())
	run := runConfig()
	run.MaxStages = 3
	NewPrimesHandler(cfg, run, WithLogger(logger.Nop())).Register(s.GinEngine())

	w := get(t, s, "/primes/stream?high=36&format=sse")
	body := w.Body.String()
	if !strings.HasPrefix(body, "event: prime\n") {
		t.Errorf("expected primes before the error, got %q", body)
	}
	if !strings.Contains(body, "event: error\ndata: ") || !strings.Contains(body, string(errors.ErrCodeResourceExhausted)) {
		t.Errorf("expected a RESOURCE_EXHAUSTED error event, got %q", body)
	}
}

func TestPrimes_StreamErrorRecord(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, logger.Nop())
	run := runConfig()
	run.MaxStages = 3
	NewPrimesHandler(cfg, run, WithLogger(logger.Nop())).Register(s.GinEngine())

	t.Run("lines", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(get(t, s, "/primes/stream?high=36").Body.String()), "\n")
		last := lines[len(lines)-1]
		if lines[0] != "prime 2" || !strings.HasPrefix(last, "error {") {
			t.Fatalf("expected primes then an error line, got %q", lines)
		}
		var body errors.ErrorResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(last, "error ")), &body); err != nil || body.Error.Code != errors.ErrCodeResourceExhausted {
			t.Errorf("unexpected error line %q: %v", last, err)
		}
	})

	t.Run("json", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(get(t, s, "/primes/stream?high=36&format=json").Body.String()), "\n")
		var body errors.ErrorResponse
		if err := json.Unmarshal([]byte(lines[len(lines)-1]), &body); err != nil || body.Error.Code != errors.ErrCodeResourceExhausted {
			t.Errorf("expected a trailing error record, got %q: %v", lines, err)
		}
	})
}

func TestPrimes_StreamRunTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHigh = 2_000_000
	cfg.RunTimeout = 100 * time.Millisecond
	s := newTestServer(t, cfg)

	body := get(t, s, "/primes/stream?high=2000000&format=json").Body.String()
	lines := strings.Split(strings.TrimSpace(body), "\n")
	var last errors.ErrorResponse
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil || last.Error.Code == "" {
		t.Fatalf("a stream cut off by the run timeout must end with an error record, last line %q", lines[len(lines)-1])
	}
}

func TestPrimes_StreamErrors(t *testing.T) {
	s := newTestServer(t, testConfig())
	w := get(t, s, "/primes/stream?high=8&format=xml")
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT for unknown format, got %d %s", w.Code, w.Body.String())
	}

	w = get(t, s, "/primes/stream?high=2")
	if w.Code != http.StatusOK || w.Body.Len() != 0 {
		t.Errorf("empty range should stream nothing, got %d %q", w.Code, w.Body.String())
	}
}

func TestPrimes_MaxStages(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, logger.Nop())
	run := runConfig()
	run.MaxStages = 3
	NewPrimesHandler(cfg, run, WithLogger(logger.Nop())).Register(s.GinEngine())

	w := get(t, s, "/primes?high=36")
	if body := decodeError(t, w); body.Code != errors.ErrCodeResourceExhausted {
		t.Errorf("expected RESOURCE_EXHAUSTED, got %d %+v", w.Code, body)
	}
}

func TestPrimes_BulkheadFull(t *testing.T) {
	cfg := testConfig()
	cfg.Bulkhead.MaxConcurrent = 1
	cfg.Bulkhead.MaxWait = 0
	h := NewPrimesHandler(cfg, runConfig(), WithLogger(logger.Nop()))

	release := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = h.bulkhead.Execute(context.Background(), func() error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired
	defer close(release)

	s := New(cfg, logger.Nop())
	h.Register(s.GinEngine())
	w := get(t, s, "/primes?high=36")
	if w.Code != http.StatusServiceUnavailable || decodeError(t, w).Code != errors.ErrCodeResourceExhausted {
		t.Errorf("expected 503 RESOURCE_EXHAUSTED, got %d %s", w.Code, w.Body.String())
	}
}

func TestDefaultEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())
	for _, path := range []string{"/health", "/alive", "/ready", "/version", "/metrics/runtime"} {
		if w := get(t, s, path); w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
	if w := get(t, s, "/primes"); w.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header from middleware")
	}
}

func TestRateLimitedServer(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Rate = 0.001
	cfg.RateLimit.Burst = 1
	s := newTestServer(t, cfg)

	decodePrimes(t, get(t, s, "/primes?high=10"))
	if w := get(t, s, "/primes?high=10"); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	s := newTestServer(t, testConfig())
	sc := NewComponent(s)
	ctx := context.Background()

	if h := sc.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := sc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer sc.Stop(ctx)

	if h := sc.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s", h.Status)
	}
	if strings.HasSuffix(s.Addr(), ":0") {
		t.Fatalf("expected bound port, got %s", s.Addr())
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/primes?high=20", s.Addr()))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), `"count":8`) {
		t.Errorf("unexpected response %d %s", resp.StatusCode, raw)
	}

	if d := sc.Describe(); d.Type != "server" || d.Details != s.Addr() {
		t.Errorf("unexpected description %+v", d)
	}
	if err := sc.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if sc.Health(ctx).Status != component.StatusUnhealthy {
		t.Error("expected unhealthy after stop")
	}
}

func TestComponent_Routes(t *testing.T) {
	s := newTestServer(t, testConfig())
	rs := NewComponent(s).Routes()
	if len(rs) < 7 {
		t.Fatalf("expected at least 7 routes, got %d", len(rs))
	}
	if rs[0].Path != "/primes" || rs[0].Handler != "PrimesHandler.List" {
		t.Errorf("expected API routes first, got %+v", rs[0])
	}
	last := rs[len(rs)-1]
	if !strings.HasSuffix(last.Handler, "(system)") {
		t.Errorf("expected system routes last, got %+v", last)
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := map[string]string{
		"github.com/kbukum/primesieve/server.(*PrimesHandler).Stream-fm": "PrimesHandler.Stream",
		"github.com/kbukum/primesieve/server/endpoint.Health.func1":      "health",
		"main.index": "index",
	}
	for in, want := range tests {
		if got := formatHandlerName(in); got != want {
			t.Errorf("formatHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
