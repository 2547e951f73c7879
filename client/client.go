package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/observability"
	"github.com/kbukum/primesieve/resilience"
	"github.com/kbukum/primesieve/server"
)

// Query selects a range on the server.
type Query struct {
	Low   int64
	High  int64
	Limit int
}

func (q Query) params() map[string]string {
	p := map[string]string{
		"low":  strconv.FormatInt(q.Low, 10),
		"high": strconv.FormatInt(q.High, 10),
	}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	return p
}

// Result is a decoded GET /primes response.
type Result struct {
	server.PrimesResult
	Meta server.Meta
}

// Client talks to a primes server.
type Client struct {
	rest   *resty.Client
	config Config
	cb     *resilience.CircuitBreaker
	log    *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRestClient replaces the underlying resty client, for tests.
func WithRestClient(r *resty.Client) Option {
	return func(c *Client) { c.rest = r }
}

// New creates a client. cfg is defaulted and validated.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.WithComponent("client")
	}
	if c.rest == nil {
		c.rest = resty.New()
	}
	c.rest.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeaders(cfg.Headers).
		SetHeader("Accept", "application/json")

	if cfg.CircuitBreaker.Logger == nil {
		cfg.CircuitBreaker.Logger = c.log
	}
	c.cb = resilience.NewCircuitBreaker(cfg.CircuitBreaker)
	if c.config.Retry.RetryIf == nil {
		c.config.Retry.RetryIf = resilience.DefaultRetryIf
	}
	if c.config.Retry.OnRetry == nil {
		c.config.Retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			c.log.Warn("retrying request", logger.Fields(
				"attempt", attempt,
				logger.FieldError, err.Error(),
				"backoff_ms", backoff.Milliseconds(),
			))
		}
	}
	return c, nil
}

// Breaker returns the circuit breaker guarding the server.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.cb
}

// Primes fetches the primes of q in one response.
func (c *Client) Primes(ctx context.Context, q Query) (*Result, error) {
	return call(ctx, c, "primes", func() (*Result, error) {
		var body struct {
			Data server.PrimesResult `json:"data"`
			Meta server.Meta         `json:"meta"`
		}

		var errBody errors.ErrorResponse
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(q.params()).
			SetResult(&body).
			SetError(&errBody).
			Get("/primes")
		if err != nil {
			return nil, transportError(ctx, "fetch primes", err)
		}
		if resp.IsError() {
			return nil, statusError(resp.StatusCode(), &errBody)
		}
		return &Result{PrimesResult: body.Data, Meta: body.Meta}, nil
	})
}

// Stream fetches the primes of q as the server finds them and calls fn for
// each. Only the request is retried; once a prime has been delivered a
// failure is returned as is. A run that fails mid-stream ends with an error
// record, which is returned as its AppError.
func (c *Client) Stream(ctx context.Context, q Query, fn func(prime int64) error) error {
	params := q.params()
	params["format"] = "json"

	body, err := call(ctx, c, "stream", func() (io.ReadCloser, error) {
		var errBody errors.ErrorResponse
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetError(&errBody).
			SetDoNotParseResponse(true).
			Get("/primes/stream")
		if err != nil {
			return nil, transportError(ctx, "stream primes", err)
		}
		raw := resp.RawBody()
		if resp.IsError() {
			defer raw.Close()
			_ = json.NewDecoder(raw).Decode(&errBody)
			return nil, statusError(resp.StatusCode(), &errBody)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		var rec struct {
			Prime *int64            `json:"prime"`
			Error *errors.ErrorBody `json:"error"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return errors.Internal(err).WithDetail("line", scanner.Text())
		}
		switch {
		case rec.Error != nil:
			return bodyError(http.StatusOK, *rec.Error)
		case rec.Prime == nil:
			return errors.Internal(fmt.Errorf("record without prime")).WithDetail("line", scanner.Text())
		}
		if err := fn(*rec.Prime); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return transportError(ctx, "stream primes", err)
	}
	return nil
}

// Health fetches the server's aggregated health. A 503 still carries a
// health document and is returned without error.
func (c *Client) Health(ctx context.Context) (*observability.ServiceHealth, error) {
	var sh observability.ServiceHealth
	resp, err := c.rest.R().SetContext(ctx).SetResult(&sh).SetError(&sh).Get("/health")
	if err != nil {
		return nil, transportError(ctx, "health", err)
	}
	if resp.IsError() && sh.Status == "" {
		return nil, statusError(resp.StatusCode(), nil)
	}
	return &sh, nil
}

// call runs fn under the retry policy, each attempt through the breaker.
func call[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	res, err := resilience.Retry(ctx, c.config.Retry, func() (T, error) {
		return resilience.ExecuteBreaker(c.cb, fn)
	})
	if err != nil {
		c.log.Debug("request failed", logger.Fields(logger.FieldOperation, op, logger.FieldError, err.Error()))
	}
	return res, err
}
