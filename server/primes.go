package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/primesieve/cache"
	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/report"
	"github.com/kbukum/primesieve/resilience"
	"github.com/kbukum/primesieve/server/middleware"
	"github.com/kbukum/primesieve/sieve"
	"github.com/kbukum/primesieve/validation"
)

// PrimesResult is the body of a GET /primes response.
type PrimesResult struct {
	Low    int64   `json:"low"`
	High   int64   `json:"high"`
	Count  int     `json:"count"`
	Primes []int64 `json:"primes"`
}

// PrimesQuery is a parsed and validated primes request.
type PrimesQuery struct {
	Low    int64
	High   int64
	Limit  int
	Format string
}

// PrimesHandler serves sieve runs over HTTP.
type PrimesHandler struct {
	config   Config
	run      sieve.Config
	cache    *cache.Cache
	bulkhead *resilience.Bulkhead
	observer sieve.Observer
	log      *logger.Logger
}

// PrimesOption configures a PrimesHandler.
type PrimesOption func(*PrimesHandler)

// WithCache serves complete ranges from c.
func WithCache(c *cache.Cache) PrimesOption {
	return func(h *PrimesHandler) { h.cache = c }
}

// WithObserver attaches obs to every run.
func WithObserver(obs sieve.Observer) PrimesOption {
	return func(h *PrimesHandler) { h.observer = obs }
}

// WithLogger sets the handler logger.
func WithLogger(l *logger.Logger) PrimesOption {
	return func(h *PrimesHandler) { h.log = l }
}

// NewPrimesHandler returns a handler whose runs use the transport, buffer
// and stage bound of run. The range of run is ignored.
func NewPrimesHandler(cfg Config, run sieve.Config, opts ...PrimesOption) *PrimesHandler {
	h := &PrimesHandler{
		config:   cfg,
		run:      run,
		bulkhead: resilience.NewBulkhead(cfg.Bulkhead),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.WithComponent("primes")
	}
	return h
}

// Register mounts the primes routes on the engine.
func (h *PrimesHandler) Register(r gin.IRoutes) {
	r.GET("/primes", h.List)
	r.GET("/primes/stream", h.Stream)
}

// List answers with every prime of [low, high) in one JSON document.
func (h *PrimesHandler) List(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RunTimeout)
	defer cancel()

	primes, meta, err := h.collect(ctx, q, middleware.GetRequestID(c))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOKWithMeta(c, PrimesResult{Low: q.Low, High: q.High, Count: len(primes), Primes: primes}, meta)
}

// collect serves q from the cache when it can. Only complete ranges are
// cached; a limited request reads a cached range but never fills one.
func (h *PrimesHandler) collect(ctx context.Context, q PrimesQuery, requestID string) ([]int64, *Meta, error) {
	if h.cache == nil {
		return h.runCollect(ctx, q, requestID)
	}

	if q.Limit > 0 {
		if primes, ok := h.cache.Get(q.Low, q.High); ok {
			return truncate(primes, q.Limit), &Meta{Cached: true, Stopped: len(primes) > q.Limit}, nil
		}
		return h.runCollect(ctx, q, requestID)
	}

	var meta *Meta
	primes, hit, err := h.cache.GetOrCompute(ctx, q.Low, q.High, func(ctx context.Context) ([]int64, error) {
		primes, m, err := h.runCollect(ctx, q, requestID)
		meta = m
		return primes, err
	})
	if err != nil {
		return nil, nil, err
	}
	if hit {
		meta = &Meta{Cached: true}
	}
	return primes, meta, nil
}

func (h *PrimesHandler) runCollect(ctx context.Context, q PrimesQuery, requestID string) ([]int64, *Meta, error) {
	var collector report.Collector
	summary, err := h.execute(ctx, q, collector.Sink(), requestID)
	if err != nil {
		return nil, nil, err
	}
	return collector.Primes(), metaFor(summary), nil
}

// execute runs q inside the bulkhead.
func (h *PrimesHandler) execute(ctx context.Context, q PrimesQuery, sink sieve.Sink, requestID string) (*sieve.Summary, error) {
	cfg := h.run
	cfg.Low, cfg.High, cfg.Limit = q.Low, q.High, q.Limit

	opts := []sieve.Option{sieve.WithLogger(h.log)}
	if requestID != "" {
		opts = append(opts, sieve.WithRunID(requestID))
	}
	if h.observer != nil {
		opts = append(opts, sieve.WithObserver(h.observer))
	}

	return resilience.ExecuteWithResult(h.bulkhead, ctx, func() (*sieve.Summary, error) {
		return sieve.Run(ctx, cfg, sink, opts...)
	})
}

// Stream writes primes as they are found, one per line in the requested
// format. An error after the first byte ends the stream with an error
// record in the same format instead of a status code.
func (h *PrimesHandler) Stream(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.RunTimeout)
	defer cancel()

	w, err := report.New(q.Format, c.Writer)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	contentType := report.ContentType(q.Format)
	if q.Format == report.FormatSSE {
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
	}

	put := w.Sink()
	written := false
	sink := func(ctx context.Context, p int64) error {
		if !written {
			c.Header("Content-Type", contentType)
			c.Status(http.StatusOK)
			written = true
		}
		if err := put(ctx, p); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	_, err = h.execute(ctx, q, sink, middleware.GetRequestID(c))
	if err != nil {
		if !written {
			RespondWithError(c, err)
			return
		}
		_ = c.Error(err)
		h.log.Warn("stream ended with error", logger.Fields(logger.FieldError, err.Error()))
		if ferr := w.Fail(err); ferr == nil {
			c.Writer.Flush()
		}
		return
	}
	if !written {
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}
}

// parseQuery reads low, high, limit and format. high is required; low
// defaults to 0 and high may not exceed the configured MaxHigh. high at or
// below low is valid and selects the empty range.
func (h *PrimesHandler) parseQuery(c *gin.Context) (PrimesQuery, error) {
	q := PrimesQuery{Format: c.DefaultQuery("format", report.FormatLines)}

	rawHigh, ok := c.GetQuery("high")
	if !ok || rawHigh == "" {
		return q, errors.MissingField("high")
	}

	v := validation.New()
	var err error
	if q.High, err = strconv.ParseInt(rawHigh, 10, 64); err != nil {
		v.AddError("high", "must be an integer")
	}
	if raw := c.Query("low"); raw != "" {
		if q.Low, err = strconv.ParseInt(raw, 10, 64); err != nil {
			v.AddError("low", "must be an integer")
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			v.AddError("limit", "must be an integer")
		}
	}
	if v.HasErrors() {
		return q, v.Validate()
	}

	v.Min("low", q.Low, 0).
		Range("high", q.High, 0, h.config.MaxHigh).
		Min("limit", int64(q.Limit), 0).
		OneOf("format", q.Format, report.Formats)
	if appErr := v.Validate(); appErr != nil {
		return q, appErr
	}
	return q, nil
}

func metaFor(s *sieve.Summary) *Meta {
	return &Meta{
		RunID:     s.RunID,
		Stages:    len(s.Stages),
		ElapsedMS: s.Elapsed.Milliseconds(),
		Stopped:   s.Stopped,
	}
}

func truncate(primes []int64, limit int) []int64 {
	if limit > 0 && len(primes) > limit {
		return primes[:limit]
	}
	return primes
}
