// Package report provides sinks that deliver primes from a run.
package report

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/primesieve/errors"
	"github.com/kbukum/primesieve/logger"
	"github.com/kbukum/primesieve/sieve"
)

// Output formats accepted by New.
const (
	FormatLines = "lines"
	FormatJSON  = "json"
	FormatSSE   = "sse"
)

// Formats lists every output format.
var Formats = []string{FormatLines, FormatJSON, FormatSSE}

// Server-sent event names.
const (
	EventPrime = "prime"
	EventError = "error"
)

// ContentType returns the media type of a format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/x-ndjson"
	case FormatSSE:
		return "text/event-stream"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Writer is a sink that buffers its output. Flush must be called after the
// run.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	encode func(*bufio.Writer, int64) error
	fail   func(*bufio.Writer, []byte) error
}

// New returns a Writer for the named format.
func New(format string, w io.Writer) (*Writer, error) {
	switch format {
	case FormatLines, "":
		return Lines(w), nil
	case FormatJSON:
		return JSON(w), nil
	case FormatSSE:
		return SSE(w), nil
	default:
		return nil, errors.InvalidInput("format", fmt.Sprintf("unknown format %q", format))
	}
}

// Lines writes one "prime N" line per prime.
func Lines(w io.Writer) *Writer {
	return &Writer{
		buf: bufio.NewWriter(w),
		encode: func(b *bufio.Writer, p int64) error {
			_, err := fmt.Fprintf(b, "prime %d\n", p)
			return err
		},
		fail: func(b *bufio.Writer, body []byte) error {
			_, err := fmt.Fprintf(b, "error %s\n", body)
			return err
		},
	}
}

// Record is the JSON form of one prime.
type Record struct {
	Prime int64 `json:"prime"`
}

// JSON writes one JSON object per line.
func JSON(w io.Writer) *Writer {
	return &Writer{
		buf: bufio.NewWriter(w),
		encode: func(b *bufio.Writer, p int64) error {
			return json.NewEncoder(b).Encode(Record{Prime: p})
		},
		fail: func(b *bufio.Writer, body []byte) error {
			_, err := fmt.Fprintf(b, "%s\n", body)
			return err
		},
	}
}

// SSE writes one "prime" server-sent event per prime with a JSON Record
// as its data.
func SSE(w io.Writer) *Writer {
	return &Writer{
		buf: bufio.NewWriter(w),
		encode: func(b *bufio.Writer, p int64) error {
			if _, err := fmt.Fprintf(b, "event: %s\ndata: ", EventPrime); err != nil {
				return err
			}
			if err := json.NewEncoder(b).Encode(Record{Prime: p}); err != nil {
				return err
			}
			return b.WriteByte('\n')
		},
		fail: func(b *bufio.Writer, body []byte) error {
			_, err := fmt.Fprintf(b, "event: %s\ndata: %s\n\n", EventError, body)
			return err
		},
	}
}

// Sink returns the writer as a run sink.
func (w *Writer) Sink() sieve.Sink {
	return func(_ context.Context, p int64) error {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.encode(w.buf, p)
	}
}

// Fail ends the output with an error record carrying err as a JSON error
// body, so a reader can tell a failed run from a complete one, and flushes.
// Lines output writes "error {json}", JSON output writes the body as its
// own line and SSE output sends an "error" event.
func (w *Writer) Fail(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	body, jerr := json.Marshal(appErr.ToResponse())
	if jerr != nil {
		return jerr
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fail(w.buf, body); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Flush writes any buffered output.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Collector gathers primes in memory.
type Collector struct {
	mu     sync.Mutex
	primes []int64
}

// Sink returns the collector as a run sink.
func (c *Collector) Sink() sieve.Sink {
	return func(_ context.Context, p int64) error {
		c.mu.Lock()
		c.primes = append(c.primes, p)
		c.mu.Unlock()
		return nil
	}
}

// Primes returns a copy of the collected primes.
func (c *Collector) Primes() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int64, len(c.primes))
	copy(out, c.primes)
	return out
}

// Channel sends every prime to ch, blocking until it is received or ctx
// ends.
func Channel(ch chan<- int64) sieve.Sink {
	return func(ctx context.Context, p int64) error {
		select {
		case ch <- p:
			return nil
		case <-ctx.Done():
			return errors.Canceled("send", ctx.Err())
		}
	}
}

// Log writes every prime to l at debug level.
func Log(l *logger.Logger) sieve.Sink {
	return func(_ context.Context, p int64) error {
		l.Debug("prime", logger.Fields("prime", p))
		return nil
	}
}

// Tee delivers every prime to each sink in order and stops at the first
// error.
func Tee(sinks ...sieve.Sink) sieve.Sink {
	return func(ctx context.Context, p int64) error {
		for _, s := range sinks {
			if err := s(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}
}
