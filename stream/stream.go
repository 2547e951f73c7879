package stream

import (
	"context"
	"fmt"

	"github.com/kbukum/primesieve/errors"
)

// Transport names accepted by NewFactory.
const (
	TransportChan = "chan"
	TransportPipe = "pipe"
)

// Reader is the read end of a stream.
type Reader interface {
	// Read returns the next record. It returns (0, false, nil) once the
	// stream is closed and drained.
	Read(ctx context.Context) (int64, bool, error)
	// Release drops the read end. A writer still blocked on the stream
	// fails with a CANCELED error. Safe to call more than once.
	Release() error
}

// Writer is the write end of a stream.
type Writer interface {
	// Write appends one record, blocking while the buffer is full.
	Write(ctx context.Context, v int64) error
	// Close marks the end of the stream. It must be called exactly once,
	// by the creator, after the last Write.
	Close() error
}

// Stream is a stream as seen by its creator, who holds both ends until the
// read end is handed to a consumer.
type Stream interface {
	Reader
	Writer
}

// Factory creates a fresh, empty stream.
type Factory func() (Stream, error)

// ChanFactory returns a Factory producing channel streams of the given capacity.
func ChanFactory(capacity int) Factory {
	return func() (Stream, error) {
		return NewChan(capacity), nil
	}
}

// PipeFactory returns a Factory producing OS pipe streams.
func PipeFactory() Factory {
	return func() (Stream, error) {
		return NewPipe()
	}
}

// NewFactory returns the Factory for a named transport.
func NewFactory(transport string, capacity int) (Factory, error) {
	switch transport {
	case TransportChan, "":
		return ChanFactory(capacity), nil
	case TransportPipe:
		return PipeFactory(), nil
	default:
		return nil, errors.InvalidInput("transport",
			fmt.Sprintf("unknown transport %q (want %s or %s)", transport, TransportChan, TransportPipe))
	}
}

// Collect reads r until end-of-stream and returns every record in order.
// On error the records read so far are returned with it.
func Collect(ctx context.Context, r Reader) ([]int64, error) {
	var out []int64
	for {
		v, ok, err := r.Read(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}
