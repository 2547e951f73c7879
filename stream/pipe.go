package stream

import (
	"context"
	stderrors "errors"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/kbukum/primesieve/errors"
)

// Pipe is a stream backed by an OS pipe. Its capacity is the kernel pipe
// buffer.
type Pipe struct {
	r, w     *os.File
	enc      *Encoder
	dec      *Decoder
	closed   atomic.Bool
	released atomic.Bool
}

var _ Stream = (*Pipe)(nil)

// NewPipe creates a pipe stream. Failure to allocate the pipe is a
// RESOURCE_EXHAUSTED error.
func NewPipe() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, errors.ResourceExhausted("pipe", err)
	}
	return &Pipe{
		r:   r,
		w:   w,
		enc: NewEncoder(w),
		dec: NewDecoder(r),
	}, nil
}

// Write appends v as one record.
func (p *Pipe) Write(ctx context.Context, v int64) error {
	if p.closed.Load() {
		return errors.StreamClosed("write")
	}
	if err := ctx.Err(); err != nil {
		return errors.Canceled("write", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = p.w.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := p.enc.Encode(v); err != nil {
		switch {
		case stderrors.Is(err, os.ErrDeadlineExceeded):
			return errors.Canceled("write", ctx.Err())
		case stderrors.Is(err, syscall.EPIPE):
			return errors.Canceled("write", ErrReaderReleased)
		default:
			return errors.Internal(err)
		}
	}
	return nil
}

// Close closes the write end. A second call returns a STREAM_CLOSED error.
func (p *Pipe) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return errors.StreamClosed("close")
	}
	return p.w.Close()
}

// Read returns the next record, or (0, false, nil) at end-of-stream.
func (p *Pipe) Read(ctx context.Context) (int64, bool, error) {
	if p.released.Load() {
		return 0, false, errors.StreamClosed("read")
	}
	if err := ctx.Err(); err != nil {
		return 0, false, errors.Canceled("read", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = p.r.SetReadDeadline(time.Now())
	})
	defer stop()

	v, ok, err := p.dec.Decode()
	if err != nil {
		if stderrors.Is(err, os.ErrDeadlineExceeded) {
			return 0, false, errors.Canceled("read", ctx.Err())
		}
		if errors.IsFraming(err) {
			return 0, false, err
		}
		return 0, false, errors.Internal(err)
	}
	return v, ok, nil
}

// Release closes the read end.
func (p *Pipe) Release() error {
	if !p.released.CompareAndSwap(false, true) {
		return nil
	}
	return p.r.Close()
}
