package stream

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/kbukum/primesieve/errors"
)

// ErrReaderReleased is the cause of a CANCELED write whose reader went away.
var ErrReaderReleased = stderrors.New("stream: reader released")

// Chan is a stream backed by a buffered channel.
type Chan struct {
	ch       chan int64
	gone     chan struct{}
	release  sync.Once
	closed   atomic.Bool
	released atomic.Bool
}

var _ Stream = (*Chan)(nil)

// NewChan creates a channel stream holding up to capacity pending records.
// A capacity of zero makes every Write wait for the matching Read.
func NewChan(capacity int) *Chan {
	if capacity < 0 {
		capacity = 0
	}
	return &Chan{
		ch:   make(chan int64, capacity),
		gone: make(chan struct{}),
	}
}

// Write appends v. Only the stream's single writer may call Write and Close.
func (c *Chan) Write(ctx context.Context, v int64) error {
	if c.closed.Load() {
		return errors.StreamClosed("write")
	}
	select {
	case <-c.gone:
		return errors.Canceled("write", ErrReaderReleased)
	default:
	}
	select {
	case c.ch <- v:
		return nil
	case <-c.gone:
		return errors.Canceled("write", ErrReaderReleased)
	case <-ctx.Done():
		return errors.Canceled("write", ctx.Err())
	}
}

// Close ends the stream. A second call returns a STREAM_CLOSED error.
func (c *Chan) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return errors.StreamClosed("close")
	}
	close(c.ch)
	return nil
}

// Read returns the next record, or (0, false, nil) at end-of-stream.
func (c *Chan) Read(ctx context.Context) (int64, bool, error) {
	if c.released.Load() {
		return 0, false, errors.StreamClosed("read")
	}
	select {
	case v, ok := <-c.ch:
		return v, ok, nil
	case <-ctx.Done():
		return 0, false, errors.Canceled("read", ctx.Err())
	}
}

// Release drops the read end and unblocks a waiting writer.
func (c *Chan) Release() error {
	c.release.Do(func() {
		c.released.Store(true)
		close(c.gone)
	})
	return nil
}

// Len returns the number of buffered records.
func (c *Chan) Len() int { return len(c.ch) }

// Cap returns the stream capacity.
func (c *Chan) Cap() int { return cap(c.ch) }
