package sieve

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kbukum/primesieve/stream"
)

// accounting counts every stream and unit of a run so tests can check that
// nothing outlives the driver.
type accounting struct {
	mu       sync.Mutex
	created  int
	closed   int
	released int

	spawned        atomic.Int64
	reaped         atomic.Int64
	stagesCreated  atomic.Int64
	stagesFinished atomic.Int64
	runs           atomic.Int64
}

func (a *accounting) factory(inner stream.Factory) stream.Factory {
	return func() (stream.Stream, error) {
		s, err := inner()
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.created++
		a.mu.Unlock()
		return &countedStream{Stream: s, acc: a}, nil
	}
}

func (a *accounting) UnitSpawned(string) { a.spawned.Add(1) }

func (a *accounting) UnitReaped(string, error) { a.reaped.Add(1) }

func (a *accounting) StageCreated(context.Context, StageInfo) { a.stagesCreated.Add(1) }

func (a *accounting) StageFinished(context.Context, StageInfo, error) { a.stagesFinished.Add(1) }

func (a *accounting) RunFinished(context.Context, *Summary, error) { a.runs.Add(1) }

func (a *accounting) options(inner stream.Factory) []Option {
	return []Option{WithStreams(a.factory(inner)), WithObserver(a)}
}

// check asserts that every stream was closed by its writer and released by
// its reader exactly once and that every unit was reaped.
func (a *accounting) check(t *testing.T) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.created == 0 {
		t.Error("no streams created")
	}
	if a.closed != a.created {
		t.Errorf("streams created=%d closed=%d", a.created, a.closed)
	}
	if a.released != a.created {
		t.Errorf("streams created=%d released=%d", a.created, a.released)
	}
	if s, r := a.spawned.Load(), a.reaped.Load(); s != r {
		t.Errorf("units spawned=%d reaped=%d", s, r)
	}
	if c, f := a.stagesCreated.Load(), a.stagesFinished.Load(); c != f {
		t.Errorf("stages created=%d finished=%d", c, f)
	}
	if a.runs.Load() != 1 {
		t.Errorf("expected one finished run, got %d", a.runs.Load())
	}
}

type countedStream struct {
	stream.Stream
	acc         *accounting
	closeOnce   sync.Once
	releaseOnce sync.Once
}

func (s *countedStream) Close() error {
	err := s.Stream.Close()
	if err == nil {
		s.closeOnce.Do(func() {
			s.acc.mu.Lock()
			s.acc.closed++
			s.acc.mu.Unlock()
		})
	}
	return err
}

func (s *countedStream) Release() error {
	s.releaseOnce.Do(func() {
		s.acc.mu.Lock()
		s.acc.released++
		s.acc.mu.Unlock()
	})
	return s.Stream.Release()
}

func transports() map[string]stream.Factory {
	return map[string]stream.Factory{
		"chan":          stream.ChanFactory(DefaultBuffer),
		"chan-unbuffer": stream.ChanFactory(0),
		"pipe":          stream.PipeFactory(),
	}
}

// trialDivision returns the primes in [low, high) the slow way.
func trialDivision(low, high int64) []int64 {
	var out []int64
	for n := max(low, 2); n < high; n++ {
		prime := true
		for d := int64(2); d*d <= n; d++ {
			if n%d == 0 {
				prime = false
				break
			}
		}
		if prime {
			out = append(out, n)
		}
	}
	return out
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
