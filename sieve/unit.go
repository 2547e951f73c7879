package sieve

import (
	"fmt"
	"sync/atomic"

	"github.com/kbukum/primesieve/errors"
)

// Unit is the handle of an independently scheduled execution unit. Whoever
// spawns a unit owns it and must Wait on it.
type Unit struct {
	name   string
	obs    Observer
	done   chan struct{}
	err    error
	reaped atomic.Bool
}

func spawn(name string, obs Observer, fn func() error) *Unit {
	u := &Unit{name: name, obs: obs, done: make(chan struct{})}
	obs.UnitSpawned(name)
	go func() {
		defer close(u.done)
		defer func() {
			if r := recover(); r != nil {
				u.err = errors.Internal(fmt.Errorf("%s panicked: %v", name, r))
			}
		}()
		u.err = fn()
	}()
	return u
}

// Name returns the unit name.
func (u *Unit) Name() string { return u.name }

// Done is closed when the unit has terminated.
func (u *Unit) Done() <-chan struct{} { return u.done }

// Wait blocks until the unit terminates and returns its error. The first
// Wait reaps the unit; later calls return the same error.
func (u *Unit) Wait() error {
	<-u.done
	if u.reaped.CompareAndSwap(false, true) {
		u.obs.UnitReaped(u.name, u.err)
	}
	return u.err
}
