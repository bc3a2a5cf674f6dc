package xform

import (
	"fmt"
	"reflect"
)

// ArgHandle identifies an argument registered with a Builder. Handles are
// only meaningful to the definition that issued them.
type ArgHandle interface {
	handle() (*registry, int)
}

// ArgLookup resolves argument handles to their current values.
type ArgLookup interface {
	Get(arg ArgHandle) (any, error)
}

// registry is shared by a Builder and every Definition built from it, so
// handles stay valid across WithEquivalence.
type registry struct {
	args []argSource
}

// argSource is the type-erased view of an argument's reactive value.
type argSource interface {
	identity() (any, bool)
	read() (any, uint64)
	version() uint64
	subscribe(fn func()) func()
	lock(write bool) Transaction
	tryLock(write bool) (Transaction, bool)
}

// Arg is a typed handle to an argument value.
type Arg[V any] struct {
	owner *registry
	index int
	value Value[V]
}

func (a *Arg[V]) handle() (*registry, int) {
	return a.owner, a.index
}

// Index returns the position the argument was registered at.
func (a *Arg[V]) Index() int {
	return a.index
}

// Get returns the argument's value in the given evaluation.
func (a *Arg[V]) Get(l ArgLookup) (V, error) {
	var zero V
	raw, err := l.Get(a)
	if err != nil {
		return zero, err
	}
	if raw == nil {
		return zero, nil
	}
	v, ok := raw.(V)
	if !ok {
		return zero, fmt.Errorf("argument %d holds %T", a.index, raw)
	}
	return v, nil
}

// Of is Get for use inside combination functions. A lookup failure panics;
// the engine recovers it as a combination failure.
func (a *Arg[V]) Of(l ArgLookup) V {
	v, err := a.Get(l)
	if err != nil {
		panic(err)
	}
	return v
}

func (a *Arg[V]) identity() (any, bool) {
	v := any(a.value)
	if v == nil || !reflect.TypeOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

// read returns a value and the version it belongs to. Versions are sampled
// on both sides of the read and the read is retried while they disagree.
func (a *Arg[V]) read() (any, uint64) {
	for {
		before := a.value.Version()
		v := a.value.Get()
		if a.value.Version() == before {
			return v, before
		}
	}
}

func (a *Arg[V]) version() uint64 {
	return a.value.Version()
}

func (a *Arg[V]) subscribe(fn func()) func() {
	return a.value.NoInitChanges(func(ChangeEvent[V]) { fn() })
}

func (a *Arg[V]) lock(write bool) Transaction {
	return a.value.Lock(write)
}

func (a *Arg[V]) tryLock(write bool) (Transaction, bool) {
	return a.value.TryLock(write)
}
