package xform

import (
	"sync"
	"sync/atomic"
)

// ChangeEvent describes a transition of a reactive value. The event
// delivered immediately on subscription through Changes has Initial set and
// Old equal to New.
type ChangeEvent[T any] struct {
	Old     T
	New     T
	Initial bool
}

// Transaction releases a lock obtained from Value.Lock or Value.TryLock.
type Transaction func()

// Value is a reactive value: readable at any time, versioned, observable,
// and lockable for transactional reads and writes.
type Value[T any] interface {
	// Get returns the current value.
	Get() T

	// Version is a counter that never decreases and changes whenever the
	// value does.
	Version() uint64

	// Changes registers fn and delivers the current value to it as an
	// initial event before returning. The returned func unsubscribes.
	Changes(fn func(ChangeEvent[T])) func()

	// NoInitChanges registers fn for subsequent changes only.
	NoInitChanges(fn func(ChangeEvent[T])) func()

	// Lock blocks until the value's transaction lock is held.
	Lock(write bool) Transaction

	// TryLock acquires the transaction lock without blocking.
	TryLock(write bool) (Transaction, bool)
}

// SettableValue is a Value that accepts new values.
type SettableValue[T any] interface {
	Value[T]

	// Set stores v and reports whether it differed from the current value.
	Set(v T) bool
}

// versioned pairs a value with its version so both load atomically.
type versioned[T any] struct {
	value   T
	version uint64
}

// Settable is a thread-safe SettableValue.
//
// Get and Version never block. Set holds the write lock while it stores the
// value and notifies subscribers, so each subscriber sees changes in the
// order they were made. A subscriber must not call Set or Lock on the value
// that is notifying it.
type Settable[T any] struct {
	mu        sync.RWMutex
	cell      atomic.Pointer[versioned[T]]
	eq        Equivalence[T]
	listeners *listeners[ChangeEvent[T]]
}

// NewValue creates a Settable holding initial at version 0.
func NewValue[T any](initial T) *Settable[T] {
	s := &Settable[T]{
		eq:        DefaultEquivalence[T](),
		listeners: newListeners[ChangeEvent[T]](nil),
	}
	s.cell.Store(&versioned[T]{value: initial})
	return s
}

// Equivalence sets the relation used to decide whether Set changes the
// value. Default: DefaultEquivalence. Must be called before first use.
func (s *Settable[T]) Equivalence(eq Equivalence[T]) *Settable[T] {
	s.eq = eq
	return s
}

// Get returns the current value.
func (s *Settable[T]) Get() T {
	return s.cell.Load().value
}

// Version returns the current version.
func (s *Settable[T]) Version() uint64 {
	return s.cell.Load().version
}

// Set stores v if it is not equivalent to the current value.
func (s *Settable[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cell.Load()
	if s.eq.Equivalent(old.value, v) {
		return false
	}
	s.cell.Store(&versioned[T]{value: v, version: old.version + 1})
	s.listeners.fire(ChangeEvent[T]{Old: old.value, New: v})
	return true
}

// Changes subscribes fn and delivers the current value immediately.
func (s *Settable[T]) Changes(fn func(ChangeEvent[T])) func() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cancel := s.listeners.add(fn)
	v := s.Get()
	fn(ChangeEvent[T]{Old: v, New: v, Initial: true})
	return cancel
}

// NoInitChanges subscribes fn to subsequent changes.
func (s *Settable[T]) NoInitChanges(fn func(ChangeEvent[T])) func() {
	return s.listeners.add(fn)
}

// Lock acquires the value's transaction lock.
func (s *Settable[T]) Lock(write bool) Transaction {
	return lockRW(&s.mu, write)
}

// TryLock acquires the value's transaction lock if it is free.
func (s *Settable[T]) TryLock(write bool) (Transaction, bool) {
	return tryLockRW(&s.mu, write)
}

var _ SettableValue[int] = (*Settable[int])(nil)

// lockRW locks mu for reading or writing and returns the matching release.
func lockRW(mu *sync.RWMutex, write bool) Transaction {
	if write {
		mu.Lock()
		return mu.Unlock
	}
	mu.RLock()
	return mu.RUnlock
}

// tryLockRW is the non-blocking form of lockRW.
func tryLockRW(mu *sync.RWMutex, write bool) (Transaction, bool) {
	if write {
		if !mu.TryLock() {
			return nil, false
		}
		return mu.Unlock, true
	}
	if !mu.TryRLock() {
		return nil, false
	}
	return mu.RUnlock, true
}
