package xform

import (
	"fmt"
	"sync"
)

// ListOp is the kind of a list change.
type ListOp int

const (
	// ListAdded means an element was inserted at Index.
	ListAdded ListOp = iota

	// ListRemoved means the element at Index was removed.
	ListRemoved

	// ListReplaced means the element at Index was set.
	ListReplaced
)

// String returns the string representation of the operation.
func (op ListOp) String() string {
	switch op {
	case ListAdded:
		return "added"
	case ListRemoved:
		return "removed"
	case ListReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// ListEvent describes one change to a list. Version is the list version
// after the change.
type ListEvent[E any] struct {
	Op      ListOp
	Index   int
	Old     E
	New     E
	Version uint64
}

// List is a thread-safe reactive list.
//
// Mutations are serialized and each is delivered to subscribers before the
// next one starts. Subscribers may read the list but must not mutate it from
// inside a callback.
type List[E any] struct {
	notify    sync.Mutex
	mu        sync.RWMutex
	items     []E
	version   uint64
	listeners *listeners[ListEvent[E]]
}

// NewList creates a list holding items.
func NewList[E any](items ...E) *List[E] {
	return &List[E]{
		items:     append([]E(nil), items...),
		listeners: newListeners[ListEvent[E]](nil),
	}
}

// Len returns the number of elements.
func (l *List[E]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the element at i.
func (l *List[E]) At(i int) E {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items[i]
}

// Items returns a copy of the elements.
func (l *List[E]) Items() []E {
	items, _ := l.snapshot()
	return items
}

// Version returns a counter that increases with every mutation.
func (l *List[E]) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

func (l *List[E]) snapshot() ([]E, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]E(nil), l.items...), l.version
}

// Set replaces the element at i. Subscribers are notified even when the new
// element equals the old one, so in-place mutations can be announced.
func (l *List[E]) Set(i int, v E) error {
	return l.mutate(func() (ListEvent[E], error) {
		if i < 0 || i >= len(l.items) {
			return ListEvent[E]{}, fmt.Errorf("index %d out of range [0,%d)", i, len(l.items))
		}
		old := l.items[i]
		l.items[i] = v
		return ListEvent[E]{Op: ListReplaced, Index: i, Old: old, New: v}, nil
	})
}

// Add appends v.
func (l *List[E]) Add(v E) {
	_ = l.mutate(func() (ListEvent[E], error) { //nolint:errcheck // append cannot fail
		l.items = append(l.items, v)
		return ListEvent[E]{Op: ListAdded, Index: len(l.items) - 1, New: v}, nil
	})
}

// Insert places v at i, shifting later elements.
func (l *List[E]) Insert(i int, v E) error {
	return l.mutate(func() (ListEvent[E], error) {
		if i < 0 || i > len(l.items) {
			return ListEvent[E]{}, fmt.Errorf("index %d out of range [0,%d]", i, len(l.items))
		}
		var zero E
		l.items = append(l.items, zero)
		copy(l.items[i+1:], l.items[i:])
		l.items[i] = v
		return ListEvent[E]{Op: ListAdded, Index: i, New: v}, nil
	})
}

// Remove deletes the element at i.
func (l *List[E]) Remove(i int) error {
	return l.mutate(func() (ListEvent[E], error) {
		if i < 0 || i >= len(l.items) {
			return ListEvent[E]{}, fmt.Errorf("index %d out of range [0,%d)", i, len(l.items))
		}
		old := l.items[i]
		l.items = append(l.items[:i], l.items[i+1:]...)
		return ListEvent[E]{Op: ListRemoved, Index: i, Old: old}, nil
	})
}

// mutate applies op under the write lock and delivers its event after the
// lock is released but before the next mutation begins.
func (l *List[E]) mutate(op func() (ListEvent[E], error)) error {
	l.notify.Lock()
	defer l.notify.Unlock()

	l.mu.Lock()
	ev, err := op()
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.version++
	ev.Version = l.version
	l.mu.Unlock()

	l.listeners.fire(ev)
	return nil
}

// Subscribe registers fn for subsequent changes. The returned func
// unsubscribes.
func (l *List[E]) Subscribe(fn func(ListEvent[E])) func() {
	return l.listeners.add(fn)
}

// Lock acquires the list's transaction lock.
func (l *List[E]) Lock(write bool) Transaction {
	return lockRW(&l.mu, write)
}

// TryLock acquires the list's transaction lock if it is free.
func (l *List[E]) TryLock(write bool) (Transaction, bool) {
	return tryLockRW(&l.mu, write)
}
