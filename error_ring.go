package xform

import (
	"slices"
	"sync"
)

// ring keeps the most recent entries up to a fixed capacity. A nil ring is
// disabled: pushes are dropped and all returns nil.
type ring[E any] struct {
	mu      sync.Mutex
	entries []E
	limit   int
}

// newRing returns a ring holding up to limit entries, or nil when limit is
// not positive.
func newRing[E any](limit int) *ring[E] {
	if limit <= 0 {
		return nil
	}
	return &ring[E]{entries: make([]E, 0, limit), limit: limit}
}

func (r *ring[E]) push(e E) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == r.limit {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:r.limit-1]
	}
	r.entries = append(r.entries, e)
}

func (r *ring[E]) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.entries = r.entries[:0]
}

// all returns the entries oldest first, or nil when there are none.
func (r *ring[E]) all() []E {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return slices.Clone(r.entries)
}
