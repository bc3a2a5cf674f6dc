package xform

import "sync"

// listener is a registered callback. The pointer identifies it for removal.
type listener[T any] struct {
	fn func(T)
}

// listeners is an ordered set of callbacks. The optional onActive hook runs
// with true when the first callback is added and with false when the last one
// is removed, which lets owners subscribe upstream lazily.
type listeners[T any] struct {
	mu       sync.Mutex
	entries  []*listener[T]
	onActive func(active bool)
}

func newListeners[T any](onActive func(bool)) *listeners[T] {
	return &listeners[T]{onActive: onActive}
}

// add registers fn and returns a func that removes it. Removal is idempotent.
func (l *listeners[T]) add(fn func(T)) func() {
	entry := &listener[T]{fn: fn}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	first := len(l.entries) == 1
	if first && l.onActive != nil {
		l.onActive(true)
	}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(entry) })
	}
}

func (l *listeners[T]) remove(entry *listener[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e == entry {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			if len(l.entries) == 0 && l.onActive != nil {
				l.onActive(false)
			}
			return
		}
	}
}

// active reports whether any callback is registered.
func (l *listeners[T]) active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries) > 0
}

// fire calls every registered callback in registration order. Callbacks
// added or removed during fire take effect on the next call.
func (l *listeners[T]) fire(v T) {
	l.mu.Lock()
	snapshot := make([]*listener[T], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}
