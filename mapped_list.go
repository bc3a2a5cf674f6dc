package xform

import (
	"fmt"
	"sync"
)

// mappedEntry is one source element and its transformation. The element
// reads its source through the entry, so replacing the source is visible to
// dynamic elements.
type mappedEntry[S, T any] struct {
	source  S
	element Element[S, T]
}

// MappedList is a reactive list whose elements are the elements of a source
// list mapped through a Definition. Edits are reversed onto the source list.
//
// Like List, subscribers may read the mapped list but must not mutate it
// from inside a callback.
type MappedList[S, T any] struct {
	source *List[S]
	engine *Engine[S, T]

	notify    sync.Mutex
	mu        sync.Mutex
	entries   []*mappedEntry[S, T]
	version   uint64
	subs      []func()
	listeners *listeners[ListEvent[T]]
}

// MapList maps source through def. The mapped list observes the source and
// the definition's arguments until Close is called.
func MapList[S, T any](source *List[S], def *Definition[S, T]) *MappedList[S, T] {
	return MapListEngine(source, def.NewEngine(nil))
}

// MapListEngine maps source through an existing engine.
func MapListEngine[S, T any](source *List[S], engine *Engine[S, T]) *MappedList[S, T] {
	ml := &MappedList[S, T]{
		source:    source,
		engine:    engine,
		listeners: newListeners[ListEvent[T]](nil),
	}

	ml.notify.Lock()
	defer ml.notify.Unlock()

	ml.subs = append(ml.subs,
		source.Subscribe(ml.sourceChanged),
		engine.NoInitChanges(ml.stateChanged),
	)
	items, version := source.snapshot()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.version = version
	ml.entries = make([]*mappedEntry[S, T], len(items))
	for i, v := range items {
		ml.entries[i] = ml.newEntry(v)
	}
	return ml
}

// Engine returns the engine driving the list.
func (ml *MappedList[S, T]) Engine() *Engine[S, T] {
	return ml.engine
}

// Close stops observing the source list and the arguments.
func (ml *MappedList[S, T]) Close() {
	ml.notify.Lock()
	defer ml.notify.Unlock()
	for _, cancel := range ml.subs {
		cancel()
	}
	ml.subs = nil
}

func (ml *MappedList[S, T]) newEntry(v S) *mappedEntry[S, T] {
	en := &mappedEntry[S, T]{source: v}
	en.element = ml.engine.NewElement(func() S { return en.source })
	return en
}

// Len returns the number of elements.
func (ml *MappedList[S, T]) Len() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return len(ml.entries)
}

// At returns the mapped element at i.
func (ml *MappedList[S, T]) At(i int) T {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.entries[i].element.CurrentValue(ml.engine.Get())
}

// Items returns the mapped elements.
func (ml *MappedList[S, T]) Items() []T {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	state := ml.engine.Get()
	out := make([]T, len(ml.entries))
	for i, en := range ml.entries {
		out[i] = en.element.CurrentValue(state)
	}
	return out
}

// IsAcceptable checks whether Set(i, value) would succeed without changing
// anything.
func (ml *MappedList[S, T]) IsAcceptable(i int, value T) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if err := ml.checkIndex(i); err != nil {
		return err
	}
	return ml.entries[i].element.Set(value, ml.engine.Get(), true).Err()
}

// Set reverses value onto the source element at i.
func (ml *MappedList[S, T]) Set(i int, value T) error {
	ml.mu.Lock()
	if err := ml.checkIndex(i); err != nil {
		ml.mu.Unlock()
		return err
	}
	source, err := ml.entries[i].element.Set(value, ml.engine.Get(), false).Value()
	ml.mu.Unlock()
	if err != nil {
		return err
	}
	return ml.source.Set(i, source)
}

// SetAll sets every element at indices to value with a single bulk
// reversal.
func (ml *MappedList[S, T]) SetAll(indices []int, value T) error {
	ml.mu.Lock()
	elements := make([]Element[S, T], len(indices))
	for k, i := range indices {
		if err := ml.checkIndex(i); err != nil {
			ml.mu.Unlock()
			return err
		}
		elements[k] = ml.entries[i].element
	}
	sources, err := ml.engine.SetElementsValue(elements, value)
	ml.mu.Unlock()
	if err != nil {
		return err
	}

	for k, i := range indices {
		s := sources[0]
		if len(sources) == len(indices) {
			s = sources[k]
		}
		if err := ml.source.Set(i, s); err != nil {
			return err
		}
	}
	return nil
}

// Add reverses value into a new source element and appends it.
func (ml *MappedList[S, T]) Add(value T) error {
	source, err := ml.engine.Reverse(value, true, false).Value()
	if err != nil {
		return err
	}
	ml.source.Add(source)
	return nil
}

// Subscribe registers fn for subsequent changes.
func (ml *MappedList[S, T]) Subscribe(fn func(ListEvent[T])) func() {
	return ml.listeners.add(fn)
}

// Lock acquires the source list's transaction lock.
func (ml *MappedList[S, T]) Lock(write bool) Transaction {
	return ml.source.Lock(write)
}

func (ml *MappedList[S, T]) checkIndex(i int) error {
	if i < 0 || i >= len(ml.entries) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(ml.entries))
	}
	return nil
}

func (ml *MappedList[S, T]) sourceChanged(ev ListEvent[S]) {
	ml.notify.Lock()
	defer ml.notify.Unlock()

	ml.mu.Lock()
	if ev.Version <= ml.version {
		// Already part of the snapshot the list was built from.
		ml.mu.Unlock()
		return
	}
	ml.version = ev.Version
	state := ml.engine.Get()

	out := ListEvent[T]{Op: ev.Op, Index: ev.Index, Version: ev.Version}
	fire := true
	switch ev.Op {
	case ListAdded:
		en := ml.newEntry(ev.New)
		ml.entries = append(ml.entries, nil)
		copy(ml.entries[ev.Index+1:], ml.entries[ev.Index:])
		ml.entries[ev.Index] = en
		out.New = en.element.CurrentValue(state)
	case ListRemoved:
		out.Old = ml.entries[ev.Index].element.CurrentValue(state)
		ml.entries = append(ml.entries[:ev.Index], ml.entries[ev.Index+1:]...)
	case ListReplaced:
		en := ml.entries[ev.Index]
		en.source = ev.New
		var change Change[T]
		change, fire = en.element.SourceChanged(ev.Old, ev.New, state)
		out.Old, out.New = change.Old, change.New
	}
	ml.mu.Unlock()

	if fire {
		ml.listeners.fire(out)
	}
}

func (ml *MappedList[S, T]) stateChanged(ev ChangeEvent[*State]) {
	ml.notify.Lock()
	defer ml.notify.Unlock()

	ml.mu.Lock()
	var events []ListEvent[T]
	for i, en := range ml.entries {
		if change, ok := en.element.StateChanged(ev.Old, ev.New); ok {
			events = append(events, ListEvent[T]{
				Op:      ListReplaced,
				Index:   i,
				Old:     change.Old,
				New:     change.New,
				Version: ml.version,
			})
		}
	}
	ml.mu.Unlock()

	for _, out := range events {
		ml.listeners.fire(out)
	}
}
