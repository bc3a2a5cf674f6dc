package xform

import (
	"sync"
	"sync/atomic"
)

// TransformedValue is a reactive value derived from a source value through a
// Definition. It is settable when the definition is reversible and the
// source is a SettableValue.
//
// While unobserved it computes its value on demand. The first subscriber
// binds an element to the source and subscribes to the source and the
// engine; each visible change is then delivered as one event, in order.
// Subscribers must not call Set from inside a callback.
type TransformedValue[S, T any] struct {
	source Value[S]
	engine *Engine[S, T]

	notify    sync.Mutex
	mu        sync.Mutex
	element   Element[S, T]
	current   atomic.Pointer[T]
	subs      []func()
	listeners *listeners[ChangeEvent[T]]
}

// Transform derives a value from source through def. The engine compares
// sources with DefaultEquivalence.
func Transform[S, T any](source Value[S], def *Definition[S, T]) *TransformedValue[S, T] {
	return TransformEngine(source, def.NewEngine(nil))
}

// TransformEngine derives a value from source through an existing engine.
// Use it to configure the engine's equivalence, metrics or clock.
func TransformEngine[S, T any](source Value[S], engine *Engine[S, T]) *TransformedValue[S, T] {
	tv := &TransformedValue[S, T]{source: source, engine: engine}
	tv.listeners = newListeners[ChangeEvent[T]](tv.setActive)
	return tv
}

// Engine returns the engine driving the value.
func (tv *TransformedValue[S, T]) Engine() *Engine[S, T] {
	return tv.engine
}

// Get returns the transformed value.
func (tv *TransformedValue[S, T]) Get() T {
	if ptr := tv.current.Load(); ptr != nil {
		return *ptr
	}
	return tv.engine.mustEvaluate(tv.engine.values(nil, false, tv.source.Get, nil))
}

// Version combines the source and argument versions.
func (tv *TransformedValue[S, T]) Version() uint64 {
	return tv.source.Version() + tv.engine.Version()
}

// Changes subscribes fn and delivers the current value immediately.
func (tv *TransformedValue[S, T]) Changes(fn func(ChangeEvent[T])) func() {
	tv.notify.Lock()
	defer tv.notify.Unlock()

	cancel := tv.listeners.add(fn)
	v := tv.Get()
	fn(ChangeEvent[T]{Old: v, New: v, Initial: true})
	return cancel
}

// NoInitChanges subscribes fn to subsequent changes.
func (tv *TransformedValue[S, T]) NoInitChanges(fn func(ChangeEvent[T])) func() {
	return tv.listeners.add(fn)
}

// Lock locks the source.
func (tv *TransformedValue[S, T]) Lock(write bool) Transaction {
	return tv.source.Lock(write)
}

// TryLock locks the source if it is free.
func (tv *TransformedValue[S, T]) TryLock(write bool) (Transaction, bool) {
	return tv.source.TryLock(write)
}

// IsEnabled returns why Set cannot currently succeed, or nil.
func (tv *TransformedValue[S, T]) IsEnabled() error {
	if _, ok := tv.source.(SettableValue[S]); !ok {
		return unsupported("source is not settable")
	}
	if !tv.engine.def.IsReversible() {
		return unsupported("definition is not reversible")
	}
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.elementLocked().IsEnabled(tv.engine.Get())
}

// IsAcceptable checks whether Set(value) would succeed without changing
// anything.
func (tv *TransformedValue[S, T]) IsAcceptable(value T) error {
	if _, ok := tv.source.(SettableValue[S]); !ok {
		return unsupported("source is not settable")
	}
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return tv.elementLocked().Set(value, tv.engine.Get(), true).Err()
}

// Set reverses value onto the source.
func (tv *TransformedValue[S, T]) Set(value T) error {
	settable, ok := tv.source.(SettableValue[S])
	if !ok {
		return unsupported("source is not settable")
	}

	tv.mu.Lock()
	source, err := tv.elementLocked().Set(value, tv.engine.Get(), false).Value()
	tv.mu.Unlock()
	if err != nil {
		return err
	}

	if !settable.Set(source) && tv.engine.def.reverse.modifiesSource() {
		// The source was mutated in place, so no source event follows.
		tv.sourceChanged(ChangeEvent[S]{Old: source, New: source})
	}
	return nil
}

// elementLocked returns the bound element, or a dynamic one while
// unobserved. tv.mu must be held.
func (tv *TransformedValue[S, T]) elementLocked() Element[S, T] {
	if tv.element != nil {
		return tv.element
	}
	return &dynamicElement[S, T]{engine: tv.engine, source: tv.source.Get}
}

// setActive binds or releases the element. It runs under the listener
// registry lock.
func (tv *TransformedValue[S, T]) setActive(active bool) {
	if !active {
		for _, cancel := range tv.subs {
			cancel()
		}
		tv.subs = nil
		tv.mu.Lock()
		tv.element = nil
		tv.current.Store(nil)
		tv.mu.Unlock()
		return
	}

	// Subscribe before binding so no change can fall between the element's
	// first read and the first event.
	tv.subs = append(tv.subs,
		tv.engine.NoInitChanges(tv.stateChanged),
		tv.source.NoInitChanges(tv.sourceChanged),
	)
	tv.mu.Lock()
	tv.element = tv.engine.NewElement(tv.source.Get)
	v := tv.element.CurrentValue(tv.engine.Get())
	tv.current.Store(&v)
	tv.mu.Unlock()
}

func (tv *TransformedValue[S, T]) sourceChanged(ev ChangeEvent[S]) {
	tv.apply(func(el Element[S, T]) (Change[T], bool) {
		return el.SourceChanged(ev.Old, ev.New, tv.engine.Get())
	})
}

func (tv *TransformedValue[S, T]) stateChanged(ev ChangeEvent[*State]) {
	tv.apply(func(el Element[S, T]) (Change[T], bool) {
		return el.StateChanged(ev.Old, ev.New)
	})
}

// apply runs a stimulus against the element under tv.mu and delivers the
// resulting change under tv.notify, which keeps deliveries in order.
func (tv *TransformedValue[S, T]) apply(stimulus func(Element[S, T]) (Change[T], bool)) {
	tv.notify.Lock()
	defer tv.notify.Unlock()

	tv.mu.Lock()
	if tv.element == nil {
		tv.mu.Unlock()
		return
	}
	change, ok := stimulus(tv.element)
	if ok {
		v := change.New
		tv.current.Store(&v)
	}
	tv.mu.Unlock()

	if ok {
		tv.listeners.fire(ChangeEvent[T]{Old: change.Old, New: change.New})
	}
}

var _ Value[int] = (*TransformedValue[int, int])(nil)
