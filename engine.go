package xform

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// snapshotAttempts bounds the optimistic reads of an unlocked snapshot
// before the engine falls back to locking every argument.
const snapshotAttempts = 8

// Engine runs a Definition: it evaluates and reverses the transformation and
// tracks the definition's arguments. An Engine is itself a Value over the
// argument State, so consumers observe argument-driven recomputation the
// same way they observe any other value.
//
// While nobody subscribes, Get computes a consistent snapshot on demand and
// caches it until an argument version changes. The first subscriber makes
// the engine subscribe to every argument; from then on each argument change
// is republished as exactly one State event. When the last subscriber
// leaves, argument subscriptions and the snapshot are released.
type Engine[S, T any] struct {
	def          *Definition[S, T]
	sourceEq     Equivalence[S]
	clock        clockz.Clock
	metrics      MetricsProvider
	lastError    atomic.Pointer[error]
	errorHistory *ring[error]

	listeners *listeners[ChangeEvent[*State]]
	publish   sync.Mutex
	subs      []func()
	active    atomic.Bool
	current   atomic.Pointer[State]
	cached    atomic.Pointer[State]
}

// NewEngine creates an engine for d. sourceEq decides whether a source
// notification is a real change or an update; nil means DefaultEquivalence.
func (d *Definition[S, T]) NewEngine(sourceEq Equivalence[S]) *Engine[S, T] {
	if sourceEq == nil {
		sourceEq = DefaultEquivalence[S]()
	}
	e := &Engine[S, T]{
		def:      d,
		sourceEq: sourceEq,
		clock:    clockz.RealClock,
	}
	e.listeners = newListeners[ChangeEvent[*State]](e.setActive)
	return e
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Metrics sets a metrics provider. Must be called before first use.
func (e *Engine[S, T]) Metrics(provider MetricsProvider) *Engine[S, T] {
	e.metrics = provider
	return e
}

// Clock sets the clock used to time evaluations. Must be called before
// first use.
func (e *Engine[S, T]) Clock(clock clockz.Clock) *Engine[S, T] {
	e.clock = clock
	return e
}

// ErrorHistorySize sets the number of recent combination failures to retain.
// Use 0 (default) to only retain the most recent one via LastError().
// Must be called before first use.
func (e *Engine[S, T]) ErrorHistorySize(n int) *Engine[S, T] {
	e.errorHistory = newRing[error](n)
	return e
}

// Definition returns the definition the engine runs.
func (e *Engine[S, T]) Definition() *Definition[S, T] {
	return e.def
}

// LastError returns the last combination failure, or nil.
func (e *Engine[S, T]) LastError() error {
	ptr := e.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent combination failures, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (e *Engine[S, T]) ErrorHistory() []error {
	return e.errorHistory.all()
}

// -----------------------------------------------------------------------------
// Evaluation
// -----------------------------------------------------------------------------

// Map evaluates the combination for source against state. A nil state means
// the engine's current state. Under FailureRecover a failing combination
// yields the zero result and a nil error.
func (e *Engine[S, T]) Map(source S, state *State) (T, error) {
	return e.evaluate(e.values(state, false, func() S { return source }, nil))
}

// Reverse reverses value without an element. Only the arguments are
// available to the strategy; the current source is the zero value.
func (e *Engine[S, T]) Reverse(value T, add, test bool) ReverseResult[S] {
	return e.reverse(value, e.values(nil, false, nil, nil), add, test)
}

// NewElement binds source to the engine. The element caches its source and
// result when the definition caches, and recomputes on every read otherwise.
func (e *Engine[S, T]) NewElement(source func() S) Element[S, T] {
	if e.def.opts.Cache {
		return newCachedElement(e, source)
	}
	return &dynamicElement[S, T]{engine: e, source: source}
}

// SetElementsValue computes the sources that make every element's result
// equal value. A stateful reverse is applied per element, once per distinct
// source, and returns one source per element. Otherwise a single source is
// returned for the whole batch, except when every element already has the
// value but their sources differ, in which case each element keeps its own.
func (e *Engine[S, T]) SetElementsValue(elements []Element[S, T], value T) ([]S, error) {
	rev := e.def.reverse
	if rev == nil {
		return nil, unsupported("definition is not reversible")
	}
	if len(elements) == 0 {
		return nil, nil
	}
	state := e.Get()

	if rev.IsStateful() {
		out := make([]S, len(elements))
		memo := make(map[any]S)
		for i, el := range elements {
			key, keyed := identityKey(el.SourceValue())
			if keyed {
				if s, ok := memo[key]; ok {
					out[i] = s
					continue
				}
			}
			s, err := el.Set(value, state, false).Value()
			if err != nil {
				return nil, err
			}
			out[i] = s
			if keyed {
				memo[key] = s
			}
		}
		return out, nil
	}

	first := elements[0].SourceValue()
	allUpdates, sameSource := true, true
	for _, el := range elements {
		if !e.def.eq.Equivalent(el.CurrentValue(state), value) {
			allUpdates = false
			break
		}
		if sameSource && !e.sourceEq.Equivalent(el.SourceValue(), first) {
			sameSource = false
		}
	}
	if allUpdates {
		if sameSource {
			return []S{first}, nil
		}
		out := make([]S, len(elements))
		for i, el := range elements {
			out[i] = el.SourceValue()
		}
		return out, nil
	}

	s, err := e.reverse(value, e.values(state, false, nil, nil), false, false).Value()
	if err != nil {
		return nil, err
	}
	return []S{s}, nil
}

// values builds an evaluation context. A nil state means the current state.
func (e *Engine[S, T]) values(state *State, sourceChange bool, source func() S, previous func() T) *values[S, T] {
	if state == nil {
		state = e.Get()
	}
	return newValues(e.def, state, sourceChange, source, previous)
}

// evaluate runs the combination and applies the failure policy.
func (e *Engine[S, T]) evaluate(vals *values[S, T]) (T, error) {
	start := e.clock.Now()
	result, err := e.def.evaluate(vals)
	if e.metrics != nil {
		e.metrics.OnEvaluate(e.clock.Since(start))
	}
	if err != nil {
		return e.fail(err)
	}
	return result, nil
}

// mustEvaluate is evaluate for element and notification paths, where a
// propagated failure can only panic.
func (e *Engine[S, T]) mustEvaluate(vals *values[S, T]) T {
	result, err := e.evaluate(vals)
	if err != nil {
		panic(err)
	}
	return result
}

// fail records a combination failure and applies the failure policy.
func (e *Engine[S, T]) fail(err error) (T, error) {
	cerr := &CombinationError{Definition: e.def.id, Err: err}
	var stored error = cerr
	e.lastError.Store(&stored)
	e.errorHistory.push(cerr)

	capitan.Emit(context.Background(), CombinationFailed,
		KeyDefinition.Field(e.def.id),
		KeyError.Field(err.Error()),
	)
	if e.metrics != nil {
		e.metrics.OnCombinationFailure()
	}

	var zero T
	if e.def.opts.Failure == FailurePropagate {
		return zero, cerr
	}
	return zero, nil
}

// reverse answers updates without consulting the strategy, then delegates.
func (e *Engine[S, T]) reverse(value T, vals *values[S, T], add, test bool) ReverseResult[S] {
	rev := e.def.reverse
	if rev == nil {
		return e.rejected(unsupported("definition is not reversible"), test)
	}
	if !add && vals.HasPreviousResult() && e.def.eq.Equivalent(vals.PreviousResult(), value) {
		return Reversed(vals.CurrentSource())
	}
	r := rev.Reverse(value, vals, add, test)
	if r.err != nil {
		return e.rejected(r.err, test)
	}
	return r
}

// rejected reports committed rejections and wraps rej as a result.
func (e *Engine[S, T]) rejected(rej *RejectError, test bool) ReverseResult[S] {
	if !test {
		kind := kindName(rej)
		capitan.Emit(context.Background(), ReverseRejected,
			KeyDefinition.Field(e.def.id),
			KeyKind.Field(kind),
			KeyReason.Field(rej.Reason),
		)
		if e.metrics != nil {
			e.metrics.OnReverseRejected(kind)
		}
	}
	return ReverseResult[S]{err: rej}
}

// changed applies the fire rule to an old and next result.
func (e *Engine[S, T]) changed(old, next T) (Change[T], bool) {
	if e.def.opts.FireIfUnchanged || !e.def.eq.Equivalent(old, next) {
		return Change[T]{Old: old, New: next}, true
	}
	return Change[T]{}, false
}

// -----------------------------------------------------------------------------
// Value[*State]
// -----------------------------------------------------------------------------

// Get returns the current argument snapshot.
func (e *Engine[S, T]) Get() *State {
	if len(e.def.args) == 0 {
		return emptyState
	}
	if e.active.Load() {
		if s := e.current.Load(); s != nil {
			return s
		}
	}
	if s := e.cached.Load(); s != nil && s.version == e.sumVersions() {
		return s
	}
	s := e.snapshot()
	e.cached.Store(s)
	return s
}

// Version returns the composite version of the arguments.
func (e *Engine[S, T]) Version() uint64 {
	if e.active.Load() {
		if s := e.current.Load(); s != nil {
			return s.version
		}
	}
	return e.sumVersions()
}

// Changes subscribes fn and delivers the current state immediately.
func (e *Engine[S, T]) Changes(fn func(ChangeEvent[*State])) func() {
	e.publish.Lock()
	defer e.publish.Unlock()

	cancel := e.listeners.add(fn)
	s := e.Get()
	fn(ChangeEvent[*State]{Old: s, New: s, Initial: true})
	return cancel
}

// NoInitChanges subscribes fn to subsequent state changes.
func (e *Engine[S, T]) NoInitChanges(fn func(ChangeEvent[*State])) func() {
	return e.listeners.add(fn)
}

// Lock locks every argument in registration order.
func (e *Engine[S, T]) Lock(write bool) Transaction {
	held := make([]Transaction, 0, len(e.def.args))
	for _, arg := range e.def.args {
		held = append(held, arg.lock(write))
	}
	return releaseAll(held)
}

// TryLock locks every argument in registration order, or none of them.
func (e *Engine[S, T]) TryLock(write bool) (Transaction, bool) {
	held := make([]Transaction, 0, len(e.def.args))
	for _, arg := range e.def.args {
		tx, ok := arg.tryLock(write)
		if !ok {
			releaseAll(held)()
			return nil, false
		}
		held = append(held, tx)
	}
	return releaseAll(held), true
}

var _ Value[*State] = (*Engine[int, int])(nil)

// releaseAll releases transactions in reverse acquisition order.
func releaseAll(held []Transaction) Transaction {
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
}

// -----------------------------------------------------------------------------
// Argument tracking
// -----------------------------------------------------------------------------

// setActive subscribes to or releases the arguments. It runs under the
// listener registry lock when the first subscriber arrives or the last
// leaves.
func (e *Engine[S, T]) setActive(active bool) {
	ctx := context.Background()
	if !active {
		e.active.Store(false)
		subs := e.subs
		e.subs = nil
		for _, cancel := range subs {
			cancel()
		}
		e.current.Store(nil)
		capitan.Emit(ctx, EngineReleased, KeyDefinition.Field(e.def.id))
		return
	}

	// The engine is marked active before it subscribes, so any change that
	// notifies after subscription is republished by argChanged. A change that
	// committed before its subscription existed is caught by refresh.
	e.current.Store(e.snapshot())
	e.active.Store(true)
	for i, arg := range e.def.args {
		e.subs = append(e.subs, arg.subscribe(func() { e.argChanged(i) }))
	}
	e.refresh()
	capitan.Emit(ctx, EngineActivated,
		KeyDefinition.Field(e.def.id),
		KeyArgCount.Field(len(e.def.args)),
	)
}

// refresh replaces the published snapshot when an argument moved past it
// without a notification. It runs under the listener registry lock, so it
// cannot take the publish lock; a concurrent argChanged that stores a newer
// snapshot wins the swap.
func (e *Engine[S, T]) refresh() {
	for {
		cur := e.current.Load()
		if cur == nil || cur.version == e.sumVersions() {
			return
		}
		if e.current.CompareAndSwap(cur, e.snapshot()) {
			return
		}
	}
}

// argChanged republishes the snapshot after argument i changed. The other
// arguments are read-locked in registration order while the snapshot is
// taken. An argument that is mid-change on another goroutine cannot be
// locked without risking deadlock; it is read optimistically instead and its
// own change event republishes again.
func (e *Engine[S, T]) argChanged(i int) {
	e.publish.Lock()
	defer e.publish.Unlock()

	if !e.active.Load() {
		return
	}

	held := make([]Transaction, 0, len(e.def.args))
	for j, arg := range e.def.args {
		if j == i {
			continue
		}
		if tx, ok := arg.tryLock(false); ok {
			held = append(held, tx)
		}
	}
	old := e.current.Load()
	next := e.read()
	releaseAll(held)()

	e.current.Store(next)
	capitan.Emit(context.Background(), EngineStateChanged,
		KeyDefinition.Field(e.def.id),
		KeyArgIndex.Field(i),
		KeyVersion.Field(next.version),
	)
	if e.metrics != nil {
		e.metrics.OnEngineStateChange(next.version)
	}
	e.listeners.fire(ChangeEvent[*State]{Old: old, New: next})
}

// snapshot reads all arguments at a single point: versions are sampled on
// both sides of the reads until they agree. If the arguments keep moving, it
// read-locks the ones it can in registration order and reads once more.
func (e *Engine[S, T]) snapshot() *State {
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		s := e.read()
		if s.version == e.sumVersions() {
			return s
		}
	}
	held := make([]Transaction, 0, len(e.def.args))
	for _, arg := range e.def.args {
		if tx, ok := arg.tryLock(false); ok {
			held = append(held, tx)
		}
	}
	defer releaseAll(held)()
	return e.read()
}

func (e *Engine[S, T]) read() *State {
	n := len(e.def.args)
	s := &State{values: make([]any, n), versions: make([]uint64, n)}
	for j, arg := range e.def.args {
		s.values[j], s.versions[j] = arg.read()
		s.version += s.versions[j]
	}
	return s
}

func (e *Engine[S, T]) sumVersions() uint64 {
	var sum uint64
	for _, arg := range e.def.args {
		sum += arg.version()
	}
	return sum
}
