package xform

// Change is the externally visible effect of a stimulus on an element.
type Change[T any] struct {
	Old T
	New T
}

// Element binds one source to its transformed result.
//
// Elements do no locking. Every call must be made while the caller holds the
// exclusive transaction of the value or collection that owns the element;
// TransformedValue and MappedList do this with their own mutex.
type Element[S, T any] interface {
	// SourceValue returns the element's source.
	SourceValue() S

	// CurrentValue returns the element's result under state.
	CurrentValue(state *State) T

	// CurrentValueFor returns the result source would have under state.
	CurrentValueFor(source S, state *State) T

	// SourceChanged processes a source notification. It reports a change
	// unless the result is equivalent to the old one and FireIfUnchanged is
	// off.
	SourceChanged(old, next S, state *State) (Change[T], bool)

	// StateChanged processes an argument snapshot change.
	StateChanged(old, next *State) (Change[T], bool)

	// IsEnabled returns why the element cannot currently be set, or nil.
	IsEnabled(state *State) error

	// Set reverses value onto the element's source. A value equivalent to
	// the known result is an update and reverses to the current source.
	Set(value T, state *State, test bool) ReverseResult[S]
}

// cachedElement stores its source and result, updated only by notifications.
type cachedElement[S, T any] struct {
	engine *Engine[S, T]
	source S
	result T
}

func newCachedElement[S, T any](e *Engine[S, T], supplier func() S) *cachedElement[S, T] {
	c := &cachedElement[S, T]{engine: e, source: supplier()}
	c.result = e.mustEvaluate(e.values(nil, false, c.sourceFn, nil))
	return c
}

func (c *cachedElement[S, T]) sourceFn() S   { return c.source }
func (c *cachedElement[S, T]) previousFn() T { return c.result }

func (c *cachedElement[S, T]) SourceValue() S {
	return c.source
}

func (c *cachedElement[S, T]) CurrentValue(*State) T {
	return c.result
}

func (c *cachedElement[S, T]) CurrentValueFor(source S, state *State) T {
	if c.engine.sourceEq.Equivalent(source, c.source) {
		return c.result
	}
	return c.engine.mustEvaluate(c.engine.values(state, false, func() S { return source }, nil))
}

func (c *cachedElement[S, T]) SourceChanged(old, next S, state *State) (Change[T], bool) {
	e := c.engine
	reEval := e.def.opts.ReEvalOnUpdate || !e.sourceEq.Equivalent(old, next)
	if !reEval && !e.def.opts.FireIfUnchanged {
		c.source = next
		return Change[T]{}, false
	}
	oldResult := c.result
	newResult := oldResult
	if reEval {
		newResult = e.mustEvaluate(e.values(state, true, func() S { return next }, c.previousFn))
	}
	c.source, c.result = next, newResult
	return e.changed(oldResult, newResult)
}

func (c *cachedElement[S, T]) StateChanged(_, next *State) (Change[T], bool) {
	e := c.engine
	oldResult := c.result
	newResult := e.mustEvaluate(e.values(next, false, c.sourceFn, c.previousFn))
	c.result = newResult
	return e.changed(oldResult, newResult)
}

func (c *cachedElement[S, T]) IsEnabled(state *State) error {
	rev := c.engine.def.reverse
	if rev == nil {
		return nil
	}
	return rev.IsEnabled(c.engine.values(state, false, c.sourceFn, c.previousFn))
}

func (c *cachedElement[S, T]) Set(value T, state *State, test bool) ReverseResult[S] {
	return c.engine.reverse(value, c.engine.values(state, false, c.sourceFn, c.previousFn), false, test)
}

// dynamicElement stores nothing and recomputes on every read.
type dynamicElement[S, T any] struct {
	engine *Engine[S, T]
	source func() S
}

func (d *dynamicElement[S, T]) SourceValue() S {
	return d.source()
}

func (d *dynamicElement[S, T]) CurrentValue(state *State) T {
	return d.engine.mustEvaluate(d.engine.values(state, false, d.source, nil))
}

func (d *dynamicElement[S, T]) CurrentValueFor(source S, state *State) T {
	return d.engine.mustEvaluate(d.engine.values(state, false, func() S { return source }, nil))
}

func (d *dynamicElement[S, T]) SourceChanged(old, next S, state *State) (Change[T], bool) {
	e := d.engine
	reEval := e.def.opts.ReEvalOnUpdate || !e.sourceEq.Equivalent(old, next)
	if !reEval && !e.def.opts.FireIfUnchanged {
		return Change[T]{}, false
	}
	oldResult := e.mustEvaluate(e.values(state, false, func() S { return old }, nil))
	newResult := oldResult
	if reEval {
		newResult = e.mustEvaluate(e.values(state, true, func() S { return next }, func() T { return oldResult }))
	}
	return e.changed(oldResult, newResult)
}

func (d *dynamicElement[S, T]) StateChanged(old, next *State) (Change[T], bool) {
	e := d.engine
	source := d.source()
	oldResult := e.mustEvaluate(e.values(old, false, func() S { return source }, nil))
	newResult := e.mustEvaluate(e.values(next, false, func() S { return source }, func() T { return oldResult }))
	return e.changed(oldResult, newResult)
}

func (d *dynamicElement[S, T]) IsEnabled(state *State) error {
	rev := d.engine.def.reverse
	if rev == nil {
		return nil
	}
	return rev.IsEnabled(d.engine.values(state, false, d.source, nil))
}

func (d *dynamicElement[S, T]) Set(value T, state *State, test bool) ReverseResult[S] {
	return d.engine.reverse(value, d.engine.values(state, false, d.source, nil), false, test)
}
