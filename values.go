package xform

// Values is the context a combination function or reverse strategy is
// evaluated against.
type Values[S, T any] interface {
	ArgLookup

	// IsSourceChange reports whether the evaluation was caused by the source
	// changing, as opposed to an argument.
	IsSourceChange() bool

	// CurrentSource returns the source value. It is the zero value when the
	// evaluation has no source, such as a reversal for an addition.
	CurrentSource() S

	// HasPreviousResult reports whether PreviousResult is meaningful.
	HasPreviousResult() bool

	// PreviousResult returns the result last produced for this source.
	PreviousResult() T

	// Has reports whether arg is registered with the definition.
	Has(arg ArgHandle) bool
}

// values is the lazily memoized Values implementation.
type values[S, T any] struct {
	def          *Definition[S, T]
	state        *State
	sourceChange bool

	sourceFn   func() S
	source     S
	sourceDone bool

	previousFn   func() T
	previous     T
	previousDone bool
}

func newValues[S, T any](def *Definition[S, T], state *State, sourceChange bool, source func() S, previous func() T) *values[S, T] {
	return &values[S, T]{
		def:          def,
		state:        state,
		sourceChange: sourceChange,
		sourceFn:     source,
		previousFn:   previous,
	}
}

func (v *values[S, T]) IsSourceChange() bool {
	return v.sourceChange
}

func (v *values[S, T]) CurrentSource() S {
	if !v.sourceDone {
		if v.sourceFn != nil {
			v.source = v.sourceFn()
		}
		v.sourceDone = true
	}
	return v.source
}

func (v *values[S, T]) HasPreviousResult() bool {
	return v.previousFn != nil
}

func (v *values[S, T]) PreviousResult() T {
	if !v.previousDone {
		if v.previousFn != nil {
			v.previous = v.previousFn()
		}
		v.previousDone = true
	}
	return v.previous
}

func (v *values[S, T]) Has(arg ArgHandle) bool {
	_, err := v.def.ArgIndex(arg)
	return err == nil
}

func (v *values[S, T]) Get(arg ArgHandle) (any, error) {
	i, err := v.def.ArgIndex(arg)
	if err != nil {
		return nil, err
	}
	return v.state.At(i), nil
}
