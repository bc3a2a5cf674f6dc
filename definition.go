package xform

import (
	"fmt"

	"github.com/google/uuid"
)

// Combination derives a result from a source and the argument values in vals.
type Combination[S, T any] func(source S, vals Values[S, T]) (T, error)

// Definition is an immutable transformation: arguments, combination,
// result equivalence, options and an optional reverse strategy.
type Definition[S, T any] struct {
	id      string
	reg     *registry
	args    []argSource
	combine Combination[S, T]
	eq      Equivalence[T]
	opts    Options
	reverse Reverse[S, T]
}

// ID is a unique identifier used on signals and errors.
func (d *Definition[S, T]) ID() string {
	return d.id
}

// Options returns the definition's flags.
func (d *Definition[S, T]) Options() Options {
	return d.opts
}

// NumArgs returns the number of registered arguments.
func (d *Definition[S, T]) NumArgs() int {
	return len(d.args)
}

// ArgIndex returns the index arg was registered at.
func (d *Definition[S, T]) ArgIndex(arg ArgHandle) (int, error) {
	if arg == nil {
		return -1, ErrUnrecognizedArgument
	}
	owner, i := arg.handle()
	if owner != d.reg || i < 0 || i >= len(d.args) {
		return -1, ErrUnrecognizedArgument
	}
	return i, nil
}

// Equivalence returns the result equivalence.
func (d *Definition[S, T]) Equivalence() Equivalence[T] {
	return d.eq
}

// Reverse returns the reverse strategy, or nil if the definition is one-way.
func (d *Definition[S, T]) Reverse() Reverse[S, T] {
	return d.reverse
}

// IsReversible reports whether a reverse strategy is configured.
func (d *Definition[S, T]) IsReversible() bool {
	return d.reverse != nil
}

// WithEquivalence returns a copy of d that compares results with eq.
func (d *Definition[S, T]) WithEquivalence(eq Equivalence[T]) *Definition[S, T] {
	next := *d
	next.eq = eq
	if d.reverse != nil {
		next.reverse = d.reverse.bind(&next)
	}
	return &next
}

// evaluate runs the combination for the source in vals, honoring NullToNull.
// Panics raised by the combination are returned as errors.
func (d *Definition[S, T]) evaluate(vals Values[S, T]) (result T, err error) {
	source := vals.CurrentSource()
	if d.opts.NullToNull && isNil(source) {
		return result, nil
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.combine(source, vals)
}

// Builder accumulates arguments and options for a Definition.
type Builder[S, T any] struct {
	reg     *registry
	opts    Options
	eq      Equivalence[T]
	reverse Reverse[S, T]
	hasRev  bool
	err     error
}

// New starts a definition mapping S to T with DefaultOptions.
func New[S, T any]() *Builder[S, T] {
	return &Builder[S, T]{
		reg:  &registry{},
		opts: DefaultOptions(),
		eq:   DefaultEquivalence[T](),
	}
}

// With registers v as an argument of b and returns its handle. Registering a
// value that is already registered fails the eventual Build.
func With[V, S, T any](b *Builder[S, T], v Value[V]) *Arg[V] {
	arg := &Arg[V]{owner: b.reg, index: len(b.reg.args), value: v}
	if v == nil {
		b.fail(ErrNilArgument)
		return arg
	}
	if id, ok := arg.identity(); ok {
		for i, existing := range b.reg.args {
			if other, ok := existing.identity(); ok && other == id {
				b.fail(fmt.Errorf("%w: already at index %d", ErrDuplicateArgument, i))
				return arg
			}
		}
	}
	b.reg.args = append(b.reg.args, arg)
	return arg
}

func (b *Builder[S, T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// NullToNull sets Options.NullToNull.
func (b *Builder[S, T]) NullToNull(v bool) *Builder[S, T] {
	b.opts.NullToNull = v
	return b
}

// Cache sets Options.Cache.
func (b *Builder[S, T]) Cache(v bool) *Builder[S, T] {
	b.opts.Cache = v
	return b
}

// ReEvalOnUpdate sets Options.ReEvalOnUpdate.
func (b *Builder[S, T]) ReEvalOnUpdate(v bool) *Builder[S, T] {
	b.opts.ReEvalOnUpdate = v
	return b
}

// FireIfUnchanged sets Options.FireIfUnchanged.
func (b *Builder[S, T]) FireIfUnchanged(v bool) *Builder[S, T] {
	b.opts.FireIfUnchanged = v
	return b
}

// ManyToOne sets Options.ManyToOne.
func (b *Builder[S, T]) ManyToOne(v bool) *Builder[S, T] {
	b.opts.ManyToOne = v
	return b
}

// OneToMany sets Options.OneToMany.
func (b *Builder[S, T]) OneToMany(v bool) *Builder[S, T] {
	b.opts.OneToMany = v
	return b
}

// Failure sets the combination failure policy.
func (b *Builder[S, T]) Failure(p FailurePolicy) *Builder[S, T] {
	b.opts.Failure = p
	return b
}

// Options replaces all flags at once, typically with values decoded by
// DecodeOptions.
func (b *Builder[S, T]) Options(o Options) *Builder[S, T] {
	b.opts = o
	return b
}

// Equivalence sets the result equivalence. Default: DefaultEquivalence.
func (b *Builder[S, T]) Equivalence(eq Equivalence[T]) *Builder[S, T] {
	b.eq = eq
	return b
}

// Reverse makes the definition reversible with r, built by Replace,
// ReplaceSourceWith, Modify or ModifySourceWith.
func (b *Builder[S, T]) Reverse(r Reverse[S, T]) *Builder[S, T] {
	b.reverse = r
	b.hasRev = true
	return b
}

// Build validates the configuration and returns the definition.
func (b *Builder[S, T]) Build(fn Combination[S, T]) (*Definition[S, T], error) {
	if b.err != nil {
		return nil, b.err
	}
	if fn == nil {
		return nil, ErrNilCombination
	}
	if b.eq == nil {
		b.eq = DefaultEquivalence[T]()
	}
	if err := b.opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if b.hasRev {
		if b.reverse == nil || !b.reverse.valid() {
			return nil, ErrNilReverse
		}
		if b.reverse.isInexact() && len(b.reg.args) > 0 {
			return nil, ErrInexactWithArguments
		}
	}

	d := &Definition[S, T]{
		id:      uuid.NewString(),
		reg:     b.reg,
		args:    append([]argSource(nil), b.reg.args...),
		combine: fn,
		eq:      b.eq,
		opts:    b.opts,
	}
	if b.hasRev {
		d.reverse = b.reverse.bind(d)
	}
	return d, nil
}

// Map builds a definition from a function of the source alone.
func (b *Builder[S, T]) Map(fn func(S) T) (*Definition[S, T], error) {
	if fn == nil {
		return nil, ErrNilCombination
	}
	return b.Build(func(s S, _ Values[S, T]) (T, error) {
		return fn(s), nil
	})
}

// MapPrevious builds a definition from a function of the source and the
// previous result. The previous result is the zero value when there is none.
func (b *Builder[S, T]) MapPrevious(fn func(source S, previous T) T) (*Definition[S, T], error) {
	if fn == nil {
		return nil, ErrNilCombination
	}
	return b.Build(func(s S, vals Values[S, T]) (T, error) {
		return fn(s, vals.PreviousResult()), nil
	})
}
