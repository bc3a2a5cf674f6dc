package xform

import (
	"errors"
	"fmt"
	"slices"
)

// Reverse pushes an edited result back onto the source. The two
// implementations are ReplaceSource, which produces a new source, and
// ModifySource, which mutates the existing one.
type Reverse[S, T any] interface {
	// IsStateful reports whether reversal depends on the current source or
	// previous result. Stateless reversals can be shared across elements.
	IsStateful() bool

	// IsEnabled returns the reason no reversal can currently succeed, or nil.
	IsEnabled(vals Values[S, T]) error

	// Reverse produces a source for value. With add it builds a new source
	// for an addition instead of a replacement for the current one. With
	// test it only checks feasibility and commits nothing.
	Reverse(value T, vals Values[S, T], add, test bool) ReverseResult[S]

	modifiesSource() bool
	isInexact() bool
	valid() bool
	bind(d *Definition[S, T]) Reverse[S, T]
}

// ReverseResult is either a reversed source value or the reason reversal
// was refused.
type ReverseResult[S any] struct {
	value S
	err   *RejectError
}

// Reversed wraps a successfully reversed source.
func Reversed[S any](v S) ReverseResult[S] {
	return ReverseResult[S]{value: v}
}

// Rejected wraps a refusal. Errors that are not a *RejectError are treated
// as illegal elements.
func Rejected[S any](err error) ReverseResult[S] {
	if err == nil {
		err = illegal("rejected")
	}
	return ReverseResult[S]{err: asReject(err)}
}

// OK reports whether the result carries a value.
func (r ReverseResult[S]) OK() bool {
	return r.err == nil
}

// Err returns the rejection, or nil.
func (r ReverseResult[S]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Reason returns the rejection reason, or "" when the result is a value.
func (r ReverseResult[S]) Reason() string {
	if r.err == nil {
		return ""
	}
	return r.err.Reason
}

// Value unwraps the result. A rejected result returns its *RejectError.
func (r ReverseResult[S]) Value() (S, error) {
	if r.err != nil {
		var zero S
		return zero, r.err
	}
	return r.value, nil
}

// filters holds the predicate chains shared by both strategies. Each chain
// is evaluated in insertion order and stops at the first rejection; later
// configuration only ever appends.
type filters[S, T any] struct {
	enable    []func(Values[S, T]) error
	accept    []func(T, Values[S, T]) error
	acceptAdd []func(T, Values[S, T]) error
	creator   func(T, Values[S, T], bool) (S, error)
	stateful  bool
}

func (f filters[S, T]) isEnabled(vals Values[S, T]) error {
	for _, fn := range f.enable {
		if err := fn(vals); err != nil {
			return err
		}
	}
	return nil
}

func (f filters[S, T]) check(value T, vals Values[S, T], add bool) error {
	chain := f.accept
	if add {
		chain = f.acceptAdd
	}
	for _, fn := range chain {
		if err := fn(value, vals); err != nil {
			return err
		}
	}
	return nil
}

func (f filters[S, T]) disableWith(fn func(Values[S, T]) error) filters[S, T] {
	f.enable = append(slices.Clip(f.enable), fn)
	return f
}

func (f filters[S, T]) rejectWith(fn func(T, Values[S, T]) error) filters[S, T] {
	f.accept = append(slices.Clip(f.accept), fn)
	f.acceptAdd = append(slices.Clip(f.acceptAdd), fn)
	return f
}

func (f filters[S, T]) rejectSourceWith(fn func(S, T) error) filters[S, T] {
	f.accept = append(slices.Clip(f.accept), func(v T, vals Values[S, T]) error {
		return fn(vals.CurrentSource(), v)
	})
	f.stateful = true
	return f
}

func (f filters[S, T]) rejectAddWith(fn func(T, Values[S, T]) error) filters[S, T] {
	f.acceptAdd = append(slices.Clip(f.acceptAdd), fn)
	return f
}

// add runs the addition path: creator present, add filters, then creator.
func (f filters[S, T]) add(value T, vals Values[S, T], test bool) (S, *RejectError) {
	var zero S
	if f.creator == nil {
		return zero, unsupported("additions are not supported")
	}
	if err := f.check(value, vals, true); err != nil {
		return zero, asReject(err)
	}
	s, err := f.creator(value, vals, !test)
	if err != nil {
		return zero, asReject(err)
	}
	return s, nil
}

// ReplaceSource reverses by computing a new source from the edited result.
// Unless Inexact is set, every reversal is checked by mapping the new source
// forward again and comparing with the requested result.
type ReplaceSource[S, T any] struct {
	fn      func(T, Values[S, T]) (S, error)
	f       filters[S, T]
	inexact bool
	def     *Definition[S, T]
}

// Replace reverses with a function of the result alone. The same function
// creates sources for additions.
func Replace[S, T any](fn func(T) S) ReplaceSource[S, T] {
	if fn == nil {
		return ReplaceSource[S, T]{}
	}
	r := ReplaceSource[S, T]{
		fn: func(v T, _ Values[S, T]) (S, error) { return fn(v), nil },
	}
	r.f.creator = func(v T, _ Values[S, T], _ bool) (S, error) { return fn(v), nil }
	return r
}

// ReplaceSourceWith reverses with a function that may read the current
// source, previous result and arguments. It is stateful unless Stateless is
// called. The same function creates sources for additions.
func ReplaceSourceWith[S, T any](fn func(T, Values[S, T]) (S, error)) ReplaceSource[S, T] {
	if fn == nil {
		return ReplaceSource[S, T]{}
	}
	r := ReplaceSource[S, T]{fn: fn}
	r.f.creator = func(v T, vals Values[S, T], _ bool) (S, error) { return fn(v, vals) }
	r.f.stateful = true
	return r
}

// Inexact skips the round-trip check. A definition with arguments cannot
// use an inexact reverse.
func (r ReplaceSource[S, T]) Inexact(v bool) ReplaceSource[S, T] {
	r.inexact = v
	return r
}

// Stateless declares that the reverse function reads only the result and
// arguments, so one reversal can serve many elements.
func (r ReplaceSource[S, T]) Stateless() ReplaceSource[S, T] {
	r.f.stateful = false
	return r
}

// DisableWith adds a predicate that disables reversal entirely.
func (r ReplaceSource[S, T]) DisableWith(fn func(Values[S, T]) error) ReplaceSource[S, T] {
	r.f = r.f.disableWith(fn)
	return r
}

// RejectWith adds a predicate on the requested result for sets and adds.
func (r ReplaceSource[S, T]) RejectWith(fn func(T, Values[S, T]) error) ReplaceSource[S, T] {
	r.f = r.f.rejectWith(fn)
	return r
}

// RejectSourceWith adds a predicate on the current source and requested
// result for sets. It makes the reversal stateful.
func (r ReplaceSource[S, T]) RejectSourceWith(fn func(S, T) error) ReplaceSource[S, T] {
	r.f = r.f.rejectSourceWith(fn)
	return r
}

// RejectAddWith adds a predicate on the requested result for adds.
func (r ReplaceSource[S, T]) RejectAddWith(fn func(T, Values[S, T]) error) ReplaceSource[S, T] {
	r.f = r.f.rejectAddWith(fn)
	return r
}

// CreateWith sets the creator used for additions. The commit flag is false
// when the caller is only testing feasibility.
func (r ReplaceSource[S, T]) CreateWith(fn func(v T, vals Values[S, T], commit bool) (S, error)) ReplaceSource[S, T] {
	r.f.creator = fn
	return r
}

// IsStateful implements Reverse.
func (r ReplaceSource[S, T]) IsStateful() bool {
	return r.f.stateful
}

// IsEnabled implements Reverse.
func (r ReplaceSource[S, T]) IsEnabled(vals Values[S, T]) error {
	return r.f.isEnabled(vals)
}

// Reverse implements Reverse.
func (r ReplaceSource[S, T]) Reverse(value T, vals Values[S, T], add, test bool) ReverseResult[S] {
	var source S
	if add {
		s, rej := r.f.add(value, vals, test)
		if rej != nil {
			return ReverseResult[S]{err: rej}
		}
		source = s
	} else {
		if err := r.f.isEnabled(vals); err != nil {
			return Rejected[S](err)
		}
		if err := r.f.check(value, vals, false); err != nil {
			return Rejected[S](err)
		}
		s, err := r.fn(value, vals)
		if err != nil {
			return Rejected[S](err)
		}
		source = s
	}
	if rej := r.roundTrip(value, source, vals); rej != nil {
		return ReverseResult[S]{err: rej}
	}
	return Reversed(source)
}

// roundTrip maps source forward and rejects it unless the result is
// equivalent to value. An exact strategy that was never attached to a
// definition has nothing to map forward with and refuses every value.
func (r ReplaceSource[S, T]) roundTrip(value T, source S, vals Values[S, T]) *RejectError {
	if r.inexact {
		return nil
	}
	if r.def == nil {
		return unsupported("exact reversal is not attached to a definition")
	}
	got, err := r.def.evaluate(replacedValues[S, T]{Values: vals, source: source, previous: value})
	if err != nil {
		return &RejectError{Kind: ErrIllegalElement, Reason: fmt.Sprintf("round trip failed: %v", err), cause: err}
	}
	if !r.def.eq.Equivalent(got, value) {
		return illegal(fmt.Sprintf("%v does not round trip, maps back to %v", value, got))
	}
	return nil
}

func (r ReplaceSource[S, T]) modifiesSource() bool { return false }
func (r ReplaceSource[S, T]) isInexact() bool      { return r.inexact }
func (r ReplaceSource[S, T]) valid() bool          { return r.fn != nil }

func (r ReplaceSource[S, T]) bind(d *Definition[S, T]) Reverse[S, T] {
	r.def = d
	return r
}

// replacedValues presents a candidate source to the round-trip evaluation
// with the requested result as the previous one.
type replacedValues[S, T any] struct {
	Values[S, T]
	source   S
	previous T
}

func (v replacedValues[S, T]) IsSourceChange() bool    { return true }
func (v replacedValues[S, T]) CurrentSource() S        { return v.source }
func (v replacedValues[S, T]) HasPreviousResult() bool { return true }
func (v replacedValues[S, T]) PreviousResult() T       { return v.previous }

// ErrNoSource is the default ModifySource enablement failure.
var ErrNoSource = errors.New("no source value")

// ModifySource reverses by mutating the current source in place. It is
// always stateful. Additions need a creator set with CreateWith.
type ModifySource[S, T any] struct {
	fn func(T, Values[S, T]) error
	f  filters[S, T]
}

// Modify reverses by calling fn with the current source and edited result.
func Modify[S, T any](fn func(source S, value T)) ModifySource[S, T] {
	if fn == nil {
		return newModifySource[S, T](nil)
	}
	return newModifySource(func(v T, vals Values[S, T]) error {
		fn(vals.CurrentSource(), v)
		return nil
	})
}

// ModifySourceWith reverses by calling fn, which reaches the source through
// vals.CurrentSource.
func ModifySourceWith[S, T any](fn func(T, Values[S, T]) error) ModifySource[S, T] {
	return newModifySource(fn)
}

func newModifySource[S, T any](fn func(T, Values[S, T]) error) ModifySource[S, T] {
	m := ModifySource[S, T]{fn: fn}
	m.f.stateful = true
	m.f.enable = []func(Values[S, T]) error{
		func(vals Values[S, T]) error {
			if isNil(vals.CurrentSource()) {
				return ErrNoSource
			}
			return nil
		},
	}
	return m
}

// DisableWith adds a predicate that disables reversal entirely.
func (m ModifySource[S, T]) DisableWith(fn func(Values[S, T]) error) ModifySource[S, T] {
	m.f = m.f.disableWith(fn)
	return m
}

// RejectWith adds a predicate on the requested result for sets and adds.
func (m ModifySource[S, T]) RejectWith(fn func(T, Values[S, T]) error) ModifySource[S, T] {
	m.f = m.f.rejectWith(fn)
	return m
}

// RejectSourceWith adds a predicate on the current source and requested
// result for sets.
func (m ModifySource[S, T]) RejectSourceWith(fn func(S, T) error) ModifySource[S, T] {
	m.f = m.f.rejectSourceWith(fn)
	return m
}

// RejectAddWith adds a predicate on the requested result for adds.
func (m ModifySource[S, T]) RejectAddWith(fn func(T, Values[S, T]) error) ModifySource[S, T] {
	m.f = m.f.rejectAddWith(fn)
	return m
}

// CreateWith enables additions through fn.
func (m ModifySource[S, T]) CreateWith(fn func(v T, vals Values[S, T], commit bool) (S, error)) ModifySource[S, T] {
	m.f.creator = fn
	return m
}

// IsStateful implements Reverse. It is always true.
func (m ModifySource[S, T]) IsStateful() bool {
	return true
}

// IsEnabled implements Reverse.
func (m ModifySource[S, T]) IsEnabled(vals Values[S, T]) error {
	return m.f.isEnabled(vals)
}

// Reverse implements Reverse. A successful set returns the current source,
// mutated unless test is set.
func (m ModifySource[S, T]) Reverse(value T, vals Values[S, T], add, test bool) ReverseResult[S] {
	if add {
		s, rej := m.f.add(value, vals, test)
		if rej != nil {
			return ReverseResult[S]{err: rej}
		}
		return Reversed(s)
	}
	if err := m.f.isEnabled(vals); err != nil {
		return Rejected[S](err)
	}
	if err := m.f.check(value, vals, false); err != nil {
		return Rejected[S](err)
	}
	if !test {
		if err := m.fn(value, vals); err != nil {
			return Rejected[S](err)
		}
	}
	return Reversed(vals.CurrentSource())
}

func (m ModifySource[S, T]) modifiesSource() bool { return true }
func (m ModifySource[S, T]) isInexact() bool      { return false }
func (m ModifySource[S, T]) valid() bool          { return m.fn != nil }

func (m ModifySource[S, T]) bind(*Definition[S, T]) Reverse[S, T] {
	return m
}
