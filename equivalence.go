package xform

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Equivalence decides whether two values are the same for the purposes of
// update suppression and round-trip validation.
type Equivalence[T any] interface {
	Equivalent(a, b T) bool
}

// EquivalenceFunc adapts a plain function to the Equivalence interface.
type EquivalenceFunc[T any] func(a, b T) bool

// Equivalent reports f(a, b).
func (f EquivalenceFunc[T]) Equivalent(a, b T) bool {
	return f(a, b)
}

// DefaultEquivalence compares values with reflect.DeepEqual.
func DefaultEquivalence[T any]() Equivalence[T] {
	return EquivalenceFunc[T](func(a, b T) bool {
		return reflect.DeepEqual(a, b)
	})
}

// Comparable compares values with ==.
func Comparable[T comparable]() Equivalence[T] {
	return EquivalenceFunc[T](func(a, b T) bool {
		return a == b
	})
}

// Identity treats two values as equivalent only when they are the same
// reference. Non-reference values fall back to ==, and values that cannot be
// compared are never equivalent.
func Identity[T any]() Equivalence[T] {
	return EquivalenceFunc[T](func(a, b T) bool {
		ka, okA := identityKey(a)
		kb, okB := identityKey(b)
		return okA && okB && ka == kb
	})
}

// CmpEquivalence compares values with cmp.Equal and the given options.
// Use cmpopts to ignore fields or tolerate float error.
func CmpEquivalence[T any](opts ...cmp.Option) Equivalence[T] {
	return EquivalenceFunc[T](func(a, b T) bool {
		return cmp.Equal(a, b, opts...)
	})
}

// refKey identifies a reference-typed value by its type and address.
type refKey struct {
	typ reflect.Type
	ptr uintptr
}

// identityKey returns a map key that is equal for two values exactly when
// they are the same reference (pointers, maps, slices, channels, funcs) or
// equal comparable values. It reports false for values with no usable key.
func identityKey(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return refKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	}
	// Value.Comparable also checks the dynamic values held in interface
	// fields, which == would panic on.
	if rv.Comparable() {
		return v, true
	}
	return nil, false
}

// isNil reports whether v is an absent value: a nil interface or a nil
// pointer, map, slice, channel or func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
