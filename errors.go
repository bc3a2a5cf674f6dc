package xform

import (
	"errors"
	"fmt"
)

// Rejection kinds. A *RejectError unwraps to one of these.
var (
	// ErrUnsupported reports that no reverse strategy is configured, or an
	// addition was requested without a creator.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrIllegalElement reports that a filter rejected the value or that an
	// exact reversal did not round-trip.
	ErrIllegalElement = errors.New("illegal element")
)

// ErrUnrecognizedArgument is returned when an argument handle is looked up on
// a definition it was never registered with.
var ErrUnrecognizedArgument = errors.New("unrecognized argument")

// Construction errors, returned by the Builder terminal calls.
var (
	ErrNilCombination       = errors.New("combination function is nil")
	ErrNilReverse           = errors.New("reverse function is nil")
	ErrNilArgument          = errors.New("argument value is nil")
	ErrDuplicateArgument    = errors.New("argument registered twice")
	ErrInexactWithArguments = errors.New("inexact reverse cannot be combined with arguments")
)

// RejectError is the reason a reversal was refused.
type RejectError struct {
	Kind   error
	Reason string
	cause  error
}

// Error implements error.
func (e *RejectError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes both the kind sentinel and the filter error, if any.
func (e *RejectError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// unsupported builds a rejection of kind ErrUnsupported.
func unsupported(reason string) *RejectError {
	return &RejectError{Kind: ErrUnsupported, Reason: reason}
}

// illegal builds a rejection of kind ErrIllegalElement.
func illegal(reason string) *RejectError {
	return &RejectError{Kind: ErrIllegalElement, Reason: reason}
}

// asReject converts a filter or reverse function error into a rejection.
// Errors that already are rejections pass through unchanged; anything else
// is an illegal element carrying the original error.
func asReject(err error) *RejectError {
	var re *RejectError
	if errors.As(err, &re) {
		return re
	}
	return &RejectError{Kind: ErrIllegalElement, Reason: err.Error(), cause: err}
}

// kindName is the short label used on signals and metrics.
func kindName(err error) string {
	switch {
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrIllegalElement):
		return "illegal_element"
	default:
		return "unknown"
	}
}

// CombinationError wraps a failure raised by a combination function, either
// a returned error or a recovered panic.
type CombinationError struct {
	Definition string
	Err        error
}

// Error implements error.
func (e *CombinationError) Error() string {
	return fmt.Sprintf("combination %s failed: %v", e.Definition, e.Err)
}

// Unwrap returns the underlying failure.
func (e *CombinationError) Unwrap() error {
	return e.Err
}
