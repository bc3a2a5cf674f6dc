package xform

import (
	"errors"
	"fmt"
)

// FailurePolicy decides what happens when a combination function fails.
type FailurePolicy string

const (
	// FailureRecover records the failure, emits CombinationFailed and
	// substitutes the zero result. Notification chains keep running.
	FailureRecover FailurePolicy = "recover"

	// FailurePropagate returns the failure from Engine.Map and panics with
	// it on element and notification paths.
	FailurePropagate FailurePolicy = "propagate"
)

// Options are the behavioral flags of a Definition. They carry json and yaml
// tags so they can be loaded with a Codec or delivered by a Capacitor.
type Options struct {
	// NullToNull maps an absent source to the zero result without calling
	// the combination function.
	NullToNull bool `json:"null_to_null" yaml:"null_to_null"`

	// Cache makes elements store their source and result.
	Cache bool `json:"cache" yaml:"cache"`

	// ReEvalOnUpdate re-runs the combination even when the new source is
	// equivalent to the old one.
	ReEvalOnUpdate bool `json:"re_eval_on_update" yaml:"re_eval_on_update"`

	// FireIfUnchanged reports a change even when the new result is
	// equivalent to the old one.
	FireIfUnchanged bool `json:"fire_if_unchanged" yaml:"fire_if_unchanged"`

	// ManyToOne and OneToMany describe the mapping's cardinality for
	// collection consumers. The engine does not act on them.
	ManyToOne bool `json:"many_to_one" yaml:"many_to_one"`
	OneToMany bool `json:"one_to_many" yaml:"one_to_many"`

	// Failure is the combination failure policy. Default: FailureRecover.
	Failure FailurePolicy `json:"failure" yaml:"failure"`
}

// DefaultOptions returns the options a Builder starts with.
func DefaultOptions() Options {
	return Options{
		Cache:           true,
		ReEvalOnUpdate:  true,
		FireIfUnchanged: true,
		Failure:         FailureRecover,
	}
}

// Validate implements Validator.
func (o Options) Validate() error {
	switch o.Failure {
	case FailureRecover, FailurePropagate:
		return nil
	case "":
		return errors.New("failure policy is required")
	default:
		return fmt.Errorf("unknown failure policy %q", o.Failure)
	}
}

// DecodeOptions decodes data over DefaultOptions, so absent fields keep
// their defaults, and validates the result.
func DecodeOptions(codec Codec, data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := codec.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("unmarshal failed: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, fmt.Errorf("validation failed: %w", err)
	}
	return opts, nil
}

var _ Validator = Options{}
