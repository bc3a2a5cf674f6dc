/*
Package xform provides reactive, optionally reversible transformations of
values and lists.

A Definition maps a source of type S to a result of type T through a
combination function that may also read any number of reactive arguments.
When the source or an argument changes, derived values update and
subscribers see exactly one event per visible change. When the definition
carries a reverse strategy, edits to the derived value are written back to
the source.

# Definitions

Build a definition with New, register arguments with With and finish with
Build, Map or MapPrevious:

	rate := xform.NewValue(20)

	b := xform.New[int, int]()
	r := xform.With[int](b, rate)
	gross, err := b.
	    Reverse(xform.ReplaceSourceWith(func(g int, vals xform.Values[int, int]) (int, error) {
	        return g * 100 / (100 + r.Of(vals)), nil
	    }).Stateless()).
	    Build(func(net int, vals xform.Values[int, int]) (int, error) {
	        return net * (100 + r.Of(vals)) / 100, nil
	    })

Options on the Builder control caching, re-evaluation and event delivery.
They can also be loaded from JSON or YAML with DecodeOptions.

# Reversal

Two strategies are provided. ReplaceSource computes a new source from the
requested result; ModifySource mutates the current source in place.
Both accept filters that are AND-composed:

	rev := xform.Replace(func(y int) int { return y / 2 }).
	    RejectWith(nonNegative).
	    RejectAddWith(belowLimit)

Unless marked Inexact, a ReplaceSource reversal is checked by mapping the
new source forward again. A result that does not round trip is rejected
with ErrIllegalElement.

# Derived values and lists

Transform derives a reactive value from a source value, and MapList derives
a reactive list from a source list:

	src := xform.NewValue(1000)
	price := xform.Transform[int, int](src, gross)
	cancel := price.Changes(func(ev xform.ChangeEvent[int]) { ... })
	defer cancel()

	_ = price.Set(1800) // src becomes 1500

A derived value computes on demand while nobody observes it. The first
subscriber binds it to its source and arguments.

# Hot-reloaded arguments

A Capacitor watches a source of raw bytes, decodes and validates each
change, runs it through an optional pipz pipeline and publishes it. Because
a Capacitor is a Value, it can be used directly as an argument:

	tax := xform.NewCapacitor[Tax](xform.NewFileWatcher("tax.yaml")).
	    Codec(xform.YAMLCodec{})
	if err := tax.Start(ctx); err != nil {
	    return err
	}
	rate := xform.With[Tax](b, tax)

# Observability

Engines and capacitors emit capitan signals (see signals.go) and report to
an optional MetricsProvider. The pkg/prometheus package provides a
Prometheus-backed provider.
*/
package xform
