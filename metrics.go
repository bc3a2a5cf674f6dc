package xform

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on engine and capacitor events.
// See pkg/prometheus for a ready-made implementation.
type MetricsProvider interface {
	// OnEvaluate is called after every combination evaluation.
	OnEvaluate(duration time.Duration)

	// OnCombinationFailure is called when a combination function fails.
	OnCombinationFailure()

	// OnReverseRejected is called when a committed reversal is refused.
	// Kind is "unsupported" or "illegal_element".
	OnReverseRejected(kind string)

	// OnEngineStateChange is called when an engine republishes its argument
	// snapshot.
	OnEngineStateChange(version uint64)

	// OnHealthChange is called when a capacitor transitions between states.
	OnHealthChange(from, to Health)

	// OnProcessSuccess is called when a capacitor applies a value.
	// Duration is the time taken to decode, validate and run the pipeline.
	OnProcessSuccess(duration time.Duration)

	// OnProcessFailure is called when capacitor processing fails.
	// Stage is "decode", "validate" or "pipeline".
	OnProcessFailure(stage string, duration time.Duration)

	// OnChangeReceived is called when raw data is received from the watcher.
	OnChangeReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnEvaluate(_ time.Duration)                 {}
func (NoOpMetricsProvider) OnCombinationFailure()                      {}
func (NoOpMetricsProvider) OnReverseRejected(_ string)                 {}
func (NoOpMetricsProvider) OnEngineStateChange(_ uint64)               {}
func (NoOpMetricsProvider) OnHealthChange(_, _ Health)                 {}
func (NoOpMetricsProvider) OnProcessSuccess(_ time.Duration)           {}
func (NoOpMetricsProvider) OnProcessFailure(_ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnChangeReceived()                          {}
