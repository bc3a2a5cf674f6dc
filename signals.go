package xform

import "github.com/zoobzio/capitan"

// Engine lifecycle signals.
var (
	// EngineActivated is emitted when an engine gains its first subscriber
	// and starts tracking its arguments.
	EngineActivated = capitan.NewSignal(
		"xform.engine.activated",
		"Engine started tracking arguments",
	)

	// EngineReleased is emitted when the last subscriber leaves and argument
	// subscriptions are released.
	EngineReleased = capitan.NewSignal(
		"xform.engine.released",
		"Engine released argument subscriptions",
	)

	// EngineStateChanged is emitted when an argument change produces a new
	// argument snapshot.
	EngineStateChanged = capitan.NewSignal(
		"xform.engine.state.changed",
		"Argument snapshot republished",
	)
)

// Evaluation signals.
var (
	// CombinationFailed is emitted when a combination function returns an
	// error or panics.
	CombinationFailed = capitan.NewSignal(
		"xform.combination.failed",
		"Combination function failed",
	)

	// ReverseRejected is emitted when a committed reversal is refused.
	ReverseRejected = capitan.NewSignal(
		"xform.reverse.rejected",
		"Reverse rejected",
	)
)

// Capacitor lifecycle signals.
var (
	// CapacitorStarted is emitted when a Capacitor begins watching.
	CapacitorStarted = capitan.NewSignal(
		"xform.capacitor.started",
		"Capacitor watching started",
	)

	// CapacitorStopped is emitted when a Capacitor stops watching.
	CapacitorStopped = capitan.NewSignal(
		"xform.capacitor.stopped",
		"Capacitor watching stopped",
	)

	// CapacitorHealthChanged is emitted when a Capacitor transitions between
	// health states.
	CapacitorHealthChanged = capitan.NewSignal(
		"xform.capacitor.health.changed",
		"Capacitor health transition",
	)
)

// WatcherFailed is emitted when a watcher reports an error it recovers
// from.
var WatcherFailed = capitan.NewSignal(
	"xform.watcher.failed",
	"Watcher error",
)

// Capacitor change processing signals.
var (
	// CapacitorChangeReceived is emitted when raw data is received from the watcher.
	CapacitorChangeReceived = capitan.NewSignal(
		"xform.capacitor.change.received",
		"Raw change received from watcher",
	)

	// CapacitorDecodeFailed is emitted when the codec cannot decode a change.
	CapacitorDecodeFailed = capitan.NewSignal(
		"xform.capacitor.decode.failed",
		"Decoding failed",
	)

	// CapacitorValidationFailed is emitted when validation fails.
	CapacitorValidationFailed = capitan.NewSignal(
		"xform.capacitor.validation.failed",
		"Validation failed",
	)

	// CapacitorPipelineFailed is emitted when the processing pipeline fails.
	CapacitorPipelineFailed = capitan.NewSignal(
		"xform.capacitor.pipeline.failed",
		"Pipeline failed",
	)

	// CapacitorApplied is emitted when a value is stored and published.
	CapacitorApplied = capitan.NewSignal(
		"xform.capacitor.applied",
		"Value applied",
	)
)
