package xform

import "github.com/zoobzio/capitan"

// Field keys for engine events.
var (
	// KeyDefinition is the ID of the definition an engine runs.
	KeyDefinition = capitan.NewStringKey("definition")

	// KeyArgIndex is the index of the argument that changed.
	KeyArgIndex = capitan.NewIntKey("arg_index")

	// KeyArgCount is the number of arguments an engine tracks.
	KeyArgCount = capitan.NewIntKey("arg_count")

	// KeyVersion is the composite version of a new argument snapshot.
	KeyVersion = capitan.NewUint64Key("version")

	// KeyKind is the rejection kind: "unsupported" or "illegal_element".
	KeyKind = capitan.NewStringKey("kind")

	// KeyReason is the rejection reason.
	KeyReason = capitan.NewStringKey("reason")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")
)

// Field keys for Capacitor events.
var (
	// KeyHealth is the current health of the Capacitor.
	KeyHealth = capitan.NewStringKey("health")

	// KeyOldHealth is the health before a transition.
	KeyOldHealth = capitan.NewStringKey("old_health")

	// KeyNewHealth is the health after a transition.
	KeyNewHealth = capitan.NewStringKey("new_health")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyContentType is the content type of the configured codec.
	KeyContentType = capitan.NewStringKey("content_type")

	// KeyPath is the file a watcher observes.
	KeyPath = capitan.NewStringKey("path")
)
