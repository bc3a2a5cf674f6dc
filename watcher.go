package xform

import "context"

// Watcher is a source of raw values for a Capacitor.
//
// Watch must emit the current value first, so the Capacitor can complete
// Start, and then each new value. The channel is closed when ctx is done or
// the source fails for good.
type Watcher interface {
	Watch(ctx context.Context) (<-chan []byte, error)
}
