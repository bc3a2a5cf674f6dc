package xform

import "context"

// ChannelWatcher adapts a byte channel to the Watcher interface, for tests
// and for sources that already push raw values.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher forwards ch through a goroutine that stops when the
// Watch context is done.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher hands ch to the Capacitor unchanged. Pair it with
// Capacitor.SyncMode so each Process call consumes exactly one value.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

// Watch implements Watcher.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}
	out := make(chan []byte)
	go forward(ctx, w.ch, out)
	return out, nil
}

// forward copies in to out until in closes or ctx is done, then closes out.
func forward(ctx context.Context, in <-chan []byte, out chan<- []byte) {
	defer close(out)
	for {
		var v []byte
		select {
		case <-ctx.Done():
			return
		case data, ok := <-in:
			if !ok {
				return
			}
			v = data
		}
		select {
		case out <- v:
		case <-ctx.Done():
			return
		}
	}
}
