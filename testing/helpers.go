// Package testing provides helpers for testing code built on xform values,
// transformations and capacitors.
package testing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/zoobzio/xform"
)

// TestScale is a small argument type for transformation tests. It can be
// delivered by a Capacitor and read through an xform.Arg.
type TestScale struct {
	Factor int `yaml:"factor" json:"factor"`
	Offset int `yaml:"offset" json:"offset"`
}

// Validate implements xform.Validator.
func (s TestScale) Validate() error {
	if s.Factor == 0 {
		return errors.New("factor must be non-zero")
	}
	return nil
}

// Apply returns v scaled by the factor plus the offset.
func (s TestScale) Apply(v int) int {
	return v*s.Factor + s.Offset
}

// WaitFor polls condition every 5ms until it holds or timeout elapses.
// It reports whether the condition was met.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitForHealth waits until the capacitor reports expected.
func WaitForHealth[T xform.Validator](t *testing.T, c *xform.Capacitor[T], expected xform.Health, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return c.Health() == expected
	})
}

// RequireHealth fails the test immediately if the capacitor is not healthy
// in the expected way.
func RequireHealth[T xform.Validator](t *testing.T, c *xform.Capacitor[T], expected xform.Health) {
	t.Helper()
	if got := c.Health(); got != expected {
		t.Fatalf("expected health %s, got %s (last error: %v)", expected, got, c.LastError())
	}
}

// RequireCurrent fails the test unless the capacitor holds a value equal
// to want.
func RequireCurrent[T xform.Validator](t *testing.T, c *xform.Capacitor[T], want T) {
	t.Helper()
	got, ok := c.Current()
	if !ok {
		t.Fatal("expected a current value, got none")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("current value mismatch (-want +got):\n%s", diff)
	}
}

// NewTestCapacitor creates a sync-mode capacitor of TestScale fed by the
// returned channel.
func NewTestCapacitor(t *testing.T, opts ...xform.Option[TestScale]) (*xform.Capacitor[TestScale], chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	c := xform.NewCapacitor[TestScale](xform.NewSyncChannelWatcher(ch), opts...).SyncMode()
	return c, ch
}

// Recorder collects the change events of a reactive value.
type Recorder[T any] struct {
	mu     sync.Mutex
	events []xform.ChangeEvent[T]
	cancel func()
}

// Record subscribes a Recorder to v without the initial event. The
// subscription ends when the test finishes.
func Record[T any](t *testing.T, v xform.Value[T]) *Recorder[T] {
	t.Helper()
	r := &Recorder[T]{}
	r.cancel = v.NoInitChanges(r.add)
	t.Cleanup(r.Stop)
	return r
}

func (r *Recorder[T]) add(ev xform.ChangeEvent[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Stop unsubscribes. It is safe to call more than once.
func (r *Recorder[T]) Stop() {
	r.cancel()
}

// Events returns a copy of the recorded events.
func (r *Recorder[T]) Events() []xform.ChangeEvent[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]xform.ChangeEvent[T](nil), r.events...)
}

// Values returns the New value of each recorded event.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.New
	}
	return out
}

// Len returns the number of recorded events.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// RequireValues fails the test unless the recorded values equal want.
func RequireValues[T any](t *testing.T, r *Recorder[T], want ...T) {
	t.Helper()
	if diff := cmp.Diff(want, r.Values(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("recorded values mismatch (-want +got):\n%s", diff)
	}
}
