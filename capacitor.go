package xform

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// DefaultDebounce is the default debounce duration for change processing.
const DefaultDebounce = 100 * time.Millisecond

// capacitorStoreID names the terminal stage of every capacitor pipeline.
var capacitorStoreID = pipz.NewIdentity("xform:capacitor:store", "Hands the processed value to the capacitor")

// Validator is the interface that values delivered by a Capacitor must
// implement.
type Validator interface {
	Validate() error
}

// Capacitor is a reactive Value fed by a Watcher. Raw changes are decoded
// with a Codec, validated, run through a pipz pipeline and then published.
// A failing change leaves the previous value in place and degrades the
// capacitor while it keeps watching.
//
// Because it is a Value, a Capacitor can be the source of a TransformedValue
// or an argument of a Definition:
//
//	limits := xform.NewCapacitor[Limits](xform.NewFileWatcher("limits.yaml")).
//	    Codec(xform.YAMLCodec{})
//	b := xform.New[Order, Quote]()
//	lim := xform.With(b, limits)
type Capacitor[T Validator] struct {
	watcher        Watcher
	pipeline       pipz.Chainable[*Request[T]]
	debounce       time.Duration
	startupTimeout time.Duration
	syncMode       bool
	clock          clockz.Clock
	codec          Codec
	metrics        MetricsProvider
	onStop         func(Health)

	health       atomic.Int32
	cell         atomic.Pointer[versioned[T]]
	lastError    atomic.Pointer[error]
	errorHistory *ring[error]

	tx        sync.RWMutex
	listeners *listeners[ChangeEvent[T]]

	mu      sync.Mutex
	started bool

	// For sync mode: channel to receive changes
	changes <-chan []byte
}

// NewCapacitor creates a Capacitor that watches a source for changes.
//
// Pipeline options (With*) configure the processing pipeline. Instance
// configuration uses chainable methods before calling Start().
//
// Example:
//
//	capacitor := xform.NewCapacitor[Config](
//	    xform.NewFileWatcher("config.json"),
//	    xform.WithRetry[Config](3),
//	).Debounce(200 * time.Millisecond)
func NewCapacitor[T Validator](watcher Watcher, opts ...Option[T]) *Capacitor[T] {
	terminal := pipz.Transform(capacitorStoreID, func(_ context.Context, req *Request[T]) *Request[T] {
		return req
	})

	c := &Capacitor[T]{
		watcher:   watcher,
		pipeline:  buildPipeline(terminal, opts),
		debounce:  DefaultDebounce,
		clock:     clockz.RealClock,
		codec:     JSONCodec{},
		listeners: newListeners[ChangeEvent[T]](nil),
	}
	c.health.Store(int32(HealthLoading))

	return c
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Debounce sets the debounce duration for change processing.
// Changes arriving within this duration are coalesced into a single update.
// Default: 100ms. Must be called before Start().
func (c *Capacitor[T]) Debounce(d time.Duration) *Capacitor[T] {
	c.debounce = d
	return c
}

// SyncMode enables synchronous processing for testing.
// In sync mode, changes are processed immediately without debouncing
// or async goroutines, making tests deterministic. Must be called before Start().
func (c *Capacitor[T]) SyncMode() *Capacitor[T] {
	c.syncMode = true
	return c
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
// Must be called before Start().
func (c *Capacitor[T]) Clock(clock clockz.Clock) *Capacitor[T] {
	c.clock = clock
	return c
}

// Codec sets the codec for decoding raw changes.
// Default: JSONCodec. Must be called before Start().
func (c *Capacitor[T]) Codec(codec Codec) *Capacitor[T] {
	c.codec = codec
	return c
}

// StartupTimeout sets the maximum duration to wait for the initial value
// from the watcher. Default: no timeout. Must be called before Start().
func (c *Capacitor[T]) StartupTimeout(d time.Duration) *Capacitor[T] {
	c.startupTimeout = d
	return c
}

// Metrics sets a metrics provider. Must be called before Start().
func (c *Capacitor[T]) Metrics(provider MetricsProvider) *Capacitor[T] {
	c.metrics = provider
	return c
}

// OnStop sets a callback invoked with the final health when the capacitor
// stops watching. Must be called before Start().
func (c *Capacitor[T]) OnStop(fn func(Health)) *Capacitor[T] {
	c.onStop = fn
	return c
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (c *Capacitor[T]) ErrorHistorySize(n int) *Capacitor[T] {
	c.errorHistory = newRing[error](n)
	return c
}

// Health returns the current health of the Capacitor.
func (c *Capacitor[T]) Health() Health {
	return Health(c.health.Load())
}

// Current returns the current value and true, or the zero value and false
// if no valid value has been applied.
func (c *Capacitor[T]) Current() (T, bool) {
	ptr := c.cell.Load()
	if ptr == nil {
		var zero T
		return zero, false
	}
	return ptr.value, true
}

// LastError returns the last error encountered, or nil if no error occurred.
func (c *Capacitor[T]) LastError() error {
	ptr := c.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (c *Capacitor[T]) ErrorHistory() []error {
	return c.errorHistory.all()
}

// -----------------------------------------------------------------------------
// Value[T]
// -----------------------------------------------------------------------------

// Get returns the current value, or the zero value before the first one is
// applied.
func (c *Capacitor[T]) Get() T {
	v, _ := c.Current()
	return v
}

// Version counts applied values.
func (c *Capacitor[T]) Version() uint64 {
	ptr := c.cell.Load()
	if ptr == nil {
		return 0
	}
	return ptr.version
}

// Changes subscribes fn and delivers the current value immediately.
func (c *Capacitor[T]) Changes(fn func(ChangeEvent[T])) func() {
	c.tx.RLock()
	defer c.tx.RUnlock()

	cancel := c.listeners.add(fn)
	v := c.Get()
	fn(ChangeEvent[T]{Old: v, New: v, Initial: true})
	return cancel
}

// NoInitChanges subscribes fn to subsequently applied values.
func (c *Capacitor[T]) NoInitChanges(fn func(ChangeEvent[T])) func() {
	return c.listeners.add(fn)
}

// Lock acquires the capacitor's transaction lock. Holding it for writing
// delays publication of the next value.
func (c *Capacitor[T]) Lock(write bool) Transaction {
	return lockRW(&c.tx, write)
}

// TryLock acquires the transaction lock if it is free.
func (c *Capacitor[T]) TryLock(write bool) (Transaction, bool) {
	return tryLockRW(&c.tx, write)
}

var _ Value[Options] = (*Capacitor[Options])(nil)

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start begins watching for changes. It blocks until the first value is
// processed (success or failure), then continues watching asynchronously.
//
// If the initial value fails, Start returns the error but continues
// watching in the background for valid updates.
//
// In sync mode, Start only processes the initial value. Use Process() to
// manually trigger processing of subsequent values.
//
// Start can only be called once. Subsequent calls return an error.
func (c *Capacitor[T]) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("capacitor already started")
	}
	c.started = true
	c.mu.Unlock()

	capitan.Emit(ctx, CapacitorStarted,
		KeyDebounce.Field(c.debounce),
		KeyContentType.Field(c.codec.ContentType()),
	)

	changes, err := c.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	startupCtx := ctx
	if c.startupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = c.clock.WithTimeout(ctx, c.startupTimeout)
		defer cancel()
	}

	var initialErr error
	select {
	case <-startupCtx.Done():
		if c.startupTimeout > 0 && startupCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("startup timeout: watcher did not emit initial value within %v", c.startupTimeout)
		}
		return startupCtx.Err()
	case raw, ok := <-changes:
		if !ok {
			return fmt.Errorf("watcher closed before emitting initial value")
		}
		c.received(ctx)
		initialErr = c.process(ctx, raw)
	}

	if c.syncMode {
		c.changes = changes
		return initialErr
	}

	go c.watch(ctx, changes)

	return initialErr
}

// Process reads and processes the next value from the watcher.
// This is only available in sync mode and is used for deterministic testing.
// Returns false if no value is available or the channel is closed.
func (c *Capacitor[T]) Process(ctx context.Context) bool {
	if !c.syncMode {
		return false
	}

	select {
	case raw, ok := <-c.changes:
		if !ok {
			return false
		}
		c.received(ctx)
		_ = c.process(ctx, raw) //nolint:errcheck // Errors stored via setError
		return true
	default:
		return false
	}
}

func (c *Capacitor[T]) received(ctx context.Context) {
	capitan.Emit(ctx, CapacitorChangeReceived)
	if c.metrics != nil {
		c.metrics.OnChangeReceived()
	}
}

// process decodes, validates and publishes a single change.
func (c *Capacitor[T]) process(ctx context.Context, raw []byte) error {
	start := c.clock.Now()
	oldHealth := c.Health()

	var result T
	if err := c.codec.Unmarshal(raw, &result); err != nil {
		c.failed(ctx, oldHealth, "decode", start, err)
		capitan.Emit(ctx, CapacitorDecodeFailed, KeyError.Field(err.Error()))
		return fmt.Errorf("unmarshal failed: %w", err)
	}

	if err := result.Validate(); err != nil {
		c.failed(ctx, oldHealth, "validate", start, err)
		capitan.Emit(ctx, CapacitorValidationFailed, KeyError.Field(err.Error()))
		return fmt.Errorf("validation failed: %w", err)
	}

	req := &Request[T]{Previous: c.Get(), Current: result, Raw: raw}
	processed, err := c.pipeline.Process(ctx, req)
	if err != nil {
		c.failed(ctx, oldHealth, "pipeline", start, err)
		capitan.Emit(ctx, CapacitorPipelineFailed, KeyError.Field(err.Error()))
		return fmt.Errorf("pipeline failed: %w", err)
	}

	c.publish(processed.Current)
	c.lastError.Store(nil)
	c.errorHistory.clear()
	c.transition(ctx, oldHealth, HealthHealthy)
	capitan.Emit(ctx, CapacitorApplied)
	if c.metrics != nil {
		c.metrics.OnProcessSuccess(c.clock.Since(start))
	}

	return nil
}

// publish stores v and notifies subscribers under the transaction lock, so
// arguments read by an engine never observe a half-published value.
func (c *Capacitor[T]) publish(v T) {
	c.tx.Lock()
	defer c.tx.Unlock()

	var old T
	var version uint64
	if ptr := c.cell.Load(); ptr != nil {
		old, version = ptr.value, ptr.version
	}
	c.cell.Store(&versioned[T]{value: v, version: version + 1})
	c.listeners.fire(ChangeEvent[T]{Old: old, New: v})
}

func (c *Capacitor[T]) failed(ctx context.Context, oldHealth Health, stage string, start time.Time, err error) {
	c.setError(err)
	c.transition(ctx, oldHealth, c.failureHealth())
	if c.metrics != nil {
		c.metrics.OnProcessFailure(stage, c.clock.Since(start))
	}
}

// failureHealth returns the failure state based on whether a valid value
// has ever been applied.
func (c *Capacitor[T]) failureHealth() Health {
	if c.cell.Load() == nil {
		return HealthEmpty
	}
	return HealthDegraded
}

// transition updates the health and emits an event if it changed.
func (c *Capacitor[T]) transition(ctx context.Context, oldHealth, newHealth Health) {
	if oldHealth == newHealth {
		return
	}
	c.health.Store(int32(newHealth))
	capitan.Emit(ctx, CapacitorHealthChanged,
		KeyOldHealth.Field(oldHealth.String()),
		KeyNewHealth.Field(newHealth.String()),
	)
	if c.metrics != nil {
		c.metrics.OnHealthChange(oldHealth, newHealth)
	}
}

// setError stores an error atomically and adds it to the error history.
func (c *Capacitor[T]) setError(err error) {
	e := err
	c.lastError.Store(&e)
	c.errorHistory.push(err)
}

// watch processes changes from the watcher channel with debouncing.
func (c *Capacitor[T]) watch(ctx context.Context, changes <-chan []byte) {
	defer func() {
		final := c.Health()
		capitan.Emit(ctx, CapacitorStopped,
			KeyHealth.Field(final.String()),
		)
		if c.onStop != nil {
			c.onStop(final)
		}
	}()

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				// Channel closed, process any pending change
				if hasPending {
					_ = c.process(ctx, pending) //nolint:errcheck // Errors stored via setError
				}
				return
			}

			c.received(ctx)
			pending = raw
			hasPending = true

			if timer == nil {
				timer = c.clock.NewTimer(c.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(c.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = c.process(ctx, pending) //nolint:errcheck // Errors stored via setError
				hasPending = false
			}
		}
	}
}
