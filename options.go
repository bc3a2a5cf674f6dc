package xform

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Identities for the wrappers the pipeline options create.
var (
	retryID          = pipz.NewIdentity("xform:retry", "Retries the capacitor pipeline")
	backoffID        = pipz.NewIdentity("xform:backoff", "Retries the capacitor pipeline with backoff")
	timeoutID        = pipz.NewIdentity("xform:timeout", "Bounds capacitor pipeline duration")
	fallbackID       = pipz.NewIdentity("xform:fallback", "Falls back to alternative processors")
	circuitBreakerID = pipz.NewIdentity("xform:circuit-breaker", "Stops processing after repeated failures")
	middlewareID     = pipz.NewIdentity("xform:middleware", "Runs middleware ahead of the pipeline")
)

// Option configures the processing pipeline of a Capacitor. Pipeline
// options wrap the pipeline with middleware for retry, timeout and other
// reliability patterns.
//
// Instance configuration (debounce, sync mode, codec, etc.) is handled via
// chainable methods on the Capacitor before calling Start().
type Option[T Validator] func(pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline[T Validator](terminal pipz.Chainable[*Request[T]], opts []Option[T]) pipz.Chainable[*Request[T]] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// -----------------------------------------------------------------------------
// Pipeline Options - Wrapping (With*)
// -----------------------------------------------------------------------------

// WithRetry wraps the pipeline with retry logic.
// Failed operations are retried immediately up to maxAttempts times.
func WithRetry[T Validator](maxAttempts int) Option[T] {
	return func(p pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
		return pipz.NewRetry(retryID, p, maxAttempts)
	}
}

// WithBackoff wraps the pipeline with exponential backoff retry logic.
func WithBackoff[T Validator](maxAttempts int, baseDelay time.Duration) Option[T] {
	return func(p pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
		return pipz.NewBackoff(backoffID, p, maxAttempts, baseDelay)
	}
}

// WithTimeout wraps the pipeline with a timeout.
func WithTimeout[T Validator](d time.Duration) Option[T] {
	return func(p pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
		return pipz.NewTimeout(timeoutID, p, d)
	}
}

// WithFallback wraps the pipeline with fallback processors.
// If the primary pipeline fails, each fallback is tried in order until one succeeds.
func WithFallback[T Validator](fallbacks ...pipz.Chainable[*Request[T]]) Option[T] {
	return func(p pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
		all := append([]pipz.Chainable[*Request[T]]{p}, fallbacks...)
		return pipz.NewFallback(fallbackID, all...)
	}
}

// WithCircuitBreaker wraps the pipeline with circuit breaker protection.
// After 'failures' consecutive failures, the circuit opens and rejects
// further changes until 'recovery' time has passed.
func WithCircuitBreaker[T Validator](failures int, recovery time.Duration) Option[T] {
	return func(p pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
		return pipz.NewCircuitBreaker(circuitBreakerID, p, failures, recovery)
	}
}

// WithMiddleware wraps the pipeline with a sequence of processors.
// Processors execute in order, with the wrapped pipeline last.
//
// Example:
//
//	xform.NewCapacitor[Limits](
//	    watcher,
//	    xform.WithMiddleware(
//	        xform.UseEffect[Limits](auditID, auditFn),
//	        xform.UseApply[Limits](clampID, clampFn),
//	    ),
//	)
func WithMiddleware[T Validator](processors ...pipz.Chainable[*Request[T]]) Option[T] {
	return func(p pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
		all := make([]pipz.Chainable[*Request[T]], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence(middlewareID, all...)
	}
}

// -----------------------------------------------------------------------------
// Middleware Processors (Use*)
// -----------------------------------------------------------------------------

// UseTransform creates a processor that transforms the request. Cannot fail.
func UseTransform[T Validator](id pipz.Identity, fn func(context.Context, *Request[T]) *Request[T]) pipz.Chainable[*Request[T]] {
	return pipz.Transform(id, fn)
}

// UseApply creates a processor that can transform the request and fail.
func UseApply[T Validator](id pipz.Identity, fn func(context.Context, *Request[T]) (*Request[T], error)) pipz.Chainable[*Request[T]] {
	return pipz.Apply(id, fn)
}

// UseEffect creates a processor that performs a side effect.
// The request passes through unchanged.
func UseEffect[T Validator](id pipz.Identity, fn func(context.Context, *Request[T]) error) pipz.Chainable[*Request[T]] {
	return pipz.Effect(id, fn)
}

// UseRetry wraps a processor with retry logic.
func UseRetry[T Validator](maxAttempts int, processor pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
	return pipz.NewRetry(retryID, processor, maxAttempts)
}

// UseTimeout wraps a processor with a deadline.
func UseTimeout[T Validator](d time.Duration, processor pipz.Chainable[*Request[T]]) pipz.Chainable[*Request[T]] {
	return pipz.NewTimeout(timeoutID, processor, d)
}
