package xform

import (
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m MetricsProvider = NoOpMetricsProvider{}

	// These should not panic
	m.OnEvaluate(time.Millisecond)
	m.OnCombinationFailure()
	m.OnReverseRejected("illegal_element")
	m.OnEngineStateChange(3)
	m.OnHealthChange(HealthLoading, HealthHealthy)
	m.OnProcessSuccess(100 * time.Millisecond)
	m.OnProcessFailure("validate", 50*time.Millisecond)
	m.OnChangeReceived()
}
