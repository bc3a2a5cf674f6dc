package xform

// Health is the lifecycle state of a Capacitor.
type Health int32

const (
	// HealthLoading means no value has been processed yet.
	HealthLoading Health = iota

	// HealthHealthy means the latest value was applied.
	HealthHealthy

	// HealthDegraded means the last change failed decoding, validation or the
	// pipeline. The previous value remains current.
	HealthDegraded

	// HealthEmpty means the initial load failed and no value has ever been
	// applied. The Capacitor keeps watching.
	HealthEmpty
)

// String returns the string representation of the health state.
func (h Health) String() string {
	switch h {
	case HealthLoading:
		return "loading"
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
