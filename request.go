package xform

// Request carries a decoded value through a Capacitor pipeline.
// It provides access to both the previous and current values,
// allowing pipeline stages to make decisions based on what changed.
type Request[T Validator] struct {
	// Previous is the last published value.
	// On initial load, this will be the zero value of T.
	Previous T

	// Current is the newly decoded and validated value.
	// Pipeline stages may modify this value before it is published.
	Current T

	// Raw contains the original bytes received from the watcher.
	Raw []byte
}
