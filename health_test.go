package xform

import "testing"

func TestHealth_String(t *testing.T) {
	cases := map[Health]string{
		HealthLoading:  "loading",
		HealthHealthy:  "healthy",
		HealthDegraded: "degraded",
		HealthEmpty:    "empty",
		Health(999):    "unknown",
	}
	for h, want := range cases {
		if got := h.String(); got != want {
			t.Errorf("Health(%d).String() = %q, want %q", int32(h), got, want)
		}
	}
}
