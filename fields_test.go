package xform

import (
	"math"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
)

func TestKeyNames(t *testing.T) {
	cases := []struct {
		want string
		got  string
	}{
		{"definition", KeyDefinition.Field("d").Key().Name()},
		{"arg_index", KeyArgIndex.Field(1).Key().Name()},
		{"arg_count", KeyArgCount.Field(2).Key().Name()},
		{"version", KeyVersion.Field(3).Key().Name()},
		{"kind", KeyKind.Field("unsupported").Key().Name()},
		{"reason", KeyReason.Field("no").Key().Name()},
		{"error", KeyError.Field("something went wrong").Key().Name()},
		{"health", KeyHealth.Field("healthy").Key().Name()},
		{"old_health", KeyOldHealth.Field("loading").Key().Name()},
		{"new_health", KeyNewHealth.Field("healthy").Key().Name()},
		{"debounce", KeyDebounce.Field(100 * time.Millisecond).Key().Name()},
		{"content_type", KeyContentType.Field("application/json").Key().Name()},
		{"path", KeyPath.Field("/etc/xform.yaml").Key().Name()},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("expected key %q, got %q", tc.want, tc.got)
		}
	}
}

func TestKeyVersion_HoldsFullRange(t *testing.T) {
	fields := []capitan.Field{KeyVersion.Field(math.MaxUint64)}
	if got := KeyVersion.ExtractFromFields(fields); got != math.MaxUint64 {
		t.Errorf("expected %d, got %d", uint64(math.MaxUint64), got)
	}
}
