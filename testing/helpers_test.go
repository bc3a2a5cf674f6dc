package testing

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/xform"
)

func TestTestScale_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scale   TestScale
		wantErr bool
	}{
		{name: "valid", scale: TestScale{Factor: 2, Offset: 1}},
		{name: "negative factor", scale: TestScale{Factor: -1}},
		{name: "zero factor", scale: TestScale{Offset: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scale.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWaitFor(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		if !WaitFor(t, 50*time.Millisecond, func() bool { return true }) {
			t.Error("expected WaitFor to return true")
		}
	})

	t.Run("condition never met", func(t *testing.T) {
		start := time.Now()
		if WaitFor(t, 30*time.Millisecond, func() bool { return false }) {
			t.Error("expected WaitFor to return false on timeout")
		}
		if time.Since(start) < 30*time.Millisecond {
			t.Error("expected WaitFor to wait for the full timeout")
		}
	})

	t.Run("condition met later", func(t *testing.T) {
		var n int
		if !WaitFor(t, time.Second, func() bool { n++; return n > 3 }) {
			t.Error("expected WaitFor to return true")
		}
	})
}

func TestCapacitorHelpers(t *testing.T) {
	c, ch := NewTestCapacitor(t)

	ch <- []byte(`{"factor": 3, "offset": 1}`)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !WaitForHealth(t, c, xform.HealthHealthy, 100*time.Millisecond) {
		t.Error("expected the capacitor to become healthy")
	}
	RequireHealth(t, c, xform.HealthHealthy)
	RequireCurrent(t, c, TestScale{Factor: 3, Offset: 1})

	ch <- []byte(`{"factor": 0}`)
	c.Process(context.Background())
	RequireHealth(t, c, xform.HealthDegraded)
	RequireCurrent(t, c, TestScale{Factor: 3, Offset: 1})
}

func TestRecorder_CapacitorDrivesTransformation(t *testing.T) {
	c, ch := NewTestCapacitor(t)
	ch <- []byte(`{"factor": 2}`)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	b := xform.New[int, int]()
	scale := xform.With[TestScale](b, c)
	def, err := b.FireIfUnchanged(false).Build(func(s int, vals xform.Values[int, int]) (int, error) {
		return scale.Of(vals).Apply(s), nil
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	src := xform.NewValue(5)
	tv := xform.Transform[int, int](src, def)
	rec := Record[int](t, tv)

	ch <- []byte(`{"factor": 3}`)
	c.Process(context.Background())
	src.Set(6)
	ch <- []byte(`{"factor": 3, "offset": 2}`)
	c.Process(context.Background())

	RequireValues(t, rec, 15, 18, 20)
	if rec.Len() != 3 || rec.Events()[0].Old != 10 {
		t.Errorf("unexpected events %+v", rec.Events())
	}

	rec.Stop()
	rec.Stop()
	src.Set(7)
	if rec.Len() != 3 {
		t.Errorf("expected no events after Stop, got %d", rec.Len())
	}
}

func TestRecorder_Empty(t *testing.T) {
	rec := Record[int](t, xform.NewValue(1))
	RequireValues(t, rec)
}
