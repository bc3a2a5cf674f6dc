package xform

import (
	"errors"
	"testing"
)

func double(s int) int { return s * 2 }

func TestBuilder_ConstructionErrors(t *testing.T) {
	t.Run("nil combination", func(t *testing.T) {
		if _, err := New[int, int]().Build(nil); !errors.Is(err, ErrNilCombination) {
			t.Errorf("expected ErrNilCombination, got %v", err)
		}
		if _, err := New[int, int]().Map(nil); !errors.Is(err, ErrNilCombination) {
			t.Errorf("expected ErrNilCombination from Map, got %v", err)
		}
	})

	t.Run("nil reverse", func(t *testing.T) {
		_, err := New[int, int]().Reverse(Replace[int, int](nil)).Map(double)
		if !errors.Is(err, ErrNilReverse) {
			t.Errorf("expected ErrNilReverse, got %v", err)
		}
		_, err = New[int, int]().Reverse(nil).Map(double)
		if !errors.Is(err, ErrNilReverse) {
			t.Errorf("expected ErrNilReverse for nil strategy, got %v", err)
		}
	})

	t.Run("nil argument", func(t *testing.T) {
		b := New[int, int]()
		With[int](b, nil)
		if _, err := b.Map(double); !errors.Is(err, ErrNilArgument) {
			t.Errorf("expected ErrNilArgument, got %v", err)
		}
	})

	t.Run("duplicate argument", func(t *testing.T) {
		b := New[int, int]()
		v := NewValue(1)
		With[int](b, v)
		With[int](b, v)
		if _, err := b.Map(double); !errors.Is(err, ErrDuplicateArgument) {
			t.Errorf("expected ErrDuplicateArgument, got %v", err)
		}
	})

	t.Run("inexact with arguments", func(t *testing.T) {
		b := New[int, int]()
		With[int](b, NewValue(1))
		b.Reverse(Replace(func(y int) int { return y / 2 }).Inexact(true))
		if _, err := b.Map(double); !errors.Is(err, ErrInexactWithArguments) {
			t.Errorf("expected ErrInexactWithArguments, got %v", err)
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		if _, err := New[int, int]().Failure("ignore").Map(double); err == nil {
			t.Error("expected invalid options to fail the build")
		}
	})
}

func TestDefinition_ArgumentHandles(t *testing.T) {
	b := New[int, int]()
	a := With[int](b, NewValue(1))
	c := With[string](b, NewValue("x"))
	def, err := b.Map(double)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if def.NumArgs() != 2 {
		t.Errorf("expected 2 arguments, got %d", def.NumArgs())
	}
	if i, err := def.ArgIndex(c); err != nil || i != 1 {
		t.Errorf("ArgIndex(c) = %d, %v", i, err)
	}
	if a.Index() != 0 {
		t.Errorf("expected index 0, got %d", a.Index())
	}

	other := New[int, int]()
	foreign := With[int](other, NewValue(1))
	if _, err := def.ArgIndex(foreign); !errors.Is(err, ErrUnrecognizedArgument) {
		t.Errorf("expected ErrUnrecognizedArgument, got %v", err)
	}
}

func TestDefinition_UnrecognizedArgumentInCombination(t *testing.T) {
	other := New[int, int]()
	foreign := With[int](other, NewValue(1))

	def, err := New[int, int]().Failure(FailurePropagate).Build(func(s int, vals Values[int, int]) (int, error) {
		if vals.Has(foreign) {
			t.Error("expected Has to report false for a foreign handle")
		}
		v, err := foreign.Get(vals)
		return s + v, err
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := def.NewEngine(nil).Map(1, nil); !errors.Is(err, ErrUnrecognizedArgument) {
		t.Errorf("expected ErrUnrecognizedArgument, got %v", err)
	}
}

func TestDefinition_MetadataAndOptions(t *testing.T) {
	def, err := New[int, int]().
		ManyToOne(true).
		OneToMany(true).
		Cache(false).
		Map(double)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	opts := def.Options()
	if !opts.ManyToOne || !opts.OneToMany || opts.Cache {
		t.Errorf("unexpected options %+v", opts)
	}
	if def.ID() == "" {
		t.Error("expected a definition ID")
	}
	if def.IsReversible() {
		t.Error("expected a one-way definition")
	}
}

func TestDefinition_WithEquivalenceRebindsReverse(t *testing.T) {
	def, err := New[int, int]().
		Reverse(Replace(func(y int) int { return y / 2 })).
		Map(double)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Results are equivalent when they fall in the same pair, so 7 round
	// trips through 3 -> 6.
	pairs := def.WithEquivalence(EquivalenceFunc[int](func(a, b int) bool { return a/2 == b/2 }))
	if pairs.ID() != def.ID() {
		t.Error("expected the copy to keep the definition ID")
	}

	if _, err := def.NewEngine(nil).Reverse(7, false, true).Value(); !errors.Is(err, ErrIllegalElement) {
		t.Errorf("expected strict definition to reject 7, got %v", err)
	}
	got, err := pairs.NewEngine(nil).Reverse(7, false, true).Value()
	if err != nil {
		t.Fatalf("expected relaxed definition to accept 7, got %v", err)
	}
	if got != 3 {
		t.Errorf("expected source 3, got %d", got)
	}
}

func TestBuilder_MapPrevious(t *testing.T) {
	def, err := New[int, int]().MapPrevious(func(s, prev int) int { return s + prev })
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	src := NewValue(1)
	tv := Transform[int, int](src, def)
	var got []int
	cancel := tv.Changes(func(ev ChangeEvent[int]) { got = append(got, ev.New) })
	defer cancel()

	src.Set(2)
	src.Set(3)

	// 1+0, then 2+1, then 3+3.
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 6 {
		t.Errorf("expected [1 3 6], got %v", got)
	}
}
