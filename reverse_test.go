package xform

import (
	"errors"
	"testing"
)

var errNegative = errors.New("negative")

func halve(y int) int { return y / 2 }

func doubler(t *testing.T, rev Reverse[int, int]) *Definition[int, int] {
	t.Helper()
	def, err := New[int, int]().Reverse(rev).Map(double)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return def
}

func TestReplaceSource_ExactRoundTrip(t *testing.T) {
	e := doubler(t, Replace(halve)).NewEngine(nil)

	if got, err := e.Map(5, nil); err != nil || got != 10 {
		t.Fatalf("Map(5) = %d, %v", got, err)
	}
	if got, err := e.Reverse(10, false, false).Value(); err != nil || got != 5 {
		t.Errorf("Reverse(10) = %d, %v", got, err)
	}

	r := e.Reverse(7, false, false)
	if r.OK() {
		t.Fatal("expected 7 to be rejected")
	}
	if !errors.Is(r.Err(), ErrIllegalElement) {
		t.Errorf("expected illegal element, got %v", r.Err())
	}
	if r.Reason() == "" {
		t.Error("expected a rejection reason")
	}
}

func TestReplaceSource_UnattachedExactRefuses(t *testing.T) {
	rev := Replace(halve)
	vals := doubler(t, rev).NewEngine(nil).values(nil, false, nil, nil)

	if _, err := rev.Reverse(10, vals, false, false).Value(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected unsupported from an unattached exact strategy, got %v", err)
	}
	if got, err := rev.Inexact(true).Reverse(7, vals, false, false).Value(); err != nil || got != 3 {
		t.Errorf("expected an unattached inexact strategy to reverse, got %d, %v", got, err)
	}
}

func TestReplaceSource_InexactAcceptsLossyValue(t *testing.T) {
	def := doubler(t, Replace(halve).Inexact(true))
	if got, err := def.NewEngine(nil).Reverse(7, false, false).Value(); err != nil || got != 3 {
		t.Fatalf("Reverse(7) = %d, %v", got, err)
	}

	src := NewValue(5)
	tv := Transform[int, int](src, def)
	if err := tv.Set(7); err != nil {
		t.Fatalf("Set(7) failed: %v", err)
	}
	if src.Get() != 3 {
		t.Errorf("expected source 3, got %d", src.Get())
	}
	if tv.Get() != 6 {
		t.Errorf("expected result 6, got %d", tv.Get())
	}
}

func TestReplaceSource_ExactSetLeavesSourceOnRejection(t *testing.T) {
	src := NewValue(5)
	tv := Transform[int, int](src, doubler(t, Replace(halve)))

	if err := tv.Set(7); !errors.Is(err, ErrIllegalElement) {
		t.Errorf("expected illegal element, got %v", err)
	}
	if src.Get() != 5 || src.Version() != 0 {
		t.Errorf("expected untouched source, got %d@%d", src.Get(), src.Version())
	}
}

func TestFilters_ComposeWithAnd(t *testing.T) {
	rev := Replace(halve).
		RejectWith(func(y int, _ Values[int, int]) error {
			if y < 0 {
				return errNegative
			}
			return nil
		}).
		RejectWith(func(y int, _ Values[int, int]) error {
			if y > 100 {
				return errTooLarge
			}
			return nil
		})
	e := doubler(t, rev).NewEngine(nil)

	if _, err := e.Reverse(-2, false, true).Value(); !errors.Is(err, errNegative) {
		t.Errorf("expected first filter to still apply, got %v", err)
	}
	if _, err := e.Reverse(200, false, true).Value(); !errors.Is(err, errTooLarge) {
		t.Errorf("expected second filter to apply, got %v", err)
	}
	if got, err := e.Reverse(50, false, true).Value(); err != nil || got != 25 {
		t.Errorf("Reverse(50) = %d, %v", got, err)
	}
}

func TestFilters_RejectAddOnlyAffectsAdds(t *testing.T) {
	rev := Replace(halve).RejectAddWith(func(y int, _ Values[int, int]) error {
		if y > 10 {
			return errTooLarge
		}
		return nil
	})
	e := doubler(t, rev).NewEngine(nil)

	if _, err := e.Reverse(40, false, true).Value(); err != nil {
		t.Errorf("expected set of 40 to pass, got %v", err)
	}
	if _, err := e.Reverse(40, true, true).Value(); !errors.Is(err, errTooLarge) {
		t.Errorf("expected add of 40 to be rejected, got %v", err)
	}
	if got, err := e.Reverse(8, true, false).Value(); err != nil || got != 4 {
		t.Errorf("add 8 = %d, %v", got, err)
	}
}

func TestFilters_DisableWith(t *testing.T) {
	readOnly := &RejectError{Kind: ErrUnsupported, Reason: "read-only"}
	rev := Replace(halve).DisableWith(func(Values[int, int]) error { return readOnly })
	def := doubler(t, rev)

	if rev.IsStateful() {
		t.Error("expected DisableWith not to make the reversal stateful")
	}
	if _, err := def.NewEngine(nil).Reverse(10, false, false).Value(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected unsupported, got %v", err)
	}

	tv := Transform[int, int](NewValue(1), def)
	if err := tv.IsEnabled(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected IsEnabled to report the disable filter, got %v", err)
	}
}

func TestFilters_RejectSourceWith(t *testing.T) {
	rev := Replace(halve).RejectSourceWith(func(source, y int) error {
		if y < source {
			return errors.New("may only grow")
		}
		return nil
	})
	if !rev.IsStateful() {
		t.Error("expected RejectSourceWith to make the reversal stateful")
	}

	src := NewValue(5)
	tv := Transform[int, int](src, doubler(t, rev))
	if err := tv.IsAcceptable(4); !errors.Is(err, ErrIllegalElement) {
		t.Errorf("expected 4 to be rejected against source 5, got %v", err)
	}
	if err := tv.Set(12); err != nil {
		t.Errorf("expected 12 to be accepted, got %v", err)
	}
	if src.Get() != 6 {
		t.Errorf("expected source 6, got %d", src.Get())
	}
}

func TestReverse_UpdateBypassesFilters(t *testing.T) {
	rev := Replace(halve).RejectWith(func(int, Values[int, int]) error { return errTooLarge })
	e := doubler(t, rev).NewEngine(nil)
	el := e.NewElement(func() int { return 5 })

	if got, err := el.Set(10, e.Get(), false).Value(); err != nil || got != 5 {
		t.Errorf("expected setting the current result to return the source, got %d, %v", got, err)
	}
	if _, err := el.Set(12, e.Get(), false).Value(); !errors.Is(err, errTooLarge) {
		t.Errorf("expected a real change to be filtered, got %v", err)
	}
}

func TestReplaceSource_CreateWithSeesCommitFlag(t *testing.T) {
	var commits []bool
	rev := Replace(halve).CreateWith(func(y int, _ Values[int, int], commit bool) (int, error) {
		commits = append(commits, commit)
		return y / 2, nil
	})
	e := doubler(t, rev).NewEngine(nil)

	e.Reverse(4, true, true)
	e.Reverse(4, true, false)

	if len(commits) != 2 || commits[0] || !commits[1] {
		t.Errorf("expected [false true], got %v", commits)
	}
}

func TestReplaceSourceWith_ReadsArguments(t *testing.T) {
	factor := NewValue(3)
	b := New[int, int]()
	f := With[int](b, factor)
	def, err := b.
		Reverse(ReplaceSourceWith(func(y int, vals Values[int, int]) (int, error) {
			return y / f.Of(vals), nil
		}).Stateless()).
		Build(func(s int, vals Values[int, int]) (int, error) {
			return s * f.Of(vals), nil
		})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if def.Reverse().IsStateful() {
		t.Error("expected Stateless to clear statefulness")
	}

	e := def.NewEngine(nil)
	if got, err := e.Reverse(12, false, false).Value(); err != nil || got != 4 {
		t.Errorf("Reverse(12) = %d, %v", got, err)
	}
	factor.Set(4)
	if got, err := e.Reverse(12, false, false).Value(); err != nil || got != 3 {
		t.Errorf("Reverse(12) after factor change = %d, %v", got, err)
	}
}

type account struct {
	Balance int
}

func balanceDef(t *testing.T, rev ModifySource[*account, int]) *Definition[*account, int] {
	t.Helper()
	def, err := New[*account, int]().
		NullToNull(true).
		Reverse(rev).
		Map(func(a *account) int { return a.Balance })
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return def
}

func TestModifySource_MutatesInPlace(t *testing.T) {
	acct := &account{Balance: 5}
	src := NewValue(acct)
	tv := Transform[*account, int](src, balanceDef(t, Modify(func(a *account, v int) { a.Balance = v })))

	var events []ChangeEvent[int]
	cancel := tv.Changes(func(ev ChangeEvent[int]) { events = append(events, ev) })
	defer cancel()

	if err := tv.IsAcceptable(9); err != nil {
		t.Fatalf("IsAcceptable(9) = %v", err)
	}
	if acct.Balance != 5 {
		t.Fatal("expected a test reversal not to mutate")
	}

	if err := tv.Set(9); err != nil {
		t.Fatalf("Set(9) failed: %v", err)
	}
	if acct.Balance != 9 {
		t.Errorf("expected balance 9, got %d", acct.Balance)
	}
	if src.Get() != acct {
		t.Error("expected the source to keep the same account")
	}
	if tv.Get() != 9 {
		t.Errorf("expected 9, got %d", tv.Get())
	}
	if len(events) != 2 || events[1].Old != 5 || events[1].New != 9 {
		t.Errorf("expected a 5 -> 9 event, got %+v", events)
	}
}

func TestModifySource_NoSourceDisables(t *testing.T) {
	def := balanceDef(t, Modify(func(a *account, v int) { a.Balance = v }))
	tv := Transform[*account, int](NewValue[*account](nil), def)

	if tv.Get() != 0 {
		t.Errorf("expected null-to-null result 0, got %d", tv.Get())
	}
	if err := tv.IsEnabled(); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
	if err := tv.Set(3); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected Set to fail with ErrNoSource, got %v", err)
	}
}

func TestModifySource_AddNeedsCreator(t *testing.T) {
	rev := Modify(func(a *account, v int) { a.Balance = v })
	e := balanceDef(t, rev).NewEngine(nil)

	if _, err := e.Reverse(1, true, false).Value(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected unsupported add, got %v", err)
	}

	withCreator := rev.CreateWith(func(v int, _ Values[*account, int], _ bool) (*account, error) {
		return &account{Balance: v}, nil
	})
	got, err := balanceDef(t, withCreator).NewEngine(nil).Reverse(7, true, false).Value()
	if err != nil || got == nil || got.Balance != 7 {
		t.Errorf("expected a new account with balance 7, got %+v, %v", got, err)
	}
}

func TestModifySourceWith_PropagatesError(t *testing.T) {
	rev := ModifySourceWith(func(v int, vals Values[*account, int]) error {
		if v > vals.CurrentSource().Balance*2 {
			return errTooLarge
		}
		vals.CurrentSource().Balance = v
		return nil
	})
	acct := &account{Balance: 5}
	tv := Transform[*account, int](NewValue(acct), balanceDef(t, rev))

	if err := tv.Set(50); !errors.Is(err, errTooLarge) {
		t.Errorf("expected errTooLarge, got %v", err)
	}
	if acct.Balance != 5 {
		t.Errorf("expected balance unchanged, got %d", acct.Balance)
	}
	if err := tv.Set(8); err != nil || acct.Balance != 8 {
		t.Errorf("expected balance 8, got %d (%v)", acct.Balance, err)
	}
}
