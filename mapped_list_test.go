package xform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMappedList_MapsInitialItems(t *testing.T) {
	ml := MapList(NewList(1, 2, 3), doubler(t, Replace(halve)))
	defer ml.Close()

	if diff := cmp.Diff([]int{2, 4, 6}, ml.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if ml.Len() != 3 || ml.At(2) != 6 {
		t.Errorf("unexpected len %d or last %d", ml.Len(), ml.At(2))
	}
}

func TestMappedList_FollowsSource(t *testing.T) {
	src := NewList(1, 2, 3)
	ml := MapList(src, doubler(t, Replace(halve)))
	defer ml.Close()

	var events []ListEvent[int]
	cancel := ml.Subscribe(func(ev ListEvent[int]) { events = append(events, ev) })
	defer cancel()

	src.Add(4)
	if err := src.Remove(0); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := src.Set(0, 5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := src.Insert(1, 7); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	want := []ListEvent[int]{
		{Op: ListAdded, Index: 3, New: 8, Version: 1},
		{Op: ListRemoved, Index: 0, Old: 2, Version: 2},
		{Op: ListReplaced, Index: 0, Old: 4, New: 10, Version: 3},
		{Op: ListAdded, Index: 1, New: 14, Version: 4},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{10, 14, 6, 8}, ml.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestMappedList_SetReversesOntoSource(t *testing.T) {
	src := NewList(1, 2)
	ml := MapList(src, doubler(t, Replace(halve)))
	defer ml.Close()

	if err := ml.Set(1, 10); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if src.At(1) != 5 || ml.At(1) != 10 {
		t.Errorf("expected source 5 and mapped 10, got %d and %d", src.At(1), ml.At(1))
	}

	if err := ml.IsAcceptable(0, 3); !errors.Is(err, ErrIllegalElement) {
		t.Errorf("expected 3 to be rejected, got %v", err)
	}
	if err := ml.Set(0, 3); !errors.Is(err, ErrIllegalElement) {
		t.Errorf("expected 3 to be rejected, got %v", err)
	}
	if src.Version() != 1 {
		t.Errorf("expected a rejected Set to leave the source alone, got version %d", src.Version())
	}
	if err := ml.Set(5, 2); err == nil {
		t.Error("expected an out of range index to fail")
	}
}

func TestMappedList_AddCreatesSource(t *testing.T) {
	src := NewList[int]()
	ml := MapList(src, doubler(t, Replace(halve)))
	defer ml.Close()

	if err := ml.Add(12); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if diff := cmp.Diff([]int{6}, src.Items()); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if ml.Len() != 1 || ml.At(0) != 12 {
		t.Errorf("expected mapped [12], got %v", ml.Items())
	}
	if err := ml.Add(5); !errors.Is(err, ErrIllegalElement) {
		t.Errorf("expected an odd value to be rejected, got %v", err)
	}
}

func TestMappedList_SetAllStateless(t *testing.T) {
	src := NewList(1, 2, 3)
	ml := MapList(src, doubler(t, Replace(halve)))
	defer ml.Close()

	if err := ml.SetAll([]int{0, 2}, 10); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	if diff := cmp.Diff([]int{5, 2, 5}, src.Items()); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{10, 4, 10}, ml.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestMappedList_SetAllStateful(t *testing.T) {
	shared := &account{Balance: 1}
	src := NewList(shared, &account{Balance: 2}, shared)
	ml := MapList(src, balanceDef(t, Modify(func(a *account, v int) { a.Balance = v })))
	defer ml.Close()

	var events int
	cancel := ml.Subscribe(func(ListEvent[int]) { events++ })
	defer cancel()

	if err := ml.SetAll([]int{0, 1, 2}, 50); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	if diff := cmp.Diff([]int{50, 50, 50}, ml.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if src.At(0) != shared || src.At(2) != shared {
		t.Error("expected the shared account to stay in place")
	}
	if events != 3 {
		t.Errorf("expected an event per index, got %d", events)
	}
}

func TestMappedList_ArgumentChangeRemapsAll(t *testing.T) {
	a, b := NewValue(0), NewValue(0)
	ml := MapList(NewList(1, 2), sumDef(t, a, b))
	defer ml.Close()

	var events []ListEvent[int]
	cancel := ml.Subscribe(func(ev ListEvent[int]) { events = append(events, ev) })
	defer cancel()

	a.Set(10)

	want := []ListEvent[int]{
		{Op: ListReplaced, Index: 0, Old: 1, New: 11},
		{Op: ListReplaced, Index: 1, Old: 2, New: 12},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{11, 12}, ml.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestMappedList_CloseStopsObserving(t *testing.T) {
	src := NewList(1)
	ml := MapList(src, doubler(t, Replace(halve)))

	var events int
	cancel := ml.Subscribe(func(ListEvent[int]) { events++ })
	defer cancel()

	ml.Close()
	ml.Close()
	src.Add(2)

	if events != 0 || ml.Len() != 1 {
		t.Errorf("expected a closed list to ignore the source, got %d events and len %d", events, ml.Len())
	}
}

func TestMappedList_DynamicElementsReadReplacedSources(t *testing.T) {
	var calls int
	src := NewList(1, 2)
	ml := MapList(src, countingDef(t, &calls, func(b *Builder[int, int]) { b.Cache(false) }))
	defer ml.Close()

	if err := src.Set(0, 7); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := ml.At(0); got != 14 {
		t.Errorf("expected 14, got %d", got)
	}
}
