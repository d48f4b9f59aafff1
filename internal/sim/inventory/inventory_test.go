package inventory

import (
	"reflect"
	"testing"
)

func TestAdd_TopsUpPartialStacksBeforeEmptySlots(t *testing.T) {
	inv := New(4, 10)
	inv.Set(0, Stack{Category: "COAL", Count: 3})
	inv.Set(2, Stack{Category: "IRON_INGOT", Count: 8})

	if got := inv.Add("IRON_INGOT", 5); got != 5 {
		t.Fatalf("Add accepted=%d, want 5", got)
	}
	want := []Stack{
		{Category: "COAL", Count: 3},
		{Category: "IRON_INGOT", Count: 3},
		{Category: "IRON_INGOT", Count: 10},
		{},
	}
	if got := inv.Stacks(); !reflect.DeepEqual(got, want) {
		t.Fatalf("stacks=%v, want %v", got, want)
	}
}

func TestAdd_BouncesRemainderWhenFull(t *testing.T) {
	inv := New(2, 10)
	inv.Set(0, Stack{Category: "COAL", Count: 10})
	inv.Set(1, Stack{Category: "IRON_INGOT", Count: 6})

	if got := inv.Add("IRON_INGOT", 9); got != 4 {
		t.Fatalf("Add accepted=%d, want 4", got)
	}
	if got := inv.Add("DIRT", 1); got != 0 {
		t.Fatalf("Add into full inventory accepted=%d, want 0", got)
	}
	if inv.Count("IRON_INGOT") != 10 {
		t.Fatalf("IRON_INGOT count=%d, want 10", inv.Count("IRON_INGOT"))
	}
}

func TestTake_ClearsEmptiedSlot(t *testing.T) {
	inv := New(3, 64)
	inv.Set(1, Stack{Category: "COAL", Count: 4})

	if got := inv.Take(1, 10); got != 4 {
		t.Fatalf("Take=%d, want 4", got)
	}
	if inv.At(1) != (Stack{}) {
		t.Fatalf("slot 1 not cleared: %+v", inv.At(1))
	}
	if inv.Contains("COAL") {
		t.Fatalf("COAL should be gone")
	}
	if got := inv.Take(7, 1); got != 0 {
		t.Fatalf("Take out of range=%d, want 0", got)
	}
}

func TestSlotsAndTotals(t *testing.T) {
	inv := New(5, 64)
	inv.Set(0, Stack{Category: "IRON_INGOT", Count: 5})
	inv.Set(2, Stack{Category: "COAL", Count: 1})
	inv.Set(4, Stack{Category: "IRON_INGOT", Count: 20})

	if got := inv.Slots("IRON_INGOT"); !reflect.DeepEqual(got, []int{0, 4}) {
		t.Fatalf("Slots=%v", got)
	}
	if got := inv.Totals(); !reflect.DeepEqual(got, map[string]int{"IRON_INGOT": 25, "COAL": 1}) {
		t.Fatalf("Totals=%v", got)
	}
	if got := inv.Categories(); !reflect.DeepEqual(got, []string{"COAL", "IRON_INGOT"}) {
		t.Fatalf("Categories=%v", got)
	}
}
