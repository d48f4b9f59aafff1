package routing

import (
	"reflect"
	"testing"

	"voxelsort.ai/internal/sim/inventory"
)

func counts(inv *inventory.Inventory) []int {
	out := make([]int, 0, inv.Size())
	for _, s := range inv.Stacks() {
		out = append(out, s.Count)
	}
	return out
}

func TestWithdrawSmallestFirst(t *testing.T) {
	inv := inventory.New(3, 64)
	inv.Set(0, inventory.Stack{Category: "COAL", Count: 5})
	inv.Set(1, inventory.Stack{Category: "COAL", Count: 20})
	inv.Set(2, inventory.Stack{Category: "COAL", Count: 3})

	if left := WithdrawSmallestFirst(inv, "COAL", 6); left != 0 {
		t.Fatalf("left=%d, want 0", left)
	}
	if got := counts(inv); !reflect.DeepEqual(got, []int{2, 20, 0}) {
		t.Fatalf("stacks=%v, want [2 20 0]", got)
	}
}

func TestWithdrawSmallestFirst_ReportsWhatIsMissing(t *testing.T) {
	inv := inventory.New(4, 64)
	inv.Set(0, inventory.Stack{Category: "COAL", Count: 4})
	inv.Set(1, inventory.Stack{Category: "DIRT", Count: 9})
	inv.Set(3, inventory.Stack{Category: "COAL", Count: 1})

	if left := WithdrawSmallestFirst(inv, "COAL", 8); left != 3 {
		t.Fatalf("left=%d, want 3", left)
	}
	if inv.Count("COAL") != 0 || inv.Count("DIRT") != 9 {
		t.Fatalf("totals=%v", inv.Totals())
	}
	if left := WithdrawSmallestFirst(inv, "COAL", 0); left != 0 {
		t.Fatalf("zero withdrawal left=%d", left)
	}
}

func TestWithdrawSmallestFirst_EqualStacksInSlotOrder(t *testing.T) {
	inv := inventory.New(3, 64)
	inv.Set(0, inventory.Stack{Category: "COAL", Count: 4})
	inv.Set(1, inventory.Stack{Category: "COAL", Count: 4})
	inv.Set(2, inventory.Stack{Category: "COAL", Count: 4})

	WithdrawSmallestFirst(inv, "COAL", 5)
	if got := counts(inv); !reflect.DeepEqual(got, []int{0, 3, 4}) {
		t.Fatalf("stacks=%v, want [0 3 4]", got)
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name      string
		origin    []int
		recvFree  int
		requested int
		want      Settlement
	}{
		{name: "full move", origin: []int{10}, recvFree: 64, requested: 10, want: Settlement{Added: 10, Withdrawn: 10}},
		{name: "receiver bounces rest", origin: []int{10}, recvFree: 4, requested: 10, want: Settlement{Added: 4, Withdrawn: 4}},
		{name: "origin short", origin: []int{2, 1}, recvFree: 64, requested: 7, want: Settlement{Added: 7, Withdrawn: 3, Shortfall: 4}},
		{name: "receiver full", origin: []int{5}, recvFree: 0, requested: 5, want: Settlement{}},
		{name: "nothing requested", origin: []int{5}, recvFree: 64, requested: 0, want: Settlement{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			origin := inventory.New(4, 64)
			for i, n := range tc.origin {
				origin.Set(i, inventory.Stack{Category: "COAL", Count: n})
			}
			receiver := inventory.New(1, 64)
			receiver.Set(0, inventory.Stack{Category: "COAL", Count: 64 - tc.recvFree})
			before := receiver.Count("COAL")

			got := Settle(origin, receiver, "COAL", tc.requested)
			if got != tc.want {
				t.Fatalf("Settle=%+v, want %+v", got, tc.want)
			}
			if receiver.Count("COAL")-before != got.Added {
				t.Fatalf("receiver gained %d, Added=%d", receiver.Count("COAL")-before, got.Added)
			}
			if got.Withdrawn > got.Added || got.Shortfall != got.Added-got.Withdrawn {
				t.Fatalf("inconsistent settlement %+v", got)
			}
		})
	}
}
