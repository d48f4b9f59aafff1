package routing

import (
	"sort"

	"voxelsort.ai/internal/sim/inventory"
)

// Settlement is the result of one move.
type Settlement struct {
	Added     int
	Withdrawn int
	Shortfall int
}

// Settle credits the receiver first, then withdraws what the receiver
// accepted from the origin. The credit is never undone: a shortfall means the
// origin no longer held what it claimed.
func Settle(origin, receiver *inventory.Inventory, item string, requested int) Settlement {
	if requested <= 0 {
		return Settlement{}
	}
	added := receiver.Add(item, requested)
	short := WithdrawSmallestFirst(origin, item, added)
	return Settlement{Added: added, Withdrawn: added - short, Shortfall: short}
}

// WithdrawSmallestFirst removes up to amount units of item, emptying the
// smallest stacks first, and returns what could not be removed.
func WithdrawSmallestFirst(inv *inventory.Inventory, item string, amount int) int {
	if amount <= 0 {
		return 0
	}
	slots := inv.Slots(item)
	sort.SliceStable(slots, func(i, j int) bool {
		return inv.At(slots[i]).Count < inv.At(slots[j]).Count
	})
	for _, slot := range slots {
		amount -= inv.Take(slot, amount)
		if amount == 0 {
			break
		}
	}
	return amount
}
