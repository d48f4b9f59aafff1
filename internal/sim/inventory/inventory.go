package inventory

import "sort"

const (
	DefaultSlots        = 27
	DefaultMaxStackSize = 64
)

// Stack is one slot's worth of a single category.
type Stack struct {
	Category string `json:"item" yaml:"item"`
	Count    int    `json:"count" yaml:"count"`
}

// Inventory is a fixed number of slots, each holding at most MaxStackSize units
// of one category. It is not safe for concurrent use; owners guard it.
type Inventory struct {
	slots        []Stack
	maxStackSize int
}

func New(slots, maxStackSize int) *Inventory {
	if slots <= 0 {
		slots = DefaultSlots
	}
	if maxStackSize <= 0 {
		maxStackSize = DefaultMaxStackSize
	}
	return &Inventory{
		slots:        make([]Stack, slots),
		maxStackSize: maxStackSize,
	}
}

func (inv *Inventory) Size() int         { return len(inv.slots) }
func (inv *Inventory) MaxStackSize() int { return inv.maxStackSize }

// Add stores up to n units of cat, topping up partial stacks first and then
// filling empty slots in slot order. It returns how many units were accepted;
// the rest bounces back to the caller.
func (inv *Inventory) Add(cat string, n int) int {
	if cat == "" || n <= 0 {
		return 0
	}
	left := n
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Category != cat || s.Count <= 0 || s.Count >= inv.maxStackSize {
			continue
		}
		k := min(left, inv.maxStackSize-s.Count)
		s.Count += k
		left -= k
	}
	for i := range inv.slots {
		if left == 0 {
			break
		}
		s := &inv.slots[i]
		if s.Count > 0 {
			continue
		}
		k := min(left, inv.maxStackSize)
		*s = Stack{Category: cat, Count: k}
		left -= k
	}
	return n - left
}

// Set overwrites a slot. Out-of-range slots are ignored.
func (inv *Inventory) Set(slot int, s Stack) {
	if slot < 0 || slot >= len(inv.slots) {
		return
	}
	if s.Count <= 0 || s.Category == "" {
		inv.slots[slot] = Stack{}
		return
	}
	if s.Count > inv.maxStackSize {
		s.Count = inv.maxStackSize
	}
	inv.slots[slot] = s
}

// Take removes up to n units from slot and returns how many were removed.
func (inv *Inventory) Take(slot, n int) int {
	if slot < 0 || slot >= len(inv.slots) || n <= 0 {
		return 0
	}
	s := &inv.slots[slot]
	k := min(n, s.Count)
	s.Count -= k
	if s.Count <= 0 {
		*s = Stack{}
	}
	return k
}

func (inv *Inventory) At(slot int) Stack {
	if slot < 0 || slot >= len(inv.slots) {
		return Stack{}
	}
	return inv.slots[slot]
}

// Slots returns the indices of non-empty slots holding cat, in slot order.
func (inv *Inventory) Slots(cat string) []int {
	var out []int
	for i, s := range inv.slots {
		if s.Category == cat && s.Count > 0 {
			out = append(out, i)
		}
	}
	return out
}

func (inv *Inventory) Contains(cat string) bool {
	for _, s := range inv.slots {
		if s.Category == cat && s.Count > 0 {
			return true
		}
	}
	return false
}

func (inv *Inventory) Count(cat string) int {
	n := 0
	for _, s := range inv.slots {
		if s.Category == cat {
			n += s.Count
		}
	}
	return n
}

// Totals sums every category, dropping empty ones.
func (inv *Inventory) Totals() map[string]int {
	out := map[string]int{}
	for _, s := range inv.slots {
		if s.Category == "" || s.Count <= 0 {
			continue
		}
		out[s.Category] += s.Count
	}
	return out
}

// Stacks returns a copy of every slot, empty ones included.
func (inv *Inventory) Stacks() []Stack {
	out := make([]Stack, len(inv.slots))
	copy(out, inv.slots)
	return out
}

func (inv *Inventory) Categories() []string {
	t := inv.Totals()
	out := make([]string, 0, len(t))
	for cat := range t {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
