package routing

import "sort"

type ClickAction string

const (
	ActionPlaceAll             ClickAction = "PLACE_ALL"
	ActionPlaceSome            ClickAction = "PLACE_SOME"
	ActionPlaceOne             ClickAction = "PLACE_ONE"
	ActionMoveToOtherInventory ClickAction = "MOVE_TO_OTHER_INVENTORY"
)

func (a ClickAction) placing() bool {
	return a == ActionPlaceAll || a == ActionPlaceSome || a == ActionPlaceOne
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Click is an inventory click while a container view is open. Clicked is the
// inventory that received the click: the open container itself, or the
// player's own inventory when shift-moving.
type Click struct {
	Open    Holder
	Clicked Holder
	Action  ClickAction
	Cursor  *ItemStack
	Current *ItemStack
}

// Drag spreads the cursor stack over several slots of the open view.
type Drag struct {
	Open     Holder
	NewItems map[int]ItemStack
}

// DepositFromClick extracts the stack a click puts into an open collector.
func (c *Classifier) DepositFromClick(cl Click) (Deposit, bool) {
	origin, ok := c.CollectorFor(cl.Open)
	if !ok || cl.Clicked == nil {
		return Deposit{}, false
	}

	var stack *ItemStack
	switch {
	case sameHolder(cl.Clicked, cl.Open) && cl.Action.placing():
		stack = cl.Cursor
	case cl.Clicked.HolderKind() == HolderPlayer && cl.Action == ActionMoveToOtherInventory:
		stack = cl.Current
	default:
		return Deposit{}, false
	}
	if stack == nil || stack.Item == "" || stack.Count <= 0 {
		return Deposit{}, false
	}

	d := Deposit{Origin: origin, Item: stack.Item, Count: stack.Count}
	if cl.Action == ActionPlaceOne {
		d.Count = 1
	}
	return d, true
}

// DepositsFromDrag yields one deposit per newly filled slot, in slot order.
func (c *Classifier) DepositsFromDrag(dr Drag) []Deposit {
	origin, ok := c.CollectorFor(dr.Open)
	if !ok || len(dr.NewItems) == 0 {
		return nil
	}
	slots := make([]int, 0, len(dr.NewItems))
	for slot := range dr.NewItems {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	out := make([]Deposit, 0, len(slots))
	for _, slot := range slots {
		st := dr.NewItems[slot]
		if st.Item == "" || st.Count <= 0 {
			continue
		}
		out = append(out, Deposit{Origin: origin, Item: st.Item, Count: st.Count})
	}
	return out
}

// HandleClick routes the stack of a qualifying click. ok is false when the
// click deposits nothing into a collector.
func (e *Engine) HandleClick(cl Click, done func(Outcome)) (Outcome, bool) {
	d, ok := e.classifier.DepositFromClick(cl)
	if !ok {
		return Outcome{}, false
	}
	return e.Submit(d, done), true
}

func (e *Engine) HandleDrag(dr Drag, done func(Outcome)) []Outcome {
	deps := e.classifier.DepositsFromDrag(dr)
	out := make([]Outcome, 0, len(deps))
	for _, d := range deps {
		out = append(out, e.Submit(d, done))
	}
	return out
}
