package routing

import (
	"testing"
	"time"

	"voxelsort.ai/internal/sim/grid"
	"voxelsort.ai/internal/sim/inventory"
	"voxelsort.ai/internal/sim/tick"
)

const space = "OVERWORLD"

func pos(x, y, z int) grid.Pos { return grid.At(space, x, y, z) }

// newCollector places an activated chest at p.
func newCollector(s *grid.Store, p grid.Pos) *grid.Container {
	s.PlaceBlock(p.Below(), "REDSTONE_BLOCK")
	return s.PlaceContainer(p, "CHEST")
}

func stock(c *grid.Container, item string, counts ...int) {
	c.Mutate(func(inv *inventory.Inventory) {
		for _, n := range counts {
			for slot := 0; slot < inv.Size(); slot++ {
				if inv.At(slot).Count == 0 {
					inv.Set(slot, inventory.Stack{Category: item, Count: n})
					break
				}
			}
		}
	})
}

func newTestEngine(t *testing.T, s *grid.Store, opts Options) (*Engine, *tick.Scheduler) {
	t.Helper()
	sched := tick.New(20)
	opts.World = s
	opts.Scheduler = sched
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, sched
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingSink struct{ events []Event }

func (r *recordingSink) Record(ev Event) { r.events = append(r.events, ev) }
