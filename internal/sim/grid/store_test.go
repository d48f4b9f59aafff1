package grid

import (
	"math"
	"testing"

	"voxelsort.ai/internal/sim/inventory"
)

func TestStore_PlaceResolveRemove(t *testing.T) {
	s := NewStore(9, 64)
	p := At("W", 1, 0, 2)

	if _, ok := s.ResolveContainer(p); ok {
		t.Fatalf("expected no container before placement")
	}
	c := s.PlaceContainer(p, "CHEST")
	if s.BlockAt(p) != "CHEST" {
		t.Fatalf("BlockAt=%q, want CHEST", s.BlockAt(p))
	}
	got, ok := s.ResolveContainer(p)
	if !ok || got != c {
		t.Fatalf("ResolveContainer mismatch")
	}
	if again := s.PlaceContainer(p, "CHEST"); again != c {
		t.Fatalf("re-placing same kind should keep state")
	}
	if byID, ok := s.ContainerByID("CHEST@W:1,0,2"); !ok || byID != c {
		t.Fatalf("ContainerByID mismatch")
	}
	if _, ok := s.ContainerByID("BARREL@W:1,0,2"); ok {
		t.Fatalf("ContainerByID should reject kind mismatch")
	}

	s.PlaceBlock(p, "STONE")
	if _, ok := s.ResolveContainer(p); ok {
		t.Fatalf("placing a block should remove the container")
	}
	if s.BlockAt(p) != "STONE" {
		t.Fatalf("BlockAt=%q, want STONE", s.BlockAt(p))
	}
	s.PlaceBlock(p, Air)
	if s.BlockAt(p) != Air {
		t.Fatalf("BlockAt=%q, want AIR", s.BlockAt(p))
	}
}

func TestStore_SpacesAreDistinct(t *testing.T) {
	s := NewStore(9, 64)
	s.PlaceContainer(At("A", 0, 0, 0), "CHEST")
	s.PlaceBlock(At("B", 0, -1, 0), "REDSTONE_BLOCK")

	if _, ok := s.ResolveContainer(At("B", 0, 0, 0)); ok {
		t.Fatalf("container leaked across spaces")
	}
	if got := s.Spaces(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("Spaces=%v", got)
	}
	if d := At("A", 0, 0, 0).Distance(At("B", 0, 0, 0)); !math.IsInf(d, 1) {
		t.Fatalf("cross-space distance=%v, want +Inf", d)
	}
	if d := At("A", 0, 0, 0).Distance(At("A", 3, 0, 4)); d != 5 {
		t.Fatalf("distance=%v, want 5", d)
	}
}

func TestMutatePair_LocksBothAndPassesInOrder(t *testing.T) {
	s := NewStore(3, 64)
	a := s.PlaceContainer(At("W", 5, 0, 0), "CHEST")
	b := s.PlaceContainer(At("W", 1, 0, 0), "CHEST")
	a.Mutate(func(inv *inventory.Inventory) { inv.Add("COAL", 2) })

	MutatePair(a, b, func(ai, bi *inventory.Inventory) {
		n := ai.Take(ai.Slots("COAL")[0], 2)
		bi.Add("COAL", n)
	})
	if a.Contains("COAL") || b.Count("COAL") != 2 {
		t.Fatalf("pair mutation went to the wrong inventories: a=%v b=%v", a.Totals(), b.Totals())
	}
	if !s.SetLocked(b.Pos(), true) || !b.Locked() {
		t.Fatalf("SetLocked failed")
	}
}
