package routing

import (
	"sort"
	"strings"
	"sync/atomic"

	"voxelsort.ai/internal/sim/grid"
)

// Activators decide which containers act as collectors: the block below must
// be one of Materials and the container's own kind one of Containers.
type Activators struct {
	Materials  map[string]bool
	Containers map[string]bool
}

func NewActivators(materials, containers []string) Activators {
	a := Activators{Materials: map[string]bool{}, Containers: map[string]bool{}}
	for _, m := range materials {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			a.Materials[m] = true
		}
	}
	for _, c := range containers {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			a.Containers[c] = true
		}
	}
	return a
}

func DefaultActivators() Activators {
	return NewActivators([]string{"REDSTONE_BLOCK"}, []string{"CHEST"})
}

func (a Activators) MaterialList() []string  { return sortedKeys(a.Materials) }
func (a Activators) ContainerList() []string { return sortedKeys(a.Containers) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// BlockReader is the part of the world the classifier needs.
type BlockReader interface {
	BlockAt(p grid.Pos) string
}

// Classifier evaluates the collector condition against live world state on
// every call. Nothing about the answer is remembered.
type Classifier struct {
	blocks BlockReader
	act    atomic.Pointer[Activators]
}

func NewClassifier(blocks BlockReader, act Activators) *Classifier {
	c := &Classifier{blocks: blocks}
	c.SetActivators(act)
	return c
}

// SetActivators swaps the activator sets; the next IsCollector call sees them.
func (c *Classifier) SetActivators(a Activators) {
	cp := NewActivators(a.MaterialList(), a.ContainerList())
	c.act.Store(&cp)
}

func (c *Classifier) Activators() Activators { return *c.act.Load() }

func (c *Classifier) IsCollector(ct *grid.Container) bool {
	if ct == nil {
		return false
	}
	a := c.act.Load()
	if !a.Containers[ct.Kind()] {
		return false
	}
	return a.Materials[c.blocks.BlockAt(ct.Pos().Below())]
}

// CollectorFor resolves a holder to its collector container, if it is one.
func (c *Classifier) CollectorFor(h Holder) (*grid.Container, bool) {
	switch v := h.(type) {
	case ContainerHolder:
		if c.IsCollector(v.Container) {
			return v.Container, true
		}
		return nil, false
	case PlayerHolder, OtherHolder:
		return nil, false
	default:
		return nil, false
	}
}
