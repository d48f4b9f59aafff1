package grid

import (
	"sync"

	"voxelsort.ai/internal/sim/inventory"
)

// Storage kinds: containers that can receive routed stock.
var storageKinds = map[string]bool{
	"CHEST":         true,
	"TRAPPED_CHEST": true,
	"BARREL":        true,
	"SHULKER_BOX":   true,
	"HOPPER":        true,
	"DROPPER":       true,
	"DISPENSER":     true,
	"FURNACE":       true,
}

func IsStorageKind(kind string) bool { return storageKinds[kind] }

// Container is the inventory state behind a container block. Reads are safe
// from any goroutine; Mutate is meant for the tick goroutine.
type Container struct {
	kind string
	pos  Pos

	mu     sync.RWMutex
	locked bool
	inv    *inventory.Inventory
}

func NewContainer(kind string, pos Pos, inv *inventory.Inventory) *Container {
	if inv == nil {
		inv = inventory.New(0, 0)
	}
	return &Container{kind: kind, pos: pos, inv: inv}
}

func (c *Container) ID() string   { return ContainerID(c.kind, c.pos) }
func (c *Container) Kind() string { return c.kind }
func (c *Container) Pos() Pos     { return c.pos }

func (c *Container) Locked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locked
}

func (c *Container) SetLocked(v bool) {
	c.mu.Lock()
	c.locked = v
	c.mu.Unlock()
}

func (c *Container) Contains(item string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inv.Contains(item)
}

func (c *Container) Count(item string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inv.Count(item)
}

func (c *Container) Stacks() []inventory.Stack {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inv.Stacks()
}

func (c *Container) Totals() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inv.Totals()
}

// Mutate runs fn with the inventory write-locked.
func (c *Container) Mutate(fn func(inv *inventory.Inventory)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.inv)
}

// MutatePair write-locks two distinct containers in position order and runs fn.
func MutatePair(a, b *Container, fn func(a, b *inventory.Inventory)) {
	if a == b {
		a.Mutate(func(inv *inventory.Inventory) { fn(inv, inv) })
		return
	}
	first, second := a, b
	if b.pos.Less(a.pos) {
		first, second = b, a
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()
	fn(a.inv, b.inv)
}
