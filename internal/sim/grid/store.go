package grid

import (
	"sort"
	"sync"

	"voxelsort.ai/internal/sim/inventory"
)

const Air = "AIR"

// Store is an in-memory world: a block per position and the containers
// sitting on container blocks. Reads and writes are guarded by one RWMutex;
// container inventories carry their own lock.
type Store struct {
	slots        int
	maxStackSize int

	mu         sync.RWMutex
	blocks     map[Pos]string
	containers map[Pos]*Container
}

func NewStore(slots, maxStackSize int) *Store {
	return &Store{
		slots:        slots,
		maxStackSize: maxStackSize,
		blocks:       map[Pos]string{},
		containers:   map[Pos]*Container{},
	}
}

// BlockAt returns the block name at p, or AIR.
func (s *Store) BlockAt(p Pos) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.blocks[p]; ok {
		return b
	}
	return Air
}

// PlaceBlock sets a plain block. Placing over a container removes it.
func (s *Store) PlaceBlock(p Pos, block string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.containers, p)
	if block == "" || block == Air {
		delete(s.blocks, p)
		return
	}
	s.blocks[p] = block
}

// PlaceContainer puts a container block of kind at p and returns its state.
// An existing container of the same kind is kept as is.
func (s *Store) PlaceContainer(p Pos, kind string) *Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.containers[p]; c != nil && c.kind == kind {
		return c
	}
	c := NewContainer(kind, p, inventory.New(s.slots, s.maxStackSize))
	s.blocks[p] = kind
	s.containers[p] = c
	return c
}

func (s *Store) RemoveContainer(p Pos) *Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.containers[p]
	if c == nil {
		return nil
	}
	delete(s.containers, p)
	delete(s.blocks, p)
	return c
}

// ResolveContainer returns the container at p, if any.
func (s *Store) ResolveContainer(p Pos) (*Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[p]
	return c, ok && c != nil
}

func (s *Store) ContainerByID(id string) (*Container, bool) {
	kind, p, ok := ParseContainerID(id)
	if !ok {
		return nil, false
	}
	c, ok := s.ResolveContainer(p)
	if !ok || c.kind != kind {
		return nil, false
	}
	return c, true
}

func (s *Store) SetLocked(p Pos, locked bool) bool {
	c, ok := s.ResolveContainer(p)
	if !ok {
		return false
	}
	c.SetLocked(locked)
	return true
}

// Containers lists every container sorted by position.
func (s *Store) Containers() []*Container {
	s.mu.RLock()
	out := make([]*Container, 0, len(s.containers))
	for _, c := range s.containers {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].pos.Less(out[j].pos) })
	return out
}

func (s *Store) Spaces() []string {
	s.mu.RLock()
	seen := map[string]bool{}
	for p := range s.blocks {
		seen[p.Space] = true
	}
	s.mu.RUnlock()
	out := make([]string, 0, len(seen))
	for sp := range seen {
		out = append(out, sp)
	}
	sort.Strings(out)
	return out
}
