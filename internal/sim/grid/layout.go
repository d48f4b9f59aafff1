package grid

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelsort.ai/internal/sim/inventory"
)

// Layout is the YAML description of a starting world.
type Layout struct {
	DefaultSpace string          `yaml:"default_space"`
	Blocks       []BlockSpec     `yaml:"blocks"`
	Containers   []ContainerSpec `yaml:"containers"`
}

type BlockSpec struct {
	Space string `yaml:"space"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Z     int    `yaml:"z"`
	Block string `yaml:"block"`
}

type ContainerSpec struct {
	Space  string            `yaml:"space"`
	X      int               `yaml:"x"`
	Y      int               `yaml:"y"`
	Z      int               `yaml:"z"`
	Kind   string            `yaml:"kind"`
	Locked bool              `yaml:"locked"`
	Stacks []inventory.Stack `yaml:"stacks"`
}

func ReadLayout(path string) (Layout, error) {
	var l Layout
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("layout: %w", err)
	}
	l.Normalize()
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("layout: %w", err)
	}
	return l, nil
}

func (l *Layout) Normalize() {
	l.DefaultSpace = strings.TrimSpace(l.DefaultSpace)
	if l.DefaultSpace == "" {
		l.DefaultSpace = "OVERWORLD"
	}
	for i := range l.Blocks {
		b := &l.Blocks[i]
		if strings.TrimSpace(b.Space) == "" {
			b.Space = l.DefaultSpace
		}
		b.Block = strings.ToUpper(strings.TrimSpace(b.Block))
	}
	for i := range l.Containers {
		c := &l.Containers[i]
		if strings.TrimSpace(c.Space) == "" {
			c.Space = l.DefaultSpace
		}
		c.Kind = strings.ToUpper(strings.TrimSpace(c.Kind))
	}
}

func (l Layout) Validate() error {
	seen := map[Pos]bool{}
	for i, b := range l.Blocks {
		if b.Block == "" {
			return fmt.Errorf("blocks[%d]: missing block", i)
		}
		seen[At(b.Space, b.X, b.Y, b.Z)] = true
	}
	for i, c := range l.Containers {
		if c.Kind == "" {
			return fmt.Errorf("containers[%d]: missing kind", i)
		}
		p := At(c.Space, c.X, c.Y, c.Z)
		if seen[p] {
			return fmt.Errorf("containers[%d]: position %s already occupied", i, p)
		}
		seen[p] = true
		for j, s := range c.Stacks {
			if s.Category == "" || s.Count <= 0 {
				return fmt.Errorf("containers[%d].stacks[%d]: need item and positive count", i, j)
			}
		}
	}
	return nil
}

// Build materializes the layout. Stacks fill slots in order; a stack larger
// than the max stack size or more stacks than slots is an error.
func (l Layout) Build(slots, maxStackSize int) (*Store, error) {
	s := NewStore(slots, maxStackSize)
	for _, b := range l.Blocks {
		s.PlaceBlock(At(b.Space, b.X, b.Y, b.Z), b.Block)
	}
	for i, cs := range l.Containers {
		c := s.PlaceContainer(At(cs.Space, cs.X, cs.Y, cs.Z), cs.Kind)
		c.SetLocked(cs.Locked)
		var err error
		c.Mutate(func(inv *inventory.Inventory) {
			if len(cs.Stacks) > inv.Size() {
				err = fmt.Errorf("containers[%d]: %d stacks exceed %d slots", i, len(cs.Stacks), inv.Size())
				return
			}
			for j, st := range cs.Stacks {
				if st.Count > inv.MaxStackSize() {
					err = fmt.Errorf("containers[%d].stacks[%d]: count %d exceeds max stack size %d", i, j, st.Count, inv.MaxStackSize())
					return
				}
				inv.Set(j, st)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func LoadLayout(path string, slots, maxStackSize int) (*Store, error) {
	l, err := ReadLayout(path)
	if err != nil {
		return nil, err
	}
	return l.Build(slots, maxStackSize)
}

// Layout captures the store in the form Build accepts. Empty slots are
// dropped, so stacks come back packed into the leading slots.
func (s *Store) Layout() Layout {
	s.mu.RLock()
	l := Layout{DefaultSpace: "OVERWORLD"}
	for p, b := range s.blocks {
		if _, ok := s.containers[p]; ok {
			continue
		}
		l.Blocks = append(l.Blocks, BlockSpec{Space: p.Space, X: p.X, Y: p.Y, Z: p.Z, Block: b})
	}
	s.mu.RUnlock()
	sort.Slice(l.Blocks, func(i, j int) bool {
		a, b := l.Blocks[i], l.Blocks[j]
		return At(a.Space, a.X, a.Y, a.Z).Less(At(b.Space, b.X, b.Y, b.Z))
	})

	for _, c := range s.Containers() {
		p := c.Pos()
		cs := ContainerSpec{Space: p.Space, X: p.X, Y: p.Y, Z: p.Z, Kind: c.Kind(), Locked: c.Locked()}
		for _, st := range c.Stacks() {
			if st.Category != "" && st.Count > 0 {
				cs.Stacks = append(cs.Stacks, st)
			}
		}
		l.Containers = append(l.Containers, cs)
	}
	return l
}
