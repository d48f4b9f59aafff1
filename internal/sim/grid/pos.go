package grid

import (
	"fmt"
	"math"
)

// Pos is a block position inside a named space. Positions in different
// spaces never compare equal.
type Pos struct {
	Space string
	X     int
	Y     int
	Z     int
}

func At(space string, x, y, z int) Pos { return Pos{Space: space, X: x, Y: y, Z: z} }

func (p Pos) Add(dx, dy, dz int) Pos {
	return Pos{Space: p.Space, X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

func (p Pos) Below() Pos { return p.Add(0, -1, 0) }

func (p Pos) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

// Distance is the Euclidean distance between block coordinates, or +Inf
// across spaces.
func (p Pos) Distance(o Pos) float64 {
	if p.Space != o.Space {
		return math.Inf(1)
	}
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	dz := float64(p.Z - o.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (p Pos) String() string { return fmt.Sprintf("%s:%d,%d,%d", p.Space, p.X, p.Y, p.Z) }

// Less orders by space, then X, Y, Z.
func (p Pos) Less(o Pos) bool {
	if p.Space != o.Space {
		return p.Space < o.Space
	}
	if p.X != o.X {
		return p.X < o.X
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.Z < o.Z
}
