package routing

import "voxelsort.ai/internal/sim/grid"

type HolderKind int

const (
	HolderContainer HolderKind = iota + 1
	HolderPlayer
	HolderOther
)

func (k HolderKind) String() string {
	switch k {
	case HolderContainer:
		return "CONTAINER"
	case HolderPlayer:
		return "PLAYER"
	case HolderOther:
		return "OTHER"
	}
	return "UNKNOWN"
}

// Holder is whatever owns an inventory view: a container block, a player, or
// something else (an entity, a crafting grid). The set is closed.
type Holder interface {
	HolderKind() HolderKind
	sealed()
}

type ContainerHolder struct{ Container *grid.Container }

type PlayerHolder struct{ PlayerID string }

type OtherHolder struct{ Name string }

func (ContainerHolder) HolderKind() HolderKind { return HolderContainer }
func (PlayerHolder) HolderKind() HolderKind    { return HolderPlayer }
func (OtherHolder) HolderKind() HolderKind     { return HolderOther }

func (ContainerHolder) sealed() {}
func (PlayerHolder) sealed()    {}
func (OtherHolder) sealed()     {}

func sameHolder(a, b Holder) bool {
	switch av := a.(type) {
	case ContainerHolder:
		bv, ok := b.(ContainerHolder)
		return ok && av.Container != nil && av.Container == bv.Container
	case PlayerHolder:
		bv, ok := b.(PlayerHolder)
		return ok && av.PlayerID == bv.PlayerID
	case OtherHolder:
		bv, ok := b.(OtherHolder)
		return ok && av.Name == bv.Name
	}
	return false
}
