package routing

import (
	"math"

	"go.uber.org/zap"

	"voxelsort.ai/internal/sim/grid"
)

const (
	RangeHorizontal = 8
	// RangeVertical is the declared vertical reach; scans only use it when
	// Options.RangeVertical asks for it.
	RangeVertical = 1
)

// World is what routing reads from the host world.
type World interface {
	BlockReader
	ResolveContainer(p grid.Pos) (*grid.Container, bool)
}

// IsReceiver reports whether c can take item right now.
func IsReceiver(c *grid.Container, item string) bool {
	return c != nil && grid.IsStorageKind(c.Kind()) && !c.Locked() && c.Contains(item)
}

// Locator finds the nearest receiver for an item around a collector.
type Locator struct {
	world  World
	cache  *Cache
	rangeH int
	rangeV int

	log     *zap.Logger
	metrics *metrics
}

func (l *Locator) FindSuitable(origin grid.Pos, item string) (*grid.Container, bool) {
	if pos, ok := l.cache.Get(origin, item); ok {
		if c, ok := l.world.ResolveContainer(pos); ok && pos != origin && IsReceiver(c, item) {
			l.metrics.cacheHit()
			return c, true
		}
		l.cache.Remove(origin, item)
		l.metrics.cacheEvict()
		l.log.Debug("evicted stale receiver",
			zap.Stringer("origin", origin),
			zap.String("item", item),
			zap.Stringer("receiver", pos))
	} else {
		l.metrics.cacheMiss()
	}

	best, ok := l.scan(origin, item)
	if !ok {
		return nil, false
	}
	l.cache.Put(origin, item, best.Pos())
	return best, true
}

// scan walks dx outer, dz inner, dy innermost; the first container at the
// smallest distance wins.
func (l *Locator) scan(origin grid.Pos, item string) (*grid.Container, bool) {
	var (
		best     *grid.Container
		bestDist = math.Inf(1)
	)
	for dx := -l.rangeH; dx <= l.rangeH; dx++ {
		for dz := -l.rangeH; dz <= l.rangeH; dz++ {
			for dy := -l.rangeV; dy <= l.rangeV; dy++ {
				p := origin.Add(dx, dy, dz)
				if p == origin {
					continue
				}
				c, ok := l.world.ResolveContainer(p)
				if !ok || !IsReceiver(c, item) {
					continue
				}
				if d := origin.Distance(p); d < bestDist {
					best, bestDist = c, d
				}
			}
		}
	}
	return best, best != nil
}
