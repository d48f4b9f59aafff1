package routing

import (
	"sync"
	"time"

	"voxelsort.ai/internal/sim/grid"
)

type cacheEntry struct {
	receiver grid.Pos
	storedAt time.Time
}

// Cache remembers the last good receiver per (collector, item). It only
// forgets an entry when a read proves it invalid (or, with a TTL, too old);
// a closer receiver appearing later is not noticed.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[grid.Pos]map[string]cacheEntry
}

// NewCache builds a cache. ttl <= 0 disables expiry.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: map[grid.Pos]map[string]cacheEntry{}}
}

func (c *Cache) Get(origin grid.Pos, item string) (grid.Pos, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byItem := c.entries[origin]
	if byItem == nil {
		return grid.Pos{}, false
	}
	e, ok := byItem[item]
	if !ok {
		return grid.Pos{}, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		c.removeLocked(origin, item)
		return grid.Pos{}, false
	}
	return e.receiver, true
}

// Put stores receiver and returns the entry it replaced, if any.
func (c *Cache) Put(origin grid.Pos, item string, receiver grid.Pos) (grid.Pos, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byItem := c.entries[origin]
	if byItem == nil {
		byItem = map[string]cacheEntry{}
		c.entries[origin] = byItem
	}
	prev, had := byItem[item]
	byItem[item] = cacheEntry{receiver: receiver, storedAt: c.now()}
	return prev.receiver, had
}

func (c *Cache) Remove(origin grid.Pos, item string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(origin, item)
}

// Forget drops every entry of a collector.
func (c *Cache) Forget(origin grid.Pos) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, origin)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, byItem := range c.entries {
		n += len(byItem)
	}
	return n
}

func (c *Cache) removeLocked(origin grid.Pos, item string) {
	byItem := c.entries[origin]
	if byItem == nil {
		return
	}
	delete(byItem, item)
	if len(byItem) == 0 {
		delete(c.entries, origin)
	}
}
