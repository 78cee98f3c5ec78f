// Package cache holds the session-local mirror of the task table and the
// set of ids protected from refresh while a mutation is outstanding.
package cache

import (
	"sync"

	"github.com/alexanderramin/tasksync/internal/domain"
)

// Cache is an in-memory, versioned, insertion-ordered table of tasks keyed
// by id. Values are copied on the way in and out.
type Cache struct {
	mu      sync.RWMutex
	order   []string
	rows    map[string]*domain.Task
	version uint64
}

func New() *Cache {
	return &Cache{rows: map[string]*domain.Task{}}
}

// Version increases on every write.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Len returns the number of cached tasks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// All returns copies of every cached task in insertion order.
func (c *Cache) All() []*domain.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.rows[id].Clone())
	}
	return out
}

// Get returns a copy of the task with id.
func (c *Cache) Get(id string) (*domain.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.rows[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Has reports whether id is cached.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rows[id]
	return ok
}

// ReplaceAll swaps the whole table for tasks.
func (c *Cache) ReplaceAll(tasks []*domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = make([]string, 0, len(tasks))
	c.rows = make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := c.rows[t.ID]; !dup {
			c.order = append(c.order, t.ID)
		}
		c.rows[t.ID] = t.Clone()
	}
	c.version++
}

// Upsert inserts t, or overwrites the existing entry in place.
func (c *Cache) Upsert(t *domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(t)
	c.version++
}

// UpsertMany writes several tasks as one version bump.
func (c *Cache) UpsertMany(tasks []*domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tasks {
		c.upsertLocked(t)
	}
	c.version++
}

func (c *Cache) upsertLocked(t *domain.Task) {
	if _, ok := c.rows[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.rows[t.ID] = t.Clone()
}

// Replace swaps the entry oldID for t, keeping its position. If oldID is not
// cached, t is appended.
func (c *Cache) Replace(oldID string, t *domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.version++ }()

	if _, ok := c.rows[oldID]; !ok {
		c.upsertLocked(t)
		return
	}
	delete(c.rows, oldID)
	if oldID != t.ID {
		if _, dup := c.rows[t.ID]; dup {
			c.order = removeIDs(c.order, map[string]bool{t.ID: true})
		}
	}
	for i, id := range c.order {
		if id == oldID {
			c.order[i] = t.ID
			break
		}
	}
	c.rows[t.ID] = t.Clone()
}

// Remove deletes ids and returns the copies that were removed.
func (c *Cache) Remove(ids ...string) []*domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	var removed []*domain.Task
	for _, id := range ids {
		if t, ok := c.rows[id]; ok && !drop[id] {
			removed = append(removed, t)
			drop[id] = true
			delete(c.rows, id)
		}
	}
	if len(drop) > 0 {
		c.order = removeIDs(c.order, drop)
		c.version++
	}
	return removed
}

// Patch applies fn to the cached task with id. It reports false when id is
// not cached; fn's error aborts the write.
func (c *Cache) Patch(id string, fn func(t *domain.Task) error) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.rows[id]
	if !ok {
		return false, nil
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return true, err
	}
	c.rows[id] = next
	c.version++
	return true, nil
}

// ApplyOrder writes order entries onto cached tasks in one pass. Entries for
// uncached ids are ignored.
func (c *Cache) ApplyOrder(entries []domain.OrderEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		cur, ok := c.rows[e.ID]
		if !ok {
			continue
		}
		next := cur.Clone()
		e.Apply(next)
		c.rows[e.ID] = next
	}
	c.version++
}

// Merge reconciles a fresh store snapshot into the cache. keep decides, per
// id, whether the cached value must survive: kept ids are not overwritten and
// not dropped. skip decides whether a fetched row must not be (re)added.
func (c *Cache) Merge(fetched []*domain.Task, keep, skip func(id string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(fetched))
	nextOrder := make([]string, 0, len(fetched))
	nextRows := make(map[string]*domain.Task, len(fetched))

	for _, t := range fetched {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		switch {
		case skip(t.ID):
			continue
		case keep(t.ID):
			if cur, ok := c.rows[t.ID]; ok {
				nextRows[t.ID] = cur
			} else {
				// Kept but not cached: the id was removed locally.
				continue
			}
		default:
			nextRows[t.ID] = t.Clone()
		}
		nextOrder = append(nextOrder, t.ID)
	}
	// Locally added rows the store has not reported yet.
	for _, id := range c.order {
		if seen[id] || !keep(id) {
			continue
		}
		nextRows[id] = c.rows[id]
		nextOrder = append(nextOrder, id)
	}

	c.order = nextOrder
	c.rows = nextRows
	c.version++
}

func removeIDs(order []string, drop map[string]bool) []string {
	out := order[:0]
	for _, id := range order {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
