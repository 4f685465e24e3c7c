// Package cache holds the in-memory supply collection: a read-through
// projection of the store, refreshed wholesale and patched incrementally
// after each successful mutation. The patch operations are pure reducers so
// they can be tested without the surrounding Collection.
package cache

import (
	"sync"

	"github.com/medshelf/medshelf/internal/model"
)

// Prepend returns a new slice with item at the front. Used after a create:
// the local order is newest-first and is not guaranteed to match the store's
// own ordering.
func Prepend(items []model.SupplyItem, item model.SupplyItem) []model.SupplyItem {
	out := make([]model.SupplyItem, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// Replace returns a new slice with the entry matching item.ID replaced in
// place. Items without a matching identity are returned unchanged.
func Replace(items []model.SupplyItem, item model.SupplyItem) []model.SupplyItem {
	out := make([]model.SupplyItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == item.ID {
			out[i] = item
		}
	}
	return out
}

// Remove returns a new slice without the entry matching id.
func Remove(items []model.SupplyItem, id string) []model.SupplyItem {
	out := make([]model.SupplyItem, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// Collection is the shared, concurrency-safe supply collection. Mutations
// always target entries by identity, so a patch dispatched from a dismissed
// view still lands safely.
type Collection struct {
	mu     sync.RWMutex
	items  []model.SupplyItem
	loaded bool
}

// Loaded reports whether the collection has been populated at least once.
func (c *Collection) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Reset replaces the entire collection with a fresh store snapshot.
func (c *Collection) Reset(items []model.SupplyItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.loaded = true
}

// Items returns a copy of the current collection.
func (c *Collection) Items() []model.SupplyItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.SupplyItem, len(c.items))
	copy(out, c.items)
	return out
}

// ApplyPrepend patches the collection with a newly created item.
func (c *Collection) ApplyPrepend(item model.SupplyItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = Prepend(c.items, item)
}

// ApplyReplace patches the collection with an updated item.
func (c *Collection) ApplyReplace(item model.SupplyItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = Replace(c.items, item)
}

// ApplyRemove patches the collection after a delete.
func (c *Collection) ApplyRemove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = Remove(c.items, id)
}
