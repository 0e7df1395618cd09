// Package cache provides a small in-process cache keyed by (kind, id).
// Entries are invalidated explicitly by writers; there is no TTL sweep,
// callers that need freshness bounds pass a max age on read.
package cache

import (
	"sync"
	"time"
)

type key struct {
	kind string
	id   string
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// Cache is a concurrency-safe keyed cache
type Cache struct {
	mu      sync.RWMutex
	entries map[key]entry
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		entries: make(map[key]entry),
	}
}

// Get returns the cached value for (kind, id) if present and not older
// than maxAge. A zero maxAge disables the age check.
func (c *Cache) Get(kind, id string, maxAge time.Duration) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key{kind, id}]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if maxAge > 0 && time.Since(e.storedAt) > maxAge {
		return nil, false
	}
	return e.value, true
}

// Set stores a value under (kind, id)
func (c *Cache) Set(kind, id string, value interface{}) {
	c.mu.Lock()
	c.entries[key{kind, id}] = entry{value: value, storedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate removes a single entry
func (c *Cache) Invalidate(kind, id string) {
	c.mu.Lock()
	delete(c.entries, key{kind, id})
	c.mu.Unlock()
}

// InvalidateKind removes all entries of the given kind
func (c *Cache) InvalidateKind(kind string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.kind == kind {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
