package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a size-bounded in-memory TTL cache keyed by string
type Cache[V any] struct {
	items    map[string]entry[V]
	ttl      time.Duration
	maxItems int
	mutex    sync.RWMutex
	now      func() time.Time
}

// New creates a cache whose entries live for ttl. maxItems <= 0 means unbounded.
func New[V any](ttl time.Duration, maxItems int) *Cache[V] {
	return &Cache[V]{
		items:    make(map[string]entry[V]),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Get retrieves a live item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.Delete(key)
		return zero, false
	}
	return item.value, true
}

// Set stores an item with the cache's TTL, evicting the entry closest to
// expiry when the cache is full.
func (c *Cache[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictLocked()
	}
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Delete removes an item from the cache
func (c *Cache[V]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]entry[V])
}

// Len counts stored items, expired ones included until they are touched
func (c *Cache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) evictLocked() {
	now := c.now()
	var victim string
	var soonest time.Time
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
			return
		}
		if victim == "" || it.expiresAt.Before(soonest) {
			victim, soonest = k, it.expiresAt
		}
	}
	delete(c.items, victim)
}
