package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a bounded, cache-wide-TTL local cache sitting in front of a
// session/event store. It holds whatever its owner puts in it: Set upserts,
// Delete invalidates, and entries expire after the one cache-wide TTL.
type Cache[V any] struct {
	lru *lru.LRU[string, V]
}

// New constructs a Cache holding up to capacity entries, each evicted after
// defaultTTL unless refreshed.
func New[V any](capacity int, defaultTTL time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache[V]{lru: lru.NewLRU[string, V](capacity, nil, defaultTTL)}
}

// Get returns the cached value for key, if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set upserts key with the cache's default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// Delete invalidates key.
func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}
