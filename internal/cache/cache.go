// Package cache provides a bounded, keyed store with optional
// per-entry TTL and optional capacity, used by the media proxy for
// its image/video request caches and by the extension host's
// key-value guest capability.
//
// TTL expiry is delegated to github.com/patrickmn/go-cache, which
// already runs its own background sweep goroutine. Capacity-bound
// eviction is layered on top with github.com/hashicorp/golang-lru,
// tracking insertion/access recency and evicting the least-recently
// touched key from the go-cache store once capacity is exceeded. The
// exact eviction policy is unobservable to callers beyond "some entry
// goes once capacity is exceeded" and "no entry survives its TTL",
// matching the spec's §4.2 contract.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	lru "github.com/hashicorp/golang-lru"
)

// Cache is a thread-safe, generic keyed store. The zero value is not
// usable; construct with New.
type Cache[V any] struct {
	store *gocache.Cache

	mu       sync.Mutex
	recency  *lru.Cache // string -> struct{}; nil when unbounded
	capacity int
}

// New builds a cache. ttl <= 0 means entries never expire by time.
// capacity <= 0 means entries are never evicted by capacity pressure.
func New[V any](ttl time.Duration, capacity int) *Cache[V] {
	cleanupInterval := ttl
	if cleanupInterval <= 0 {
		cleanupInterval = 0
	}
	c := &Cache[V]{
		store:    gocache.New(ttlOrForever(ttl), cleanupInterval),
		capacity: capacity,
	}
	if capacity > 0 {
		// onEvicted fires synchronously from Add/Remove while we
		// already hold c.mu, so it must not try to re-lock it.
		recency, _ := lru.NewWithEvict(capacity, func(key, _ interface{}) {
			c.store.Delete(key.(string))
		})
		c.recency = recency
	}
	return c
}

func ttlOrForever(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

// Insert stores value under key, refreshing its TTL and recency.
func (c *Cache[V]) Insert(key string, value V) {
	c.store.SetDefault(key, value)
	c.bumpRecency(key)
}

// InsertTTL stores value under key with a per-entry TTL that
// overrides the cache's default, for callers (the guest-facing
// key-value capability) that need per-key expiry rather than one
// expiry for the whole cache. ttl <= 0 means this entry never expires
// by time.
func (c *Cache[V]) InsertTTL(key string, value V, ttl time.Duration) {
	c.store.Set(key, value, ttlOrForever(ttl))
	c.bumpRecency(key)
}

func (c *Cache[V]) bumpRecency(key string) {
	if c.recency == nil {
		return
	}
	c.mu.Lock()
	c.recency.Add(key, struct{}{})
	c.mu.Unlock()
}

// Get returns the value stored under key without consuming it.
// Reading bumps recency for capacity eviction purposes.
func (c *Cache[V]) Get(key string) (V, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		var zero V
		return zero, false
	}

	if c.recency != nil {
		c.mu.Lock()
		c.recency.Get(key) // bump recency; discard presence, store.Get already confirmed it
		c.mu.Unlock()
	}

	return raw.(V), true
}

// Remove returns and deletes the value stored under key.
func (c *Cache[V]) Remove(key string) (V, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.store.Delete(key)

	if c.recency != nil {
		c.mu.Lock()
		c.recency.Remove(key)
		c.mu.Unlock()
	}

	return raw.(V), true
}

// Len reports the number of stored entries. Entries past their TTL
// that the background sweep has not yet removed are still counted.
func (c *Cache[V]) Len() int {
	return c.store.ItemCount()
}
