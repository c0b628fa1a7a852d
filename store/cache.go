package store

import (
	"sync"
	"time"

	"github.com/veylan/triplestore/layer"
)

// Cache is the layer store's identity cache (spec.md §4.M): concurrent
// lookups during the cache's hit window return the same *layer.Layer,
// satisfying the identity-equality guarantee in spec.md §5 ("two
// concurrent get_layer(id) calls return the same in-memory layer
// handle ... whenever the cache hit window overlaps").
//
// The spec's own wording is a weak reference that a still-held layer
// keeps alive and a dropped one lets expire. Go's standard library has
// no such primitive available to a module on this toolchain (weak
// references only landed, experimentally, in a newer Go release than
// this module targets), and no repo in the retrieval pack rolls its
// own finalizer-based weak map. Cache substitutes a TTL: an entry
// survives for a fixed window after its last store, then is evicted
// lazily on the next lookup that finds it stale, the same "lazily
// evicted once gone" shape the spec describes, with wall-clock expiry
// standing in for garbage-collected expiry.
type Cache struct {
	mu      sync.RWMutex
	entries map[layer.ID]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	layer   *layer.Layer
	expires time.Time
}

// NewCache returns an empty cache whose entries live for ttl after
// being stored.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[layer.ID]cacheEntry), ttl: ttl, now: time.Now}
}

func (c *Cache) get(id layer.ID) *layer.Layer {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return nil
	}
	return e.layer
}

func (c *Cache) put(id layer.ID, l *layer.Layer) {
	c.mu.Lock()
	c.entries[id] = cacheEntry{layer: l, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// invalidate drops id unconditionally, the cache side of
// register_rollup's "invalidates any cache entry for id".
func (c *Cache) invalidate(id layer.ID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Len reports the number of live (non-expired) entries, for tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	now := c.now()
	for _, e := range c.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}
