// Package cache provides query result caching for graph snapshots.
//
// A snapshot never changes after it is built, so a result computed for a
// (revision, query) pair stays correct for as long as anyone can ask for
// it. Entries are only dropped to bound memory: LRU eviction, an optional
// TTL, and PurgeBefore once a store has moved past a revision.
//
// Usage:
//
//	c := cache.NewResultCache(1000, 5*time.Minute)
//
//	key := cache.Key(g.Rev(), "nodes", canonical)
//	if ids, ok := c.Get(key); ok {
//		return ids.([]graph.NodeID)
//	}
//	ids := run(g, q)
//	c.Put(key, g.Rev(), ids)
package cache

import (
	"container/list"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ResultCache is a thread-safe LRU cache of query results.
//
// The cache uses:
// - Hash map for O(1) lookups
// - Doubly-linked list for LRU ordering
// - TTL for automatic expiration
type ResultCache struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration
	enabled bool

	list  *list.List
	items map[uint64]*list.Element

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheEntry struct {
	key       uint64
	rev       uint64
	value     any
	expiresAt time.Time
}

// NewResultCache creates a new result cache.
//
// Parameters:
//   - maxSize: Maximum number of cached results (LRU eviction when exceeded)
//   - ttl: Time-to-live for cached entries (0 = no expiration)
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &ResultCache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key hashes a snapshot revision, a result kind ("nodes", "edges") and a
// canonical query string into a cache key.
func Key(rev uint64, kind, query string) uint64 {
	h := fnv.New64a()
	h.Write(strconv.AppendUint(nil, rev, 10))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(query))
	return h.Sum64()
}

// Get retrieves a cached result if present and not expired.
//
// Returns (value, true) on a hit and moves the entry to the front of the
// LRU list; (nil, false) on a miss.
func (c *ResultCache) Get(key uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.misses.Add(1)
		return nil, false
	}

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return nil, false
	}

	c.list.MoveToFront(elem)
	c.hits.Add(1)
	return entry.value, true
}

// Put stores the result computed against snapshot rev.
//
// If the cache is full, the least recently used entry is evicted.
// If the key already exists, the value is updated.
func (c *ResultCache) Put(key, rev uint64, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.rev = rev
		if c.ttl > 0 {
			entry.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	entry := &cacheEntry{key: key, rev: rev, value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.items[key] = c.list.PushFront(entry)
}

// PurgeBefore drops every entry computed against a revision older than rev
// and returns how many were dropped.
func (c *ResultCache) PurgeBefore(rev uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for elem := c.list.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*cacheEntry).rev < rev {
			c.removeElement(elem)
			dropped++
		}
		elem = next
	}
	return dropped
}

// Clear removes all entries from the cache.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Stats returns cache statistics.
func (c *ResultCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	c.mu.Lock()
	size := c.list.Len()
	c.mu.Unlock()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Size:    size,
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// Stats holds cache performance statistics.
type Stats struct {
	Size    int     // Current number of entries
	MaxSize int     // Maximum capacity
	Hits    uint64  // Number of cache hits
	Misses  uint64  // Number of cache misses
	HitRate float64 // Hit rate percentage (0-100)
}

// SetEnabled enables or disables the cache. Disabling drops all entries.
func (c *ResultCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.reset()
	}
}

// Caller must hold the lock.
func (c *ResultCache) reset() {
	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}

// Caller must hold the lock.
func (c *ResultCache) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// Caller must hold the lock.
func (c *ResultCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
}
