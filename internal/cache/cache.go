// Package cache implements the bounded lookup-result cache backing table
// searches. Eviction is strict LRU: a get refreshes recency, and when an
// insert would exceed capacity the entry untouched for the longest time is
// dropped. Entries equally recent fall back to insertion order, oldest
// first, so eviction is deterministic.
package cache

import (
	"container/list"
	"fmt"
	"time"
)

// Key identifies one lookup: the queried field and the queried value.
type Key struct {
	Field string
	Value string
}

// Stats tracks cache effectiveness counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	LastReset time.Time
}

type entry[V any] struct {
	key      Key
	val      V
	positive bool
}

// ResultCache is a bounded LRU mapping from lookup keys to results.
// A negative entry records a confirmed-absent lookup, which is distinct
// from a key that has never been looked up at all.
//
// ResultCache is not safe for concurrent use; the owning table serializes
// access under its own lock.
type ResultCache[V any] struct {
	capacity int
	ll       *list.List            // front = most recently used
	items    map[Key]*list.Element // key → position in ll
	stats    Stats
}

// New creates a cache holding at most capacity entries.
func New[V any](capacity int) (*ResultCache[V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	return &ResultCache[V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element, capacity),
		stats:    Stats{LastReset: time.Now()},
	}, nil
}

// Get returns the result stored for key and refreshes its recency.
// positive reports whether the entry holds a real result rather than a
// cached "confirmed absent"; ok reports whether the key was present at all.
func (c *ResultCache[V]) Get(key Key) (val V, positive, ok bool) {
	elem, found := c.items[key]
	if !found {
		c.stats.Misses++
		var zero V
		return zero, false, false
	}
	c.stats.Hits++
	c.ll.MoveToFront(elem)
	e := elem.Value.(*entry[V])
	return e.val, e.positive, true
}

// Put stores a positive result for key, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *ResultCache[V]) Put(key Key, val V) {
	c.put(key, val, true)
}

// PutNegative records that a lookup for key found nothing.
func (c *ResultCache[V]) PutNegative(key Key) {
	var zero V
	c.put(key, zero, false)
}

func (c *ResultCache[V]) put(key Key, val V, positive bool) {
	if elem, found := c.items[key]; found {
		c.ll.MoveToFront(elem)
		e := elem.Value.(*entry[V])
		e.val = val
		e.positive = positive
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evict()
	}
	c.items[key] = c.ll.PushFront(&entry[V]{key: key, val: val, positive: positive})
}

func (c *ResultCache[V]) evict() {
	back := c.ll.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry[V])
	c.ll.Remove(back)
	delete(c.items, e.key)
	c.stats.Evictions++
}

// Invalidate removes a single entry. Removing an absent key is a no-op.
func (c *ResultCache[V]) Invalidate(key Key) {
	if elem, found := c.items[key]; found {
		c.ll.Remove(elem)
		delete(c.items, key)
	}
}

// Clear removes all entries. Counters survive so tests and the REPL can
// still read hit rates across writes.
func (c *ResultCache[V]) Clear() {
	c.ll.Init()
	c.items = make(map[Key]*list.Element, c.capacity)
}

// Len returns the number of cached entries.
func (c *ResultCache[V]) Len() int {
	return c.ll.Len()
}

// Capacity returns the configured maximum number of entries.
func (c *ResultCache[V]) Capacity() int {
	return c.capacity
}

// Stats returns the current counters.
func (c *ResultCache[V]) Stats() Stats {
	return c.stats
}

// ResetStats zeroes the counters.
func (c *ResultCache[V]) ResetStats() {
	c.stats = Stats{LastReset: time.Now()}
}

// Keys returns the cached keys from most to least recently used.
// Intended for tests and diagnostics.
func (c *ResultCache[V]) Keys() []Key {
	keys := make([]Key, 0, c.ll.Len())
	for e := c.ll.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*entry[V]).key)
	}
	return keys
}
