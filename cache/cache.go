// Package cache provides a size-bounded cache whose entries expire after a
// fixed time to live.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTLCache is a least-recently-used cache with per-entry expiry. It is safe
// for concurrent use.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	maxSize int
	order   *list.List // front is most recently used
	items   map[K]*list.Element

	hits, misses, evictions uint64
}

type entry[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
}

// Stats reports cache counters.
type Stats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// New creates a cache holding at most maxSize entries for ttl each. A
// non-positive maxSize means unbounded; a non-positive ttl disables
// caching altogether.
func New[K comparable, V any](clock clockwork.Clock, ttl time.Duration, maxSize int) *TTLCache[K, V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[K, V]{
		clock:   clock,
		ttl:     ttl,
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[K]*list.Element),
	}
}

// Get returns the live value for key.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if !c.clock.Now().Before(e.expires) {
		c.removeElement(el)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *TTLCache[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expires = expires
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expires: expires})
	if c.maxSize > 0 && c.order.Len() > c.maxSize {
		c.removeElement(c.order.Back())
		c.evictions++
	}
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Purge drops expired entries and returns how many were removed.
func (c *TTLCache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry[K, V]).expires) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until
// they are touched or purged.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a snapshot of the counters.
func (c *TTLCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

func (c *TTLCache[K, V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[K, V]).key)
}
