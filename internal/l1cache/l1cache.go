// Package l1cache is the in-process rendered-tile cache: an
// entry-bounded LRU keyed by the canonical cache key string, holding
// complete encoded tile bytes.
package l1cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one cached rendered tile.
type Entry struct {
	Bytes         []byte
	EncodedFormat string
	InsertedAt    time.Time
	TTL           time.Duration
}

// Expired reports whether e's TTL has elapsed as of now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Cache is the L1 rendered-tile cache.
type Cache struct {
	lru *lru.Cache[string, Entry]
}

// New constructs an L1 cache holding up to maxEntries rendered tiles.
func New(maxEntries int) (*Cache, error) {
	c, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached entry for key, or (zero, false) on miss or if
// the entry's TTL has expired (an expired entry is evicted on access).
func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return Entry{}, false
	}
	if e.Expired(time.Now()) {
		c.lru.Remove(key)
		return Entry{}, false
	}
	return e, true
}

// Set inserts or replaces the entry for key.
func (c *Cache) Set(key string, e Entry) {
	c.lru.Add(key, e)
}

// DeletePattern drops every key for which match returns true, used by the
// ingestion-event subscriber to invalidate an entire model+parameter's
// cached tiles. L1 has no server-side pattern scan, so the coordinator
// supplies a match predicate over the keys it knows are now stale.
func (c *Cache) DeletePattern(match func(key string) bool) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if match(key) {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
