// Package chunkcache is the byte-bounded LRU of decoded grid chunks shared
// by all render operations inside one process, keyed by
// (storage_path, pyramid_level, ci, cj).
package chunkcache

import (
	"container/list"
	"sync"
)

// Key addresses one decoded chunk.
type Key struct {
	StoragePath string
	Level       int
	Ci, Cj      int
}

// DecodedArray is a shared-immutable handle to a decoded chunk: the cache
// owns the backing slice, and callers must not mutate it.
type DecodedArray struct {
	Data       []float32
	Rows, Cols int
}

// ByteSize is 4 bytes per float32 element, per the spec's ChunkCacheEntry
// sizing rule.
func (d *DecodedArray) ByteSize() int64 {
	return 4 * int64(len(d.Data))
}

// Stats are the cache counters exposed for metrics.
type Stats struct {
	Hits, Misses, Evictions int64
	CurrentBytes            int64
}

type entry struct {
	key   Key
	value *DecodedArray
}

// Cache is a byte-bounded LRU guarded by one exclusive mutex. Every
// operation, Get included (it moves the entry to the front), takes that
// lock, so concurrent readers do not run in parallel.
type Cache struct {
	mu         sync.Mutex
	maxBytes   int64
	curBytes   int64
	ll         *list.List
	items      map[Key]*list.Element
	hits       int64
	misses     int64
	evictions  int64
}

// New constructs a Cache with the given byte budget.
func New(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
}

// Get returns the decoded chunk for key, or (nil, false) on miss. A hit
// moves the entry to the front (most-recently-used).
func (c *Cache) Get(key Key) (*DecodedArray, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		return el.Value.(*entry).value, true
	}
	c.misses++
	return nil, false
}

// Insert adds a decoded chunk, then evicts least-recently-used entries
// until the total byte budget holds.
func (c *Cache) Insert(key Key, value *DecodedArray) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.curBytes -= el.Value.(*entry).value.ByteSize()
		el.Value = &entry{key: key, value: value}
		c.curBytes += value.ByteSize()
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry{key: key, value: value})
		c.items[key] = el
		c.curBytes += value.ByteSize()
	}

	for c.curBytes > c.maxBytes && c.ll.Len() > 0 {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.evictLocked(back)
	}
}

func (c *Cache) evictLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.items, e.key)
	c.curBytes -= e.value.ByteSize()
	c.evictions++
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		CurrentBytes:  c.curBytes,
	}
}
