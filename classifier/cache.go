package classifier

import (
	"sort"
	"sync"
	"time"
)

type cacheEntry struct {
	result     *TagResult
	insertedAt time.Time
}

// resultCache bounds repeat-classification cost and memory with two
// independent policies: entries expire after ttl (checked lazily at read
// time, no background sweep), and when an insert pushes the map past
// capacity the oldest 20% of entries by insertion time are evicted in one
// pass.
type resultCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*cacheEntry
}

func newResultCache(ttl time.Duration, capacity int) *resultCache {
	return &resultCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

func (c *resultCache) get(key string, now time.Time) (*TagResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

func (c *resultCache) put(key string, result *TagResult, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{result: result, insertedAt: now}
	if len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
}

func (c *resultCache) evictOldestLocked() {
	type aged struct {
		key string
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, at: e.insertedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })

	n := len(all) / 5
	if n < 1 {
		n = 1
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
