package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

var _ Cache = (*LRU)(nil)

// LRU is a bounded adaptive replacement cache that counts its lookups. Safe
// for concurrent use.
type LRU struct {
	arc    *lru.ARCCache
	hits   uint64
	misses uint64
}

// Stats reports lookups served by Get since creation.
type Stats struct {
	Hits   uint64
	Misses uint64
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lru size must be positive, got %d", size)
	}

	arc, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("new arc cache: %w", err)
	}

	return &LRU{arc: arc}, nil
}

func (c *LRU) Get(key interface{}) (interface{}, bool) {
	v, ok := c.arc.Get(key)
	if ok {
		atomic.AddUint64(&c.hits, 1)
	} else {
		atomic.AddUint64(&c.misses, 1)
	}
	return v, ok
}

// Peek reads without touching recency or the counters.
func (c *LRU) Peek(key interface{}) (interface{}, bool) {
	return c.arc.Peek(key)
}

func (c *LRU) Add(key, value interface{}) {
	c.arc.Add(key, value)
}

func (c *LRU) Keys() []interface{} {
	return c.arc.Keys()
}

func (c *LRU) Delete(key interface{}) {
	c.arc.Remove(key)
}

func (c *LRU) Len() int {
	return c.arc.Len()
}

func (c *LRU) Purge() {
	c.arc.Purge()
}

func (c *LRU) Stats() Stats {
	return Stats{Hits: atomic.LoadUint64(&c.hits), Misses: atomic.LoadUint64(&c.misses)}
}
