package cache

import (
	"time"

	"github.com/bloops-games/stockrush/internal/clock"
)

type expiringEntry struct {
	value    interface{}
	deadline time.Time
}

// Expiring bounds entries both by count, through the wrapped cache, and by
// age. An expired entry reads as absent and is dropped on access.
type Expiring struct {
	cache Cache
	ttl   time.Duration
	clock clock.Clock
}

func NewExpiring(c Cache, ttl time.Duration, clk clock.Clock) *Expiring {
	return &Expiring{cache: c, ttl: ttl, clock: clk}
}

func (e *Expiring) Get(key interface{}) (interface{}, bool) {
	raw, ok := e.cache.Get(key)
	if !ok {
		return nil, false
	}

	entry := raw.(expiringEntry)
	if !e.clock.Now().Before(entry.deadline) {
		e.cache.Delete(key)
		return nil, false
	}

	return entry.value, true
}

func (e *Expiring) Add(key, value interface{}) {
	e.cache.Add(key, expiringEntry{value: value, deadline: e.clock.Now().Add(e.ttl)})
}

func (e *Expiring) Delete(key interface{}) {
	e.cache.Delete(key)
}

// Len counts entries including expired ones not yet evicted.
func (e *Expiring) Len() int {
	return e.cache.Len()
}
