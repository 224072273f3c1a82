package protocol

import (
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/cache"
	"github.com/bloops-games/stockrush/internal/clock"
)

// Deduper remembers recently applied ids. Memory is bounded by size and each
// id is forgotten after window.
type Deduper struct {
	seen *cache.Expiring
}

func NewDeduper(size int, window time.Duration, clk clock.Clock) (*Deduper, error) {
	lru, err := cache.NewLRU(size)
	if err != nil {
		return nil, fmt.Errorf("dedup cache: %w", err)
	}
	return &Deduper{seen: cache.NewExpiring(lru, window, clk)}, nil
}

// First reports whether id is new and marks it as seen.
func (d *Deduper) First(id string) bool {
	if _, ok := d.seen.Get(id); ok {
		return false
	}
	d.seen.Add(id, struct{}{})
	return true
}

func (d *Deduper) Seen(id string) bool {
	_, ok := d.seen.Get(id)
	return ok
}

func (d *Deduper) Mark(id string) {
	d.seen.Add(id, struct{}{})
}
