package cache

import (
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/clock"
)

func TestLRUBounded(t *testing.T) {
	t.Parallel()

	c, err := NewLRU(4)
	if err != nil {
		t.Fatalf("new lru: %v", err)
	}

	for i := 0; i < 10; i++ {
		c.Add(i, i)
	}

	if c.Len() > 4 {
		t.Fatalf("len: got %d, want <= 4", c.Len())
	}
	if _, ok := c.Get(9); !ok {
		t.Fatal("most recent key evicted")
	}
	if _, ok := c.Peek(0); ok {
		t.Fatal("oldest key still present")
	}

	c.Delete(9)
	if _, ok := c.Get(9); ok {
		t.Fatal("deleted key still present")
	}
	if got := c.Stats(); got != (Stats{Hits: 1, Misses: 1}) {
		t.Fatalf("stats: got %+v", got)
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("len after purge: got %d", c.Len())
	}
}

func TestNewLRUInvalidSize(t *testing.T) {
	t.Parallel()

	if _, err := NewLRU(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestExpiring(t *testing.T) {
	t.Parallel()

	lru, err := NewLRU(16)
	if err != nil {
		t.Fatalf("new lru: %v", err)
	}

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewExpiring(lru, time.Minute, clk)

	c.Add("evt-1", true)
	clk.Advance(59 * time.Second)
	if _, ok := c.Get("evt-1"); !ok {
		t.Fatal("entry expired early")
	}

	clk.Advance(time.Second)
	if _, ok := c.Get("evt-1"); ok {
		t.Fatal("entry survived its ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not dropped: len %d", c.Len())
	}
}
