package scheduler

import (
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/clock"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestEvery(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(epoch)
	s := New(c)

	var ticks int
	s.Every("gauge", 200*time.Millisecond, func(time.Time) { ticks++ })

	for i := 0; i < 10; i++ {
		s.Advance(c.Advance(100 * time.Millisecond))
	}

	if ticks != 5 {
		t.Fatalf("ticks: got %d, want 5", ticks)
	}
}

func TestEveryNoBurstAfterStall(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(epoch)
	s := New(c)

	var ticks int
	s.Every("status", 500*time.Millisecond, func(time.Time) { ticks++ })

	s.Advance(c.Advance(10 * time.Second))
	if ticks != 1 {
		t.Fatalf("ticks after stall: got %d, want 1", ticks)
	}

	s.Advance(c.Advance(400 * time.Millisecond))
	if ticks != 1 {
		t.Fatalf("ticks before next interval: got %d, want 1", ticks)
	}

	s.Advance(c.Advance(100 * time.Millisecond))
	if ticks != 2 {
		t.Fatalf("ticks: got %d, want 2", ticks)
	}
}

func TestAfterFiresOnce(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(epoch)
	s := New(c)

	var fired int
	s.After("finish", time.Second, func(time.Time) { fired++ })

	s.Advance(c.Advance(999 * time.Millisecond))
	if fired != 0 {
		t.Fatal("one-shot fired early")
	}

	s.Advance(c.Advance(time.Millisecond))
	s.Advance(c.Advance(time.Second))
	if fired != 1 {
		t.Fatalf("fired: got %d, want 1", fired)
	}
	if s.Len() != 0 {
		t.Fatalf("one-shot task still registered: %d", s.Len())
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(epoch)
	s := New(c)

	var a, b int
	task := s.Every("a", time.Second, func(time.Time) { a++ })
	s.Every("b", time.Second, func(time.Time) { b++ })

	task.Cancel()
	task.Cancel()
	s.Advance(c.Advance(time.Second))
	if a != 0 || b != 1 {
		t.Fatalf("got a=%d b=%d, want a=0 b=1", a, b)
	}

	s.CancelAll()
	s.Advance(c.Advance(5 * time.Second))
	if b != 1 {
		t.Fatalf("task fired after CancelAll: b=%d", b)
	}
	if s.Len() != 0 {
		t.Fatalf("len: got %d, want 0", s.Len())
	}
}

func TestCancelFromTask(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(epoch)
	s := New(c)

	var later int
	s.Every("first", time.Second, func(time.Time) { s.Cancel("second") })
	s.Every("second", time.Second, func(time.Time) { later++ })

	s.Advance(c.Advance(time.Second))
	if later != 0 {
		t.Fatalf("cancelled task ran: %d", later)
	}
}

func TestReplaceByName(t *testing.T) {
	t.Parallel()

	c := clock.NewManual(epoch)
	s := New(c)

	var old, cur int
	first := s.Every("tick", time.Second, func(time.Time) { old++ })
	s.Every("tick", time.Second, func(time.Time) { cur++ })

	s.Advance(c.Advance(time.Second))
	if old != 0 || cur != 1 {
		t.Fatalf("got old=%d cur=%d, want 0 and 1", old, cur)
	}
	if !first.Cancelled() {
		t.Fatal("replaced task must be cancelled")
	}
	if !s.Has("tick") || s.Len() != 1 {
		t.Fatal("replacement must stay registered")
	}
}
