package room

import (
	"errors"
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/rng"
)

func TestRegistryCreateJoin(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(2, clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	id, err := reg.Create(" abc123 ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "ABC123" {
		t.Fatalf("normalized id: got %q", id)
	}

	if _, err := reg.Create("ABC123"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate create: got %v, want conflict", err)
	}
	if _, err := reg.Join("nope42", Member{ID: "a"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("join missing: got %v, want not found", err)
	}
	if _, err := reg.Join("a!", Member{ID: "a"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("join malformed: got %v, want validation", err)
	}

	info, err := reg.Join("abc123", Member{ID: "a", Name: "alice"})
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	if info.State != StateWaiting {
		t.Fatalf("state: got %s, want WAITING", info.State)
	}
	if _, err := reg.Join("abc123", Member{ID: "b", Name: "bob"}); err != nil {
		t.Fatalf("join b: %v", err)
	}
	if _, err := reg.Join("abc123", Member{ID: "c", Name: "carol"}); !errors.Is(err, apperr.ErrCapacity) {
		t.Fatalf("join full: got %v, want capacity", err)
	}

	if reg.Leave("abc123", "a") {
		t.Fatal("room destroyed with a member left")
	}
	if !reg.Leave("ABC123", "b") {
		t.Fatal("room must be destroyed when empty")
	}
	if _, ok := reg.Get("abc123"); ok {
		t.Fatal("destroyed room still registered")
	}
	if reg.Len() != 0 {
		t.Fatalf("len: got %d", reg.Len())
	}
}

func TestRegistrySweep(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	reg := NewRegistry(2, clk)

	_, _ = reg.Create("idle1")
	_, _ = reg.Create("busy1")
	_, _ = reg.Join("busy1", Member{ID: "a"})

	clk.Advance(time.Minute)
	if got := reg.Sweep(2 * time.Minute); len(got) != 0 {
		t.Fatalf("swept too early: %v", got)
	}

	clk.Advance(time.Minute)
	got := reg.Sweep(2 * time.Minute)
	if len(got) != 1 || got[0] != "IDLE1" {
		t.Fatalf("swept: got %v, want [IDLE1]", got)
	}
	if _, ok := reg.Get("busy1"); !ok {
		t.Fatal("occupied room swept")
	}
}

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "abc", want: "ABC", ok: true},
		{in: "  x9y8z7 ", want: "X9Y8Z7", ok: true},
		{in: "ab", ok: false},
		{in: "abcdefghijklm", ok: false},
		{in: "ab-12", ok: false},
		{in: "ÄBC", ok: false},
	}

	for _, tc := range testCases {
		got, err := NormalizeID(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("NormalizeID(%q): got (%q, %v), want (%q, ok=%v)", tc.in, got, err, tc.want, tc.ok)
		}
	}
}

func TestGenerateID(t *testing.T) {
	t.Parallel()

	src := rng.New(5)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateID(src)
		if _, err := NormalizeID(id); err != nil {
			t.Fatalf("generated id %q invalid: %v", id, err)
		}
		seen[id] = true
	}
	if len(seen) < 95 {
		t.Fatalf("too many collisions: %d unique of 100", len(seen))
	}
}
