package rng

import "testing"

func TestSeededDeterministic(t *testing.T) {
	t.Parallel()

	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Uint32n(1000), b.Uint32n(1000); x != y {
			t.Fatalf("draw %d: got %d and %d from equal seeds", i, x, y)
		}
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	src := New(7)
	seen := map[int64]bool{}
	for i := 0; i < 1000; i++ {
		v := Between(src, -2, 2)
		if v < -2 || v > 2 {
			t.Fatalf("value %d out of [-2, 2]", v)
		}
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Fatalf("expected all 5 values, got %v", seen)
	}
	if got := Between(src, 9, 9); got != 9 {
		t.Fatalf("got %d, want 9", got)
	}
	if got := Between(src, 5, 3); got < 3 || got > 5 {
		t.Fatalf("reversed bounds: got %d", got)
	}
}

func TestFloat64Range(t *testing.T) {
	t.Parallel()

	for _, src := range []Source{Fast(), New(3)} {
		for i := 0; i < 1000; i++ {
			if f := src.Float64(); f < 0 || f >= 1 {
				t.Fatalf("float %v out of [0, 1)", f)
			}
		}
	}
}
