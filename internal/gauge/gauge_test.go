package gauge

import (
	"math"
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/rng"
)

const eps = 1e-9

func TestScenarioRegenerateAndSpend(t *testing.T) {
	t.Parallel()

	g := New(100, 20)
	g.Tick(200 * time.Millisecond)
	if math.Abs(g.Value-4) > eps {
		t.Fatalf("value after 200ms: got %v, want 4", g.Value)
	}

	if g.Spend(30) {
		t.Fatal("spend(30) succeeded with value 4")
	}
	if math.Abs(g.Value-4) > eps {
		t.Fatalf("failed spend mutated value: %v", g.Value)
	}

	ticks := 0
	for g.Value < 30 {
		g.Tick(200 * time.Millisecond)
		ticks++
	}
	if ticks != 7 {
		t.Fatalf("ticks to reach 30: got %d, want 7", ticks)
	}

	before := g.Value
	if !g.Spend(30) {
		t.Fatal("spend(30) failed with enough value")
	}
	if math.Abs(before-30-g.Value) > eps {
		t.Fatalf("value after spend: got %v, want %v", g.Value, before-30)
	}
}

func TestPaused(t *testing.T) {
	t.Parallel()

	g := New(100, 20)
	g.Pause()
	g.Tick(time.Second)
	if g.Value != 0 {
		t.Fatalf("paused gauge regenerated: %v", g.Value)
	}

	g.Resume()
	g.Tick(time.Second)
	if math.Abs(g.Value-20) > eps {
		t.Fatalf("got %v, want 20", g.Value)
	}
}

func TestAdministrativeOverridesReclamp(t *testing.T) {
	t.Parallel()

	g := New(100, 50)
	g.Tick(2 * time.Second)
	if g.Value != 100 {
		t.Fatalf("value: got %v, want 100", g.Value)
	}

	g.SetMax(40)
	if g.Value != 40 {
		t.Fatalf("value after SetMax: got %v, want 40", g.Value)
	}

	g.SetRate(-100)
	g.Tick(time.Second)
	if g.Value != 0 {
		t.Fatalf("negative rate must floor at 0, got %v", g.Value)
	}

	g.SetMax(-1)
	if g.Max != 0 || g.Value != 0 {
		t.Fatalf("got max=%v value=%v, want 0 and 0", g.Max, g.Value)
	}
}

func TestSpendNegativeCost(t *testing.T) {
	t.Parallel()

	g := New(100, 0)
	g.Value = 10
	if g.Spend(-5) {
		t.Fatal("negative cost must fail")
	}
	if g.Value != 10 {
		t.Fatalf("value mutated: %v", g.Value)
	}
	if !g.Spend(0) {
		t.Fatal("zero cost must succeed")
	}
}

func TestBoundsHoldUnderRandomOperations(t *testing.T) {
	t.Parallel()

	src := rng.New(77)
	g := New(100, 20)
	for i := 0; i < 10000; i++ {
		switch src.Uint32n(4) {
		case 0:
			g.Tick(time.Duration(src.Uint32n(2000)) * time.Millisecond)
		case 1:
			cost := float64(src.Uint32n(120))
			before := g.Value
			ok := g.Spend(cost)
			if ok != (before >= cost) {
				t.Fatalf("step %d: spend(%v) with value %v returned %v", i, cost, before, ok)
			}
			if ok && math.Abs(before-cost-g.Value) > eps {
				t.Fatalf("step %d: spend reduced by %v, want %v", i, before-g.Value, cost)
			}
			if !ok && g.Value != before {
				t.Fatalf("step %d: failed spend mutated value", i)
			}
		case 2:
			g.SetMax(float64(src.Uint32n(150)))
		case 3:
			g.SetRate(float64(src.Uint32n(60)) - 10)
		}

		if g.Value < 0 || g.Value > g.Max {
			t.Fatalf("step %d: value %v outside [0, %v]", i, g.Value, g.Max)
		}
	}
}
