package lottery

import (
	"math"
	"testing"

	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/shopspring/decimal"
)

func TestScenarioUniformKinds(t *testing.T) {
	t.Parallel()

	src := rng.New(2024)
	counts := map[Kind]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		k, err := PickWeighted(src, DefaultEntries())
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[k]++
	}

	for _, k := range Kinds {
		share := float64(counts[k]) / draws
		if math.Abs(share-0.2) > 0.02 {
			t.Errorf("%s: share %.3f, want 0.200 +/- 0.02", k, share)
		}
	}
}

func TestPickWeightedRatios(t *testing.T) {
	t.Parallel()

	src := rng.New(99)
	entries := []Entry{{Kind: KindPriceSpike, Weight: 3}, {Kind: KindForceSell, Weight: 1}}
	counts := map[Kind]int{}
	const draws = 20000
	for i := 0; i < draws; i++ {
		k, err := PickWeighted(src, entries)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[k]++
	}

	share := float64(counts[KindPriceSpike]) / draws
	if math.Abs(share-0.75) > 0.02 {
		t.Fatalf("spike share %.3f, want 0.75 +/- 0.02", share)
	}
}

func TestPickDefaultsWeight(t *testing.T) {
	t.Parallel()

	src := rng.New(4)
	seen := map[Kind]bool{}
	for i := 0; i < 200; i++ {
		k, err := PickWeighted(src, []Entry{{Kind: KindClearHand}, {Kind: KindSetMoney, Weight: -3}})
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		seen[k] = true
	}
	if !seen[KindClearHand] || !seen[KindSetMoney] {
		t.Fatalf("zero and negative weights must default to 1: saw %v", seen)
	}

	if _, err := PickWeighted(src, nil); err == nil {
		t.Fatal("expected error on empty catalog")
	}
}

func TestShouldFire(t *testing.T) {
	t.Parallel()

	src := rng.New(31)
	if ShouldFire(src, 0) {
		t.Fatal("p=0 fired")
	}
	for i := 0; i < 100; i++ {
		if !ShouldFire(src, 1) {
			t.Fatal("p=1 did not fire")
		}
	}

	fired := 0
	const trials = 150000
	for i := 0; i < trials; i++ {
		if ShouldFire(src, 1.0/75) {
			fired++
		}
	}
	rate := float64(fired) / trials
	if math.Abs(rate-1.0/75) > 0.002 {
		t.Fatalf("fire rate %.4f, want about %.4f", rate, 1.0/75)
	}
}

func TestDraw(t *testing.T) {
	t.Parallel()

	src := rng.New(8)
	bands := Bands{PercentMin: 5, PercentMax: 15, MoneyMin: 50000, MoneyMax: 150000}
	lo, hi := decimal.NewFromInt(5), decimal.NewFromInt(15)

	for i := 0; i < 500; i++ {
		p := Draw(src, KindPriceCrash, bands)
		if p.Percent.LessThan(lo) || p.Percent.GreaterThan(hi) {
			t.Fatalf("percent %s outside band", p.Percent)
		}
		if SignedPercent(KindPriceCrash, p).Sign() >= 0 {
			t.Fatal("crash must move price down")
		}
		if SignedPercent(KindPriceSpike, p).Sign() <= 0 {
			t.Fatal("spike must move price up")
		}

		m := Draw(src, KindSetMoney, bands)
		if m.Amount < bands.MoneyMin || m.Amount > bands.MoneyMax {
			t.Fatalf("amount %d outside band", m.Amount)
		}
	}

	if p := Draw(src, KindClearHand, bands); !p.Percent.IsZero() || p.Amount != 0 {
		t.Fatalf("clear hand carries payload %+v", p)
	}
}
