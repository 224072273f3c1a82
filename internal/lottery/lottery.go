// Package lottery draws random game events: a weighted pick of the event
// kind and a per-tick Bernoulli trigger.
package lottery

import (
	"fmt"
	"math"

	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindClearHand  Kind = "CLEAR_HAND"
	KindSetMoney   Kind = "SET_MONEY"
	KindPriceSpike Kind = "PRICE_SPIKE"
	KindPriceCrash Kind = "PRICE_CRASH"
	KindForceSell  Kind = "FORCE_SELL"
)

var Kinds = []Kind{KindClearHand, KindSetMoney, KindPriceSpike, KindPriceCrash, KindForceSell}

func (k Kind) Valid() bool {
	switch k {
	case KindClearHand, KindSetMoney, KindPriceSpike, KindPriceCrash, KindForceSell:
		return true
	default:
		return false
	}
}

// MovesPrice reports kinds that are applied to the shared series by the host.
func (k Kind) MovesPrice() bool {
	return k == KindPriceSpike || k == KindPriceCrash
}

type Entry struct {
	Kind   Kind `yaml:"kind"`
	Weight int  `yaml:"weight"`
}

// DefaultEntries weighs every kind equally.
func DefaultEntries() []Entry {
	entries := make([]Entry, 0, len(Kinds))
	for _, k := range Kinds {
		entries = append(entries, Entry{Kind: k, Weight: 1})
	}
	return entries
}

// PickIndex draws an index with probability proportional to its weight.
// Non-positive weights count as 1.
func PickIndex(src rng.Source, weights []int) (int, error) {
	if len(weights) == 0 {
		return 0, fmt.Errorf("pick from empty weights")
	}

	total := 0
	for _, w := range weights {
		if w <= 0 {
			w = 1
		}
		total += w
	}
	if total > math.MaxUint32 {
		return 0, fmt.Errorf("total weight %d overflows", total)
	}

	roll := int(src.Uint32n(uint32(total)))
	for i, w := range weights {
		if w <= 0 {
			w = 1
		}
		if roll < w {
			return i, nil
		}
		roll -= w
	}

	return len(weights) - 1, nil
}

func PickWeighted(src rng.Source, entries []Entry) (Kind, error) {
	weights := make([]int, len(entries))
	for i, e := range entries {
		weights[i] = e.Weight
	}

	i, err := PickIndex(src, weights)
	if err != nil {
		return "", fmt.Errorf("pick event kind: %w", err)
	}
	return entries[i].Kind, nil
}

// ShouldFire runs one Bernoulli trial with success probability p.
func ShouldFire(src rng.Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}

type Bands struct {
	PercentMin float64
	PercentMax float64
	MoneyMin   int64
	MoneyMax   int64
}

type Payload struct {
	Percent decimal.Decimal `json:"percent"`
	Amount  int64           `json:"amount,omitempty"`
}

// Draw assigns the event-specific payload. Percentages have one decimal place
// and are always positive; the kind carries the direction.
func Draw(src rng.Source, kind Kind, b Bands) Payload {
	switch kind {
	case KindPriceSpike, KindPriceCrash:
		lo := int64(math.Round(b.PercentMin * 10))
		hi := int64(math.Round(b.PercentMax * 10))
		if lo < 0 {
			lo = 0
		}
		if hi < lo {
			hi = lo
		}
		return Payload{Percent: decimal.New(rng.Between(src, lo, hi), -1)}
	case KindSetMoney:
		return Payload{Percent: decimal.Zero, Amount: rng.Between(src, b.MoneyMin, b.MoneyMax)}
	default:
		return Payload{Percent: decimal.Zero}
	}
}

// SignedPercent is the percentage move of a price event, negative for crashes.
func SignedPercent(kind Kind, p Payload) decimal.Decimal {
	if kind == KindPriceCrash {
		return p.Percent.Abs().Neg()
	}
	return p.Percent.Abs()
}
