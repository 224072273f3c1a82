package card

import (
	"time"

	"github.com/bloops-games/stockrush/internal/gauge"
)

type EffectKind string

const (
	EffectReduceHoldings EffectKind = "REDUCE_HOLDINGS"
	EffectDraw           EffectKind = "DRAW"
	EffectGuard          EffectKind = "GUARD"
	EffectSlow           EffectKind = "SLOW"
	EffectDiscount       EffectKind = "DISCOUNT"
)

func (k EffectKind) Valid() bool {
	switch k {
	case EffectReduceHoldings, EffectDraw, EffectGuard, EffectSlow, EffectDiscount:
		return true
	default:
		return false
	}
}

// Harmful effects are negated by a guard stack.
func (k EffectKind) Harmful() bool {
	return k == EffectReduceHoldings || k == EffectSlow
}

type Rarity string

const (
	RarityCommon Rarity = "common"
	RarityRare   Rarity = "rare"
	RarityEpic   Rarity = "epic"
)

// Weight is the relative chance of drawing a card of this rarity.
func (r Rarity) Weight() int {
	switch r {
	case RarityRare:
		return 2
	case RarityEpic:
		return 1
	default:
		return 4
	}
}

type Effect struct {
	Kind      EffectKind `yaml:"kind"`
	Magnitude int64      `yaml:"magnitude"`
}

type Definition struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Rarity      Rarity        `yaml:"rarity"`
	NeedsTarget bool          `yaml:"needsTarget"`
	SelfOnly    bool          `yaml:"selfOnly"`
	GaugeCost   float64       `yaml:"gaugeCost"`
	Cooldown    time.Duration `yaml:"cooldown"`
	Effect      Effect        `yaml:"effect"`
}

type Instance struct {
	ID     string `json:"id"`
	CardID string `json:"cardId"`
}

type PlayerState struct {
	Cash          int64
	Holdings      int64
	Gauge         gauge.Gauge
	Hand          []Instance
	GuardStacks   int
	SlowUntil     time.Time
	DiscountUntil time.Time
}

func (s PlayerState) Clone() PlayerState {
	if s.Hand != nil {
		hand := make([]Instance, len(s.Hand))
		copy(hand, s.Hand)
		s.Hand = hand
	}
	return s
}

func (s PlayerState) Slowed(now time.Time) bool {
	return now.Before(s.SlowUntil)
}

func (s PlayerState) Discounted(now time.Time) bool {
	return now.Before(s.DiscountUntil)
}

// Worth values holdings at price.
func (s PlayerState) Worth(price int64) int64 {
	return s.Cash + s.Holdings*price
}

// Table maps participant id to player state.
type Table map[string]PlayerState

func (t Table) Clone() Table {
	cp := make(Table, len(t))
	for id, s := range t {
		cp[id] = s.Clone()
	}
	return cp
}

type Catalog interface {
	Card(id string) (Definition, bool)
}
