// Package market implements the bounded random-walk price series. Every
// function is pure: series values are never modified in place.
package market

import (
	"time"

	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/shopspring/decimal"
)

type Mode uint8

const (
	// ModeTick overwrites the latest point.
	ModeTick Mode = iota + 1
	// ModeCommit appends a point, evicting the oldest once full.
	ModeCommit
)

type PricePoint struct {
	Timestamp int64 `json:"timestamp"`
	Price     int64 `json:"price"`
	Volume    int64 `json:"volume"`
}

type Config struct {
	Min       int64
	Max       int64
	Start     int64
	Len       int
	VolumeMin int64
	VolumeMax int64
	SeedStep  int64
	Unit      time.Duration
}

type Series struct {
	points []PricePoint
}

func FromPoints(points []PricePoint) Series {
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	return Series{points: cp}
}

func (s Series) Len() int {
	return len(s.points)
}

func (s Series) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// Last returns the latest point, false when the series is empty.
func (s Series) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

func (s Series) LastPrice() int64 {
	p, _ := s.Last()
	return p.Price
}

func Clamp(price, min, max int64) int64 {
	if price < min {
		return min
	}
	if price > max {
		return max
	}
	return price
}

// Apply returns the series with rawDelta applied to the latest price. An empty
// series starts from cfg.Start.
func Apply(s Series, rawDelta int64, mode Mode, cfg Config, src rng.Source, now time.Time) Series {
	base := cfg.Start
	last, ok := s.Last()
	if ok {
		base = last.Price
	}

	point := PricePoint{
		Timestamp: clock.Millis(now),
		Price:     Clamp(base+rawDelta, cfg.Min, cfg.Max),
		Volume:    rng.Between(src, cfg.VolumeMin, cfg.VolumeMax),
	}

	if mode == ModeTick && ok {
		next := s.Points()
		point.Timestamp = last.Timestamp
		next[len(next)-1] = point
		return Series{points: next}
	}

	keep := s.points
	if cfg.Len > 0 && len(keep) >= cfg.Len {
		keep = keep[len(keep)-cfg.Len+1:]
	}

	next := make([]PricePoint, 0, len(keep)+1)
	next = append(next, keep...)
	next = append(next, point)
	return Series{points: next}
}

// Seed builds cfg.Len points ending at now, spaced cfg.Unit apart.
func Seed(cfg Config, src rng.Source, now time.Time) Series {
	unit := cfg.Unit
	if unit <= 0 {
		unit = time.Second
	}

	points := make([]PricePoint, 0, cfg.Len)
	price := Clamp(cfg.Start, cfg.Min, cfg.Max)
	start := now.Add(-time.Duration(cfg.Len-1) * unit)
	for i := 0; i < cfg.Len; i++ {
		if i > 0 {
			price = Clamp(price+rng.Between(src, -cfg.SeedStep, cfg.SeedStep), cfg.Min, cfg.Max)
		}
		points = append(points, PricePoint{
			Timestamp: clock.Millis(start.Add(time.Duration(i) * unit)),
			Price:     price,
			Volume:    rng.Between(src, cfg.VolumeMin, cfg.VolumeMax),
		})
	}

	return Series{points: points}
}

// PercentDelta is the integer move that shifts price by pct percent, rounded
// half away from zero.
func PercentDelta(price int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(price).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart()
}
