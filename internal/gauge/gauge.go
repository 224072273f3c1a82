// Package gauge implements the per-player regenerating action resource.
package gauge

import "time"

// Gauge keeps 0 <= Value <= Max after every method call.
type Gauge struct {
	Value         float64 `json:"value"`
	Max           float64 `json:"max"`
	RatePerSecond float64 `json:"ratePerSecond"`
	Paused        bool    `json:"paused"`
}

func New(max, ratePerSecond float64) Gauge {
	g := Gauge{Max: max, RatePerSecond: ratePerSecond}
	g.clamp()
	return g
}

func (g *Gauge) clamp() {
	if g.Max < 0 {
		g.Max = 0
	}
	if g.Value < 0 {
		g.Value = 0
	}
	if g.Value > g.Max {
		g.Value = g.Max
	}
}

// Tick regenerates for dt. It is a no-op while paused.
func (g *Gauge) Tick(dt time.Duration) {
	if g.Paused || dt <= 0 {
		return
	}
	g.Value += g.RatePerSecond * dt.Seconds()
	g.clamp()
}

// Spend consumes cost when fully available and reports whether it did.
func (g *Gauge) Spend(cost float64) bool {
	if cost < 0 || g.Value < cost {
		return false
	}
	g.Value -= cost
	g.clamp()
	return true
}

func (g *Gauge) SetMax(max float64) {
	g.Max = max
	g.clamp()
}

func (g *Gauge) SetRate(ratePerSecond float64) {
	g.RatePerSecond = ratePerSecond
	g.clamp()
}

func (g *Gauge) Pause() {
	g.Paused = true
}

func (g *Gauge) Resume() {
	g.Paused = false
}
