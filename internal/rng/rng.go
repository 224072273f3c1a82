// Package rng provides the random sources injected into the game engines.
package rng

import (
	"sync"

	"github.com/valyala/fastrand"
)

type Source interface {
	// Uint32n returns a number in [0, n).
	Uint32n(n uint32) uint32
	// Float64 returns a number in [0, 1).
	Float64() float64
}

type fast struct{}

// Fast is a process-wide source safe for concurrent use.
func Fast() Source {
	return fast{}
}

func (fast) Uint32n(n uint32) uint32 {
	return fastrand.Uint32n(n)
}

func (fast) Float64() float64 {
	return float64(fastrand.Uint32()) / (1 << 32)
}

// Seeded is a deterministic source. Safe for concurrent use.
type Seeded struct {
	mtx sync.Mutex
	rng fastrand.RNG
}

func New(seed uint32) *Seeded {
	if seed == 0 {
		seed = 1
	}
	s := &Seeded{}
	s.rng.Seed(seed)
	return s
}

func (s *Seeded) Uint32n(n uint32) uint32 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.rng.Uint32n(n)
}

func (s *Seeded) Float64() float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return float64(s.rng.Uint32()) / (1 << 32)
}

// Between returns a number in [lo, hi]. Bounds are swapped when reversed.
func Between(src Source, lo, hi int64) int64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	span := hi - lo + 1
	if span <= 1 {
		return lo
	}
	if span > 1<<32-1 {
		span = 1<<32 - 1
	}
	return lo + int64(src.Uint32n(uint32(span)))
}

// FloatBetween returns a number in [lo, hi).
func FloatBetween(src Source, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + src.Float64()*(hi-lo)
}
