// Package clock abstracts time so that timers can be driven in tests.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Manual only moves when told to.
type Manual struct {
	mtx sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) time.Time {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.now = t
}

// Millis is the wire representation of a timestamp.
func Millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func FromMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond))
}
