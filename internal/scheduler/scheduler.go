// Package scheduler runs named periodic and one-shot tasks against an
// injected clock. It is not safe for concurrent use: it belongs to the event
// loop that calls Advance.
package scheduler

import (
	"sort"
	"time"

	"github.com/bloops-games/stockrush/internal/clock"
)

type Func func(now time.Time)

type Task struct {
	name      string
	every     time.Duration
	next      time.Time
	seq       uint64
	fn        Func
	cancelled bool
	owner     *Scheduler
}

func (t *Task) Name() string {
	return t.name
}

// Cancel stops the task. Cancelling twice is a no-op.
func (t *Task) Cancel() {
	if t.cancelled {
		return
	}
	t.cancelled = true
	if cur, ok := t.owner.tasks[t.name]; ok && cur == t {
		delete(t.owner.tasks, t.name)
	}
}

func (t *Task) Cancelled() bool {
	return t.cancelled
}

type Scheduler struct {
	clock clock.Clock
	tasks map[string]*Task
	seq   uint64
}

func New(c clock.Clock) *Scheduler {
	return &Scheduler{clock: c, tasks: map[string]*Task{}}
}

// Every schedules fn each interval, starting one interval from now. A task
// with the same name is replaced.
func (s *Scheduler) Every(name string, interval time.Duration, fn Func) *Task {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return s.add(name, interval, s.clock.Now().Add(interval), fn)
}

// After schedules fn once after delay.
func (s *Scheduler) After(name string, delay time.Duration, fn Func) *Task {
	if delay < 0 {
		delay = 0
	}
	return s.add(name, 0, s.clock.Now().Add(delay), fn)
}

func (s *Scheduler) add(name string, every time.Duration, next time.Time, fn Func) *Task {
	s.Cancel(name)
	s.seq++
	t := &Task{name: name, every: every, next: next, seq: s.seq, fn: fn, owner: s}
	s.tasks[name] = t
	return t
}

func (s *Scheduler) Cancel(name string) {
	if t, ok := s.tasks[name]; ok {
		t.Cancel()
	}
}

func (s *Scheduler) CancelAll() {
	for _, t := range s.tasks {
		t.cancelled = true
	}
	s.tasks = map[string]*Task{}
}

func (s *Scheduler) Has(name string) bool {
	_, ok := s.tasks[name]
	return ok
}

func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Advance runs every task due at now, earliest first, and returns how many
// ran. A periodic task fires at most once per call; after a stall it is
// rescheduled one interval past now.
func (s *Scheduler) Advance(now time.Time) int {
	due := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.next.After(now) {
			due = append(due, t)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].next.Equal(due[j].next) {
			return due[i].seq < due[j].seq
		}
		return due[i].next.Before(due[j].next)
	})

	var fired int
	for _, t := range due {
		if t.cancelled {
			continue
		}

		if t.every == 0 {
			t.Cancel()
		} else {
			t.next = t.next.Add(t.every)
			if !t.next.After(now) {
				t.next = now.Add(t.every)
			}
		}

		t.fn(now)
		fired++
	}

	return fired
}
