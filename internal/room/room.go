// Package room implements the room lifecycle shared by every participant:
// membership, ready checks and the match states derived from them.
package room

import (
	"sort"
	"strings"

	"github.com/bloops-games/stockrush/internal/apperr"
)

type State uint8

const (
	StateEmpty State = iota
	StateWaiting
	StateReadyCheck
	StateMatched
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateWaiting:
		return "WAITING"
	case StateReadyCheck:
		return "READY_CHECK"
	case StateMatched:
		return "MATCHED"
	case StateActive:
		return "ACTIVE"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

type Member struct {
	ID    string
	Name  string
	Ready bool
}

type ChangeKind uint8

const (
	ChangeJoined ChangeKind = iota + 1
	ChangeLeft
	ChangeReady
	ChangeState
)

type Change struct {
	Kind   ChangeKind
	Member string
	From   State
	To     State
}

// Room is not safe for concurrent use.
type Room struct {
	ID       string
	Capacity int

	state   State
	members map[string]Member
}

func New(id string, capacity int) *Room {
	return &Room{ID: id, Capacity: capacity, members: map[string]Member{}}
}

func (r *Room) State() State {
	return r.state
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) Full() bool {
	return len(r.members) >= r.Capacity
}

func (r *Room) Has(id string) bool {
	_, ok := r.members[id]
	return ok
}

func (r *Room) Member(id string) (Member, bool) {
	m, ok := r.members[id]
	return m, ok
}

// Members returns the members sorted by id.
func (r *Room) Members() []Member {
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Room) AllReady() bool {
	if len(r.members) == 0 {
		return false
	}
	for _, m := range r.members {
		if !m.Ready {
			return false
		}
	}
	return true
}

// Join adds m. Rejoining updates the name and keeps the ready flag.
func (r *Room) Join(m Member) ([]Change, error) {
	if m.ID == "" {
		return nil, apperr.Validation("join room", "empty participant id")
	}

	if cur, ok := r.members[m.ID]; ok {
		cur.Name = m.Name
		r.members[m.ID] = cur
		return nil, nil
	}

	if r.Full() {
		return nil, apperr.Capacity("join room", "room %s is full (%d/%d)", r.ID, len(r.members), r.Capacity)
	}

	r.members[m.ID] = m
	changes := []Change{{Kind: ChangeJoined, Member: m.ID}}
	return r.settle(changes), nil
}

func (r *Room) Leave(id string) []Change {
	if _, ok := r.members[id]; !ok {
		return nil
	}
	delete(r.members, id)
	return r.settle([]Change{{Kind: ChangeLeft, Member: id}})
}

// CheckReady reports why id may not mark itself ready.
func (r *Room) CheckReady(id string) error {
	m, ok := r.members[id]
	if !ok {
		return apperr.NotFound("set ready", "participant %s not in room %s", id, r.ID)
	}
	if other, dup := r.nameTaken(m); dup {
		return apperr.Conflict("set ready", "name %q already used by %s", m.Name, other)
	}
	return nil
}

// SetReady flips the ready flag. Marking ready is refused while another
// member uses the same display name.
func (r *Room) SetReady(id string, ready bool) ([]Change, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, apperr.NotFound("set ready", "participant %s not in room %s", id, r.ID)
	}

	if ready {
		if err := r.CheckReady(id); err != nil {
			return nil, err
		}
	}

	if m.Ready == ready {
		return nil, nil
	}

	m.Ready = ready
	r.members[id] = m
	return r.settle([]Change{{Kind: ChangeReady, Member: id}}), nil
}

func (r *Room) nameTaken(m Member) (string, bool) {
	for _, other := range r.members {
		if other.ID != m.ID && strings.EqualFold(other.Name, m.Name) {
			return other.ID, true
		}
	}
	return "", false
}

// Start moves a matched room to active. Only the host may start it.
func (r *Room) Start(by, hostID string) ([]Change, error) {
	const op = "start match"

	if by != hostID {
		return nil, apperr.Validation(op, "%s is not the host", by)
	}
	if r.state != StateMatched {
		return nil, apperr.Validation(op, "room %s is %s, not %s", r.ID, r.state, StateMatched)
	}
	if len(r.members) != r.Capacity || !r.AllReady() {
		return nil, apperr.Validation(op, "room %s is not ready", r.ID)
	}

	return []Change{r.transit(StateActive)}, nil
}

func (r *Room) Finish() ([]Change, error) {
	if r.state != StateActive {
		return nil, apperr.Validation("finish match", "room %s is %s, not %s", r.ID, r.state, StateActive)
	}
	return []Change{r.transit(StateFinished)}, nil
}

// Force adopts a state announced by the host without local checks.
func (r *Room) Force(to State) []Change {
	if r.state == to {
		return nil
	}
	return []Change{r.transit(to)}
}

// Sync reconciles the room with a membership snapshot from presence.
// Snapshot members are accepted even beyond capacity: presence is the truth.
func (r *Room) Sync(snapshot []Member) []Change {
	var changes []Change

	seen := make(map[string]struct{}, len(snapshot))
	for _, m := range snapshot {
		seen[m.ID] = struct{}{}
	}

	for _, m := range r.Members() {
		if _, ok := seen[m.ID]; !ok {
			delete(r.members, m.ID)
			changes = append(changes, Change{Kind: ChangeLeft, Member: m.ID})
		}
	}

	sorted := append([]Member(nil), snapshot...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	for _, m := range sorted {
		if m.ID == "" {
			continue
		}
		cur, ok := r.members[m.ID]
		r.members[m.ID] = m
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeJoined, Member: m.ID})
		case cur.Ready != m.Ready:
			changes = append(changes, Change{Kind: ChangeReady, Member: m.ID})
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return r.settle(changes)
}

func (r *Room) transit(to State) Change {
	c := Change{Kind: ChangeState, From: r.state, To: to}
	r.state = to
	return c
}

// settle applies the automatic transitions until the state is stable.
func (r *Room) settle(changes []Change) []Change {
	for {
		next, ok := r.next()
		if !ok {
			return changes
		}
		changes = append(changes, r.transit(next))
	}
}

func (r *Room) next() (State, bool) {
	if len(r.members) == 0 {
		return StateEmpty, r.state != StateEmpty
	}

	switch r.state {
	case StateEmpty:
		return StateWaiting, true
	case StateWaiting:
		if r.Full() || r.anyReady() {
			return StateReadyCheck, true
		}
	case StateReadyCheck:
		if len(r.members) == r.Capacity && r.AllReady() {
			return StateMatched, true
		}
	}

	return r.state, false
}

func (r *Room) anyReady() bool {
	for _, m := range r.members {
		if m.Ready {
			return true
		}
	}
	return false
}
