package room

import (
	"sync"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/clock"
)

type entry struct {
	room      *Room
	createdAt time.Time
}

// Info is a copy of a registered room.
type Info struct {
	ID        string
	Capacity  int
	State     State
	Members   []Member
	CreatedAt time.Time
}

// Registry owns the rooms known to a process. Safe for concurrent use.
type Registry struct {
	mtx      sync.RWMutex
	capacity int
	clock    clock.Clock
	rooms    map[string]*entry
}

func NewRegistry(capacity int, clk clock.Clock) *Registry {
	return &Registry{capacity: capacity, clock: clk, rooms: map[string]*entry{}}
}

// Create registers an empty room and returns its normalized id.
func (r *Registry) Create(rawID string) (string, error) {
	id, err := NormalizeID(rawID)
	if err != nil {
		return "", err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.rooms[id]; ok {
		return "", apperr.Conflict("create room", "room %s already exists", id)
	}

	r.rooms[id] = &entry{room: New(id, r.capacity), createdAt: r.clock.Now()}
	return id, nil
}

// Join adds m to an existing room. A member already present may rejoin.
func (r *Registry) Join(rawID string, m Member) (Info, error) {
	id, err := NormalizeID(rawID)
	if err != nil {
		return Info{}, err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.rooms[id]
	if !ok {
		return Info{}, apperr.NotFound("join room", "room %s does not exist", id)
	}

	if _, err := e.room.Join(m); err != nil {
		return Info{}, err
	}

	return e.info(), nil
}

// Leave removes memberID and destroys the room once empty. It reports
// whether the room was destroyed.
func (r *Registry) Leave(rawID, memberID string) bool {
	id, err := NormalizeID(rawID)
	if err != nil {
		return false
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	e, ok := r.rooms[id]
	if !ok {
		return false
	}

	if !e.room.Has(memberID) {
		return false
	}

	e.room.Leave(memberID)
	if e.room.Len() == 0 {
		delete(r.rooms, id)
		return true
	}

	return false
}

func (r *Registry) Get(rawID string) (Info, bool) {
	id, err := NormalizeID(rawID)
	if err != nil {
		return Info{}, false
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	e, ok := r.rooms[id]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.rooms)
}

// Sweep destroys rooms that were created but stayed empty for longer than
// ttl, and returns their ids.
func (r *Registry) Sweep(ttl time.Duration) []string {
	now := r.clock.Now()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	var removed []string
	for id, e := range r.rooms {
		if e.room.Len() == 0 && now.Sub(e.createdAt) >= ttl {
			delete(r.rooms, id)
			removed = append(removed, id)
		}
	}

	return removed
}

func (e *entry) info() Info {
	return Info{
		ID:        e.room.ID,
		Capacity:  e.room.Capacity,
		State:     e.room.State(),
		Members:   e.room.Members(),
		CreatedAt: e.createdAt,
	}
}
