package match

import (
	"time"

	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/market"
	"github.com/bloops-games/stockrush/internal/room"
)

// View is a copy of the session state for rendering and tests.
type View struct {
	ID       string
	RoomID   string
	HostID   string
	IsHost   bool
	State    room.State
	Members  []room.Member
	Series   []market.PricePoint
	Price    int64
	Self     card.PlayerState
	Players  card.Table
	Names    map[string]string
	EndsAt   time.Time
	Scores   []room.Score
	Timers   int
	Left     bool
	Ready    bool
	HandSize map[string]int
}

func (s *Session) View() View {
	names := make(map[string]string, len(s.names))
	for k, v := range s.names {
		names[k] = v
	}
	hands := make(map[string]int, len(s.handSizes))
	for k, v := range s.handSizes {
		hands[k] = v
	}

	return View{
		ID:       s.id,
		RoomID:   s.roomID,
		HostID:   s.hostID,
		IsHost:   s.isHost,
		State:    s.room.State(),
		Members:  s.room.Members(),
		Series:   s.series.Points(),
		Price:    s.series.LastPrice(),
		Self:     s.table[s.id].Clone(),
		Players:  s.table.Clone(),
		Names:    names,
		EndsAt:   s.endsAt,
		Scores:   append([]room.Score(nil), s.scores...),
		Timers:   s.sched.Len(),
		Left:     s.left,
		Ready:    s.ready,
		HandSize: hands,
	}
}
