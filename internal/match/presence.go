package match

import (
	"context"
	"fmt"

	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/gauge"
	"github.com/bloops-games/stockrush/internal/leader"
	"github.com/bloops-games/stockrush/internal/protocol"
	"github.com/bloops-games/stockrush/internal/room"
)

// onPresence rebuilds membership and leadership from a fresh snapshot.
func (s *Session) onPresence(ctx context.Context) {
	if s.left {
		return
	}

	members, err := s.ch.Presence().Members(ctx)
	if err != nil {
		s.logger.Warnf("read presence: %v", err)
		return
	}

	records := make([]leader.Record, 0, len(members))
	for i, m := range members {
		records = append(records, leader.Record{ID: m.ClientID, UpdatedAt: m.UpdatedAt, Index: i})
	}
	records = leader.Dedup(records)

	snapshot := make([]room.Member, 0, len(records))
	for _, r := range records {
		data, err := protocol.DecodeMember(members[r.Index].Data)
		if err != nil {
			s.logger.Warnf("member %s: %v", r.ID, err)
		}
		name := data.Name
		if name == "" {
			name = r.ID
		}
		snapshot = append(snapshot, room.Member{ID: r.ID, Name: name, Ready: data.Ready})
	}

	prevHost := s.hostID
	s.hostID, _ = leader.Elect(records)
	wasHost := s.isHost
	s.isHost = s.hostID == s.id

	changes := s.room.Sync(snapshot)

	for _, m := range snapshot {
		s.names[m.ID] = m.Name
		if _, ok := s.table[m.ID]; !ok {
			g := gauge.New(s.game.GaugeMax, s.game.GaugeRate)
			g.Pause()
			s.table[m.ID] = card.PlayerState{Cash: s.game.StartCash, Gauge: g}
		}
	}

	if prevHost != s.hostID {
		s.logger.Infof("host is now %s", s.hostID)
		if s.isHost && !wasHost && prevHost != "" {
			s.logger.Infof("took over host duties from %s", prevHost)
		}
	}

	for _, c := range changes {
		switch c.Kind {
		case room.ChangeJoined:
			s.logger.Debugf("member %s joined", c.Member)
		case room.ChangeLeft:
			s.logger.Infof("member %s left", c.Member)
			if c.Member != s.id {
				s.forget(c.Member)
			}
		case room.ChangeState:
			s.logger.Infof("room %s -> %s", c.From, c.To)
		}
	}

	if s.isHost {
		s.announceMembership(ctx, changes)
	}
	s.reconcileHost(ctx)
}

// announceMembership publishes the lifecycle notifications for changes.
func (s *Session) announceMembership(ctx context.Context, changes []room.Change) {
	var membership bool
	for _, c := range changes {
		switch c.Kind {
		case room.ChangeJoined:
			membership = true
		case room.ChangeLeft:
			membership = true
			if c.Member == s.id {
				continue
			}
			name := s.names[c.Member]
			if name == "" {
				name = c.Member
			}
			s.publishLogged(ctx, protocol.OpponentDisconnected{
				Message:     fmt.Sprintf("%s disconnected", name),
				Participant: c.Member,
			}, s.stamp())
		case room.ChangeState:
			if c.To == room.StateMatched {
				s.publishLogged(ctx, protocol.OpponentFound{RoomID: s.roomID}, s.stamp())
			}
		}
	}

	st := s.room.State()
	if membership && (st == room.StateWaiting || st == room.StateReadyCheck) && s.room.Len() < s.room.Capacity {
		s.publishLogged(ctx, protocol.WaitingForOpponent{
			Message: fmt.Sprintf("waiting for opponents (%d/%d)", s.room.Len(), s.room.Capacity),
		}, s.stamp())
	}
}

// forget drops everything known about a departed member so it is neither
// rendered nor ranked.
func (s *Session) forget(id string) {
	delete(s.table, id)
	delete(s.standings, id)
	delete(s.handSizes, id)
	delete(s.statusStamp, id)
}
