package match

import (
	"context"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/lottery"
	"github.com/bloops-games/stockrush/internal/market"
	"github.com/bloops-games/stockrush/internal/protocol"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/transport"
)

func (s *Session) onMessage(ctx context.Context, m transport.Message) {
	if s.left {
		return
	}

	env, msg, err := protocol.Decode(m.Data)
	if err != nil {
		s.logger.Warnf("skip malformed %q from %s: %v", m.Name, m.ClientID, err)
		return
	}
	if m.ClientID != "" && env.From != m.ClientID {
		s.logger.Warnf("skip %s: envelope author %s sent by %s", env.Kind, env.From, m.ClientID)
		return
	}

	var accepted bool
	switch msg := msg.(type) {
	case *protocol.StockDataUpdated:
		accepted = s.onStockData(env.From, msg)
	case *protocol.RandomEvent:
		accepted = s.onRandomEvent(ctx, env.From, msg)
	case *protocol.MatchEvent:
		accepted = s.onMatchEvent(ctx, env.From, msg)
	case *protocol.CardCast:
		accepted = s.onCardCast(env.From, msg)
	case *protocol.PlayerStatus:
		accepted = s.onPlayerStatus(env.From, msg)
	case *protocol.OpponentFound, *protocol.WaitingForOpponent, *protocol.OpponentDisconnected, *protocol.Announce:
		accepted = true
	default:
		s.logger.Warnf("skip unhandled kind %s", env.Kind)
	}

	if accepted {
		s.notify(env.Kind, env.From, msg)
	}
}

// onStockData adopts a series by last-write-wins on (ts, author).
func (s *Session) onStockData(from string, m *protocol.StockDataUpdated) bool {
	stamp := protocol.Stamp{TS: m.TS, Author: from}
	if !stamp.Newer(s.seriesStamp) {
		return false
	}

	if err := s.checkSeries(m.Series); err != nil {
		s.logger.Warnw("skip series update", "from", from, "error", err)
		return false
	}
	if len(m.Series) < s.series.Len() {
		s.logger.Warnw("state desync: series shrank", "from", from, "have", s.series.Len(), "got", len(m.Series))
	}
	if from != s.hostID {
		s.logger.Warnw("state desync: series from non-host", "from", from, "host", s.hostID)
	}

	s.series = market.FromPoints(m.Series)
	s.seriesStamp = stamp
	if s.lastTS < m.TS {
		s.lastTS = m.TS
	}
	return true
}

// checkSeries rejects a series no host could have produced under the room's
// configuration.
func (s *Session) checkSeries(series []market.PricePoint) error {
	if len(series) > s.game.SeriesLen {
		return apperr.Validation("stockDataUpdated", "series of %d points exceeds %d", len(series), s.game.SeriesLen)
	}
	for _, p := range series {
		if p.Price < s.game.PriceMin || p.Price > s.game.PriceMax {
			return apperr.Validation("stockDataUpdated", "price %d outside [%d, %d]", p.Price, s.game.PriceMin, s.game.PriceMax)
		}
	}
	return nil
}

// expired reports whether an event stamped at ts is older than the dedup
// window. Its id may already be forgotten, so it cannot be applied safely.
func (s *Session) expired(ts int64) bool {
	return ts < clock.Millis(s.clock.Now().Add(-s.game.DedupWindow))
}

func (s *Session) onRandomEvent(ctx context.Context, from string, m *protocol.RandomEvent) bool {
	if s.expired(m.TS) {
		s.logger.Warnw("skip expired random event", "id", m.ID, "ts", m.TS)
		return false
	}
	if !s.dedup.First(m.ID) {
		return false
	}
	if from != s.hostID {
		s.logger.Warnw("state desync: random event from non-host", "from", from, "host", s.hostID)
	}

	s.applyEvent(ctx, *m)
	return true
}

// applyEvent applies ev to the own player. Price moves are applied by the
// host, which then republishes the series.
func (s *Session) applyEvent(ctx context.Context, ev protocol.RandomEvent) {
	if s.room.State() == room.StateFinished {
		return
	}

	own := s.table[s.id]
	switch ev.EventKind {
	case lottery.KindClearHand:
		own.Hand = nil
	case lottery.KindSetMoney:
		own.Cash = ev.Payload.Amount
	case lottery.KindForceSell:
		own.Cash += own.Holdings * s.series.LastPrice()
		own.Holdings = 0
	case lottery.KindPriceSpike, lottery.KindPriceCrash:
		if !s.isHost {
			return
		}
		price := s.series.LastPrice()
		if price == 0 {
			price = s.game.PriceStart
		}
		delta := market.PercentDelta(price, lottery.SignedPercent(ev.EventKind, ev.Payload))
		if err := s.applySeries(ctx, delta, market.ModeCommit, false); err != nil {
			s.logger.Warnf("publish %s: %v", ev.EventKind, err)
		}
		return
	default:
		s.logger.Warnf("unknown event kind %s", ev.EventKind)
		return
	}
	s.table[s.id] = own
}

func (s *Session) onMatchEvent(ctx context.Context, from string, m *protocol.MatchEvent) bool {
	if !s.dedup.First(m.ID()) {
		return false
	}
	if from != s.hostID {
		s.logger.Warnw("state desync: match event from non-host", "from", from, "host", s.hostID)
	}

	switch m.Type {
	case protocol.MatchStart:
		if st := s.room.State(); st == room.StateActive || st == room.StateFinished {
			return false
		}
		s.room.Force(room.StateActive)
		s.beginMatch(ctx, clock.FromMillis(m.EndsAt))
	case protocol.MatchFinish:
		if s.room.State() == room.StateFinished {
			return false
		}
		s.endMatch(ctx, m.Scores)
	}
	return true
}

// onCardCast replays a remote cast on the local replica. Each participant
// is authoritative for its own entry, so a cast targeting this session
// lands here.
func (s *Session) onCardCast(from string, m *protocol.CardCast) bool {
	if from == s.id || m.Actor != from {
		return false
	}
	if s.expired(m.TS) {
		s.logger.Warnw("skip expired card cast", "id", m.ID, "ts", m.TS)
		return false
	}
	if !s.dedup.First(m.ID) {
		return false
	}
	if s.room.State() == room.StateFinished {
		return false
	}

	res, err := card.Resolve(s.cards, m.CardID, s.table, m.Actor, m.Target, clock.FromMillis(m.TS))
	if err != nil {
		s.logger.Warnf("replay cast %s by %s: %v", m.CardID, m.Actor, err)
		return false
	}

	s.table = res.State
	s.logger.Debugf("cast %s by %s on %s: %s", m.CardID, m.Actor, res.Target, res.Log)
	return true
}

// onPlayerStatus refreshes the display state of a remote player.
func (s *Session) onPlayerStatus(from string, m *protocol.PlayerStatus) bool {
	if from == s.id || m.Participant != from {
		return false
	}
	if m.TS <= s.statusStamp[from] {
		return false
	}
	s.statusStamp[from] = m.TS

	if m.Name != "" {
		s.names[from] = m.Name
	}
	s.handSizes[from] = m.HandSize
	s.standings[from] = room.Standing{ID: from, Name: s.names[from], Cash: m.Cash, Holdings: m.Holdings}

	if st, ok := s.table[from]; ok {
		st.Cash = m.Cash
		st.Holdings = m.Holdings
		st.GuardStacks = m.GuardStacks
		st.Gauge.Value = m.Gauge
		st.Gauge.Max = m.GaugeMax
		s.table[from] = st
	}
	return true
}
