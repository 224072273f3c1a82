package match

import (
	"context"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/lottery"
	"github.com/bloops-games/stockrush/internal/protocol"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/google/uuid"
)

// SetReady announces the ready flag through presence. The room replica
// follows once the presence change comes back.
func (s *Session) SetReady(ctx context.Context, ready bool) error {
	const op = "set ready"

	if !s.joined || s.left {
		return apperr.Validation(op, "not in a room")
	}
	if st := s.room.State(); st == room.StateActive || st == room.StateFinished {
		return apperr.Validation(op, "room is %s", st)
	}
	if ready {
		if err := s.room.CheckReady(s.id); err != nil {
			return err
		}
	}

	data, err := protocol.EncodeMember(protocol.MemberData{Name: s.name, Ready: ready})
	if err != nil {
		return err
	}
	if err := s.ch.Presence().Update(ctx, data); err != nil {
		return apperr.Transient(op, err)
	}

	s.ready = ready
	return nil
}

// Start begins the match. Host only; the room must be matched.
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.room.Start(s.id, s.hostID); err != nil {
		return err
	}

	ts := s.stamp()
	endsAt := clock.FromMillis(ts).Add(s.game.MatchDuration)
	ev := protocol.MatchEvent{Type: protocol.MatchStart, By: s.id, TS: ts, EndsAt: clock.Millis(endsAt)}

	if err := s.publish(ctx, ev, ts); err != nil {
		s.room.Force(room.StateMatched)
		return err
	}
	s.dedup.Mark(ev.ID())

	s.logger.Infof("match started, ends at %s", endsAt.Format(time.RFC3339))
	s.beginMatch(ctx, endsAt)
	s.announce(ctx, "Match started")
	s.notify(ev.Kind(), s.id, &ev)

	return nil
}

func (s *Session) beginMatch(ctx context.Context, endsAt time.Time) {
	s.endsAt = endsAt

	own := s.table[s.id]
	own.Gauge.Resume()
	s.table[s.id] = own
	s.draw(s.game.HandSize)

	s.sched.Every(taskGauge, s.game.GaugeTickEvery, func(now time.Time) {
		s.tickGauge(now)
	})
	s.sched.Every(taskStatus, s.game.StatusEvery, func(now time.Time) {
		s.publishStatus(ctx)
	})
	s.publishStatus(ctx)

	s.reconcileHost(ctx)
}

func (s *Session) tickGauge(now time.Time) {
	own := s.table[s.id]
	dt := s.game.GaugeTickEvery
	if own.Slowed(now) {
		dt /= 2
	}
	own.Gauge.Tick(dt)
	s.table[s.id] = own
}

func (s *Session) publishStatus(ctx context.Context) {
	own := s.table[s.id]
	ts := s.stamp()
	m := protocol.PlayerStatus{
		Participant: s.id,
		Name:        s.name,
		Cash:        own.Cash,
		Holdings:    own.Holdings,
		Gauge:       own.Gauge.Value,
		GaugeMax:    own.Gauge.Max,
		GuardStacks: own.GuardStacks,
		HandSize:    len(own.Hand),
		TS:          ts,
	}

	if s.publishLogged(ctx, m, ts) {
		s.statusStamp[s.id] = ts
		s.standings[s.id] = room.Standing{ID: s.id, Name: s.name, Cash: own.Cash, Holdings: own.Holdings}
	}
}

// endMatch freezes the match. scores from the host are adopted when present.
func (s *Session) endMatch(ctx context.Context, scores []room.Score) {
	if len(scores) == 0 {
		scores = s.rank()
	}

	s.room.Force(room.StateFinished)
	s.scores = scores
	s.sched.CancelAll()

	own := s.table[s.id]
	own.Gauge.Pause()
	s.table[s.id] = own

	if s.store != nil {
		if err := s.store.Delete(s.roomID); err != nil {
			s.logger.Warnf("delete resume record: %v", err)
		}
	}

	for _, sc := range scores {
		if sc.ID == s.id {
			s.logger.Infof("match finished, rank %d worth %d", sc.Rank, sc.Worth)
		}
	}
}

// rank scores every player from its last broadcast status.
func (s *Session) rank() []room.Score {
	standings := make([]room.Standing, 0, len(s.standings)+1)
	for _, st := range s.standings {
		standings = append(standings, st)
	}
	if _, ok := s.standings[s.id]; !ok {
		own := s.table[s.id]
		standings = append(standings, room.Standing{ID: s.id, Name: s.name, Cash: own.Cash, Holdings: own.Holdings})
	}

	return room.Rank(standings, s.series.LastPrice())
}

// Buy spends cash on qty units at the last price.
func (s *Session) Buy(ctx context.Context, qty int64) error {
	const op = "buy"

	price, err := s.tradePrice(op, qty)
	if err != nil {
		return err
	}

	own := s.table[s.id]
	if own.Cash < price*qty {
		return apperr.Validation(op, "need %d cash, have %d", price*qty, own.Cash)
	}

	own.Cash -= price * qty
	own.Holdings += qty
	s.table[s.id] = own

	s.logger.Debugf("bought %d at %d", qty, price)
	return nil
}

// Sell turns qty units into cash at the last price.
func (s *Session) Sell(ctx context.Context, qty int64) error {
	const op = "sell"

	price, err := s.tradePrice(op, qty)
	if err != nil {
		return err
	}

	own := s.table[s.id]
	if own.Holdings < qty {
		return apperr.Validation(op, "hold %d units, want to sell %d", own.Holdings, qty)
	}

	own.Cash += price * qty
	own.Holdings -= qty
	s.table[s.id] = own

	s.logger.Debugf("sold %d at %d", qty, price)
	return nil
}

func (s *Session) tradePrice(op string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, apperr.Validation(op, "quantity must be positive, got %d", qty)
	}
	if st := s.room.State(); st != room.StateActive {
		return 0, apperr.Validation(op, "room is %s", st)
	}

	price := s.series.LastPrice()
	if price <= 0 {
		return 0, apperr.Validation(op, "no price yet")
	}
	return price, nil
}

// Cast plays the card instance from the own hand on target. An empty target
// means the caster for cards that do not need one.
func (s *Session) Cast(ctx context.Context, instanceID, target string) (card.Result, error) {
	const op = "cast card"

	if st := s.room.State(); st != room.StateActive {
		return card.Result{}, apperr.Validation(op, "room is %s", st)
	}

	own := s.table[s.id]
	idx := -1
	for i, inst := range own.Hand {
		if inst.ID == instanceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return card.Result{}, apperr.NotFound(op, "card %s not in hand", instanceID)
	}
	inst := own.Hand[idx]

	def, ok := s.cards.Card(inst.CardID)
	if !ok {
		return card.Result{}, apperr.Validation(op, "unknown card %q", inst.CardID)
	}

	ts := s.stamp()
	at := clock.FromMillis(ts)
	if until, ok := s.cooldowns[def.ID]; ok && at.Before(until) {
		return card.Result{}, apperr.Validation(op, "%s on cooldown for %s", def.Name, until.Sub(at).Round(time.Millisecond))
	}

	spent := own.Clone()
	if cost := card.Cost(def, own, at); !spent.Gauge.Spend(cost) {
		return card.Result{}, apperr.Validation(op, "%s needs %.0f gauge, have %.0f", def.Name, cost, own.Gauge.Value)
	}

	table := s.table.Clone()
	table[s.id] = spent
	res, err := card.Resolve(s.cards, def.ID, table, s.id, target, at)
	if err != nil {
		return card.Result{}, err
	}

	cc := protocol.CardCast{
		ID:     protocol.EventID(string(protocol.KindCardCast), ts, s.id, inst.ID),
		CardID: def.ID,
		Actor:  s.id,
		Target: res.Target,
		TS:     ts,
	}
	if err := s.publish(ctx, cc, ts); err != nil {
		return card.Result{}, err
	}
	s.dedup.Mark(cc.ID)

	s.table = res.State
	own = s.table[s.id]
	own.Hand = append(own.Hand[:idx:idx], own.Hand[idx+1:]...)
	s.table[s.id] = own
	s.draw(res.DrawCount)

	if def.Cooldown > 0 {
		s.cooldowns[def.ID] = at.Add(def.Cooldown)
	}

	s.logger.Debugf("cast %s on %s: %s", def.ID, res.Target, res.Log)
	s.notify(cc.Kind(), s.id, &cc)

	return res, nil
}

// draw deals up to n cards by rarity weight without passing the hand limit.
func (s *Session) draw(n int) {
	ids := s.cards.IDs()
	weights := s.cards.Weights()

	own := s.table[s.id]
	for i := 0; i < n && len(own.Hand) < s.game.HandLimit; i++ {
		idx, err := lottery.PickIndex(s.rnd, weights)
		if err != nil {
			s.logger.Warnf("draw card: %v", err)
			break
		}
		own.Hand = append(own.Hand, card.Instance{ID: uuid.New().String(), CardID: ids[idx]})
	}
	s.table[s.id] = own
}
