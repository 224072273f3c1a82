package match

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/lottery"
	"github.com/bloops-games/stockrush/internal/market"
	"github.com/bloops-games/stockrush/internal/protocol"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/enescakir/emoji"
)

// reconcileHost starts or stops the host tasks for the current state. It is
// idempotent and runs after every membership change.
func (s *Session) reconcileHost(ctx context.Context) {
	if s.left {
		return
	}

	st := s.room.State()
	if !s.isHost || (st != room.StateMatched && st != room.StateActive) {
		s.sched.Cancel(taskAutoTick)
		s.sched.Cancel(taskLottery)
		s.sched.Cancel(taskFinish)
		return
	}

	if !s.sched.Has(taskAutoTick) {
		if s.series.Len() == 0 {
			s.series = market.Seed(s.marketConfig(), s.rnd, s.clock.Now())
			if err := s.publishSeries(ctx, 0, false); err != nil {
				s.logger.Warnf("publish seeded series: %v", err)
			}
		}
		s.sched.Every(taskAutoTick, s.game.AutoTickEvery, func(now time.Time) {
			s.autoTick(ctx)
		})
	}

	if st != room.StateActive {
		s.sched.Cancel(taskLottery)
		s.sched.Cancel(taskFinish)
		return
	}

	if !s.sched.Has(taskLottery) {
		s.sched.Every(taskLottery, s.game.LotteryEvery, func(now time.Time) {
			if !lottery.ShouldFire(s.rnd, s.game.LotteryP) {
				return
			}
			if err := s.fire(ctx, ""); err != nil {
				s.logger.Warnf("lottery: %v", err)
			}
		})
	}

	if !s.sched.Has(taskFinish) && !s.endsAt.IsZero() {
		s.sched.After(taskFinish, s.endsAt.Sub(s.clock.Now()), func(now time.Time) {
			s.finish(ctx)
		})
	}
}

func (s *Session) marketConfig() market.Config {
	return market.Config{
		Min:       s.game.PriceMin,
		Max:       s.game.PriceMax,
		Start:     s.game.PriceStart,
		Len:       s.game.SeriesLen,
		VolumeMin: s.game.VolumeMin,
		VolumeMax: s.game.VolumeMax,
		SeedStep:  s.game.SeedStep,
		Unit:      s.game.AutoTickEvery * time.Duration(s.game.CommitEvery),
	}
}

func (s *Session) autoTick(ctx context.Context) {
	s.autoTicks++
	mode := market.ModeTick
	if s.autoTicks%s.game.CommitEvery == 0 {
		mode = market.ModeCommit
	}

	delta := rng.Between(s.rnd, -s.game.AutoTickStep, s.game.AutoTickStep)
	if err := s.applySeries(ctx, delta, mode, true); err != nil {
		s.logger.Warnf("auto tick: %v", err)
	}
}

// applySeries moves the authoritative series and broadcasts it. The local
// replica is updated even when the publish fails; the next tick carries it.
func (s *Session) applySeries(ctx context.Context, delta int64, mode market.Mode, auto bool) error {
	prev := s.series.LastPrice()
	s.series = market.Apply(s.series, delta, mode, s.marketConfig(), s.rnd, s.clock.Now())
	return s.publishSeries(ctx, s.series.LastPrice()-prev, auto)
}

func (s *Session) publishSeries(ctx context.Context, change int64, auto bool) error {
	ts := s.stamp()
	if ts <= s.seriesStamp.TS {
		ts = s.seriesStamp.TS + 1
		s.lastTS = ts
	}
	s.seriesStamp = protocol.Stamp{TS: ts, Author: s.id}

	return s.publish(ctx, protocol.StockDataUpdated{
		Series:       s.series.Points(),
		ChangeAmount: change,
		IsAuto:       auto,
		TS:           ts,
	}, ts)
}

// AdjustPrice applies a manual move to the series. Host only.
func (s *Session) AdjustPrice(ctx context.Context, delta int64) error {
	const op = "adjust price"

	if !s.isHost {
		return apperr.Validation(op, "%s is not the host", s.id)
	}
	if st := s.room.State(); st != room.StateMatched && st != room.StateActive {
		return apperr.Validation(op, "room is %s", st)
	}

	return s.applySeries(ctx, delta, market.ModeTick, false)
}

// FireEvent triggers a random event of kind immediately. Host only; an empty
// kind draws one from the catalog weights.
func (s *Session) FireEvent(ctx context.Context, kind lottery.Kind) error {
	const op = "fire event"

	if !s.isHost {
		return apperr.Validation(op, "%s is not the host", s.id)
	}
	if st := s.room.State(); st != room.StateActive {
		return apperr.Validation(op, "room is %s", st)
	}
	if kind != "" && !kind.Valid() {
		return apperr.Validation(op, "unknown event kind %q", kind)
	}

	return s.fire(ctx, kind)
}

func (s *Session) fire(ctx context.Context, kind lottery.Kind) error {
	if kind == "" {
		var err error
		if kind, err = lottery.PickWeighted(s.rnd, s.cards.Events()); err != nil {
			return fmt.Errorf("pick event: %w", err)
		}
	}

	ts := s.stamp()
	ev := protocol.RandomEvent{
		ID:        protocol.EventID(string(kind), ts, s.id),
		EventKind: kind,
		Payload: lottery.Draw(s.rnd, kind, lottery.Bands{
			PercentMin: s.game.PercentMin,
			PercentMax: s.game.PercentMax,
			MoneyMin:   s.game.MoneyMin,
			MoneyMax:   s.game.MoneyMax,
		}),
		TS: ts,
	}

	if err := s.publish(ctx, ev, ts); err != nil {
		return err
	}
	s.dedup.Mark(ev.ID)
	s.logger.Infof("random event %s", kind)

	s.applyEvent(ctx, ev)
	s.notify(ev.Kind(), s.id, &ev)
	s.announce(ctx, eventText(ev))

	return nil
}

func (s *Session) announce(ctx context.Context, text string) {
	m := protocol.Announce{Text: text, TS: s.stamp()}
	if s.publishLogged(ctx, m, m.TS) {
		s.notify(m.Kind(), s.id, &m)
	}
}

func eventText(ev protocol.RandomEvent) string {
	switch ev.EventKind {
	case lottery.KindPriceSpike:
		return fmt.Sprintf("%s Price spike +%s%%", emoji.Rocket, ev.Payload.Percent.String())
	case lottery.KindPriceCrash:
		return fmt.Sprintf("%s Price crash -%s%%", emoji.Bomb, ev.Payload.Percent.String())
	case lottery.KindSetMoney:
		return fmt.Sprintf("%s Everyone's cash is now %d", emoji.GemStone, ev.Payload.Amount)
	case lottery.KindClearHand:
		return fmt.Sprintf("%s Hands cleared", emoji.CrossMark)
	case lottery.KindForceSell:
		return fmt.Sprintf("%s Forced liquidation", emoji.Loudspeaker)
	default:
		return fmt.Sprintf("%s %s", emoji.GameDie, ev.EventKind)
	}
}

// finish ends the match for everyone. A failed broadcast is retried.
func (s *Session) finish(ctx context.Context) {
	scores := s.rank()
	ts := s.stamp()
	ev := protocol.MatchEvent{Type: protocol.MatchFinish, By: s.id, TS: ts, Scores: scores}

	if err := s.publish(ctx, ev, ts); err != nil {
		s.logger.Warnf("publish finish, retrying: %v", err)
		s.sched.After(taskFinish, time.Second, func(now time.Time) {
			s.finish(ctx)
		})
		return
	}
	s.dedup.Mark(ev.ID())

	s.announce(ctx, fmt.Sprintf("%s Match over", emoji.ChequeredFlag))
	s.endMatch(ctx, scores)
	s.notify(ev.Kind(), s.id, &ev)
}
