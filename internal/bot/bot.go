// Package bot plays a session with a random strategy. It drives simulations
// and load tests.
package bot

import (
	"context"
	"sort"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/catalog"
	"github.com/bloops-games/stockrush/internal/match"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/bloops-games/stockrush/internal/room"
)

type Config struct {
	TradeP   float64
	CastP    float64
	MaxTrade int64
}

func DefaultConfig() Config {
	return Config{TradeP: 0.3, CastP: 0.2, MaxTrade: 3}
}

type Bot struct {
	cfg     Config
	session *match.Session
	cards   *catalog.Catalog
	rnd     rng.Source
}

func New(cfg Config, s *match.Session, cards *catalog.Catalog, rnd rng.Source) *Bot {
	if cards == nil {
		cards = catalog.Default()
	}
	if cfg.MaxTrade <= 0 {
		cfg.MaxTrade = 1
	}
	return &Bot{cfg: cfg, session: s, cards: cards, rnd: rnd}
}

// Step takes at most one action. It must run on the session loop. Moves the
// game refuses are not errors.
func (b *Bot) Step(ctx context.Context) error {
	v := b.session.View()
	if v.Left {
		return nil
	}

	var err error
	switch v.State {
	case room.StateWaiting, room.StateReadyCheck:
		if !v.Ready {
			err = b.session.SetReady(ctx, true)
		}
	case room.StateMatched:
		if v.IsHost && allReady(v.Members) {
			err = b.session.Start(ctx)
		}
	case room.StateActive:
		err = b.play(ctx, v)
	}

	return filter(err)
}

func (b *Bot) play(ctx context.Context, v match.View) error {
	roll := b.rnd.Float64()
	switch {
	case roll < b.cfg.TradeP:
		qty := rng.Between(b.rnd, 1, b.cfg.MaxTrade)
		if b.rnd.Float64() < 0.5 {
			return b.session.Buy(ctx, qty)
		}
		return b.session.Sell(ctx, qty)
	case roll < b.cfg.TradeP+b.cfg.CastP && len(v.Self.Hand) > 0:
		inst := v.Self.Hand[b.rnd.Uint32n(uint32(len(v.Self.Hand)))]
		def, ok := b.cards.Card(inst.CardID)
		if !ok {
			return nil
		}
		var target string
		if def.NeedsTarget {
			if target = b.pickOpponent(v); target == "" {
				return nil
			}
		}
		_, err := b.session.Cast(ctx, inst.ID, target)
		return err
	}
	return nil
}

func (b *Bot) pickOpponent(v match.View) string {
	ids := make([]string, 0, len(v.Players))
	for id := range v.Players {
		if id != v.ID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return ids[b.rnd.Uint32n(uint32(len(ids)))]
}

func allReady(members []room.Member) bool {
	for _, m := range members {
		if !m.Ready {
			return false
		}
	}
	return len(members) > 0
}

func filter(err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindNotFound, apperr.KindCapacity:
		return nil
	}
	return err
}
