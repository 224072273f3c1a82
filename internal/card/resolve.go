package card

import (
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
)

type Result struct {
	State     Table
	Target    string
	Log       string
	DrawCount int
}

// Resolve applies cardID cast by actorID to the table and returns a new table.
// The input table is left untouched. Cooldowns and gauge cost are checked by
// the caller beforehand.
func Resolve(cat Catalog, cardID string, table Table, actorID, targetID string, now time.Time) (Result, error) {
	const op = "resolve card"

	def, ok := cat.Card(cardID)
	if !ok {
		return Result{}, apperr.Validation(op, "unknown card %q", cardID)
	}

	switch {
	case def.SelfOnly:
		targetID = actorID
	case def.NeedsTarget && targetID == "":
		return Result{}, apperr.Validation(op, "card %q needs a target", cardID)
	case targetID == "":
		targetID = actorID
	}

	if _, ok := table[actorID]; !ok {
		return Result{}, apperr.NotFound(op, "actor %q not in match", actorID)
	}
	if _, ok := table[targetID]; !ok {
		return Result{}, apperr.NotFound(op, "target %q not in match", targetID)
	}

	next := table.Clone()
	actor, target := next[actorID], next[targetID]
	res := Result{Target: targetID}

	if def.Effect.Kind.Harmful() && target.GuardStacks > 0 {
		target.GuardStacks--
		next[targetID] = target
		res.State = next
		res.Log = fmt.Sprintf("%s blocked by guard (%d left)", def.Name, target.GuardStacks)
		return res, nil
	}

	switch def.Effect.Kind {
	case EffectReduceHoldings:
		before := target.Holdings
		target.Holdings -= def.Effect.Magnitude
		if target.Holdings < 0 {
			target.Holdings = 0
		}
		next[targetID] = target
		res.Log = fmt.Sprintf("%s removed %d units", def.Name, before-target.Holdings)
	case EffectDraw:
		res.DrawCount = int(def.Effect.Magnitude)
		res.Log = fmt.Sprintf("%s draws %d", def.Name, res.DrawCount)
	case EffectGuard:
		actor.GuardStacks += int(def.Effect.Magnitude)
		next[actorID] = actor
		res.Log = fmt.Sprintf("%s raised guard to %d", def.Name, actor.GuardStacks)
	case EffectSlow:
		target.SlowUntil = now.Add(time.Duration(def.Effect.Magnitude) * time.Second)
		next[targetID] = target
		res.Log = fmt.Sprintf("%s slowed regeneration for %ds", def.Name, def.Effect.Magnitude)
	case EffectDiscount:
		actor.DiscountUntil = now.Add(time.Duration(def.Effect.Magnitude) * time.Second)
		next[actorID] = actor
		res.Log = fmt.Sprintf("%s halves costs for %ds", def.Name, def.Effect.Magnitude)
	default:
		return Result{}, apperr.Validation(op, "card %q has unknown effect %q", cardID, def.Effect.Kind)
	}

	res.State = next
	return res, nil
}

// Cost is the gauge cost of def for a caster in state s.
func Cost(def Definition, s PlayerState, now time.Time) float64 {
	if s.Discounted(now) {
		return def.GaugeCost / 2
	}
	return def.GaugeCost
}
