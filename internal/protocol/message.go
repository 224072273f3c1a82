// Package protocol defines the messages exchanged by participants of a room
// and the helpers that make their application idempotent.
package protocol

import (
	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/lottery"
	"github.com/bloops-games/stockrush/internal/market"
	"github.com/bloops-games/stockrush/internal/room"
)

type Kind string

const (
	KindStockDataUpdated     Kind = "stockDataUpdated"
	KindOpponentFound        Kind = "opponentFound"
	KindWaitingForOpponent   Kind = "waitingForOpponent"
	KindOpponentDisconnected Kind = "opponentDisconnected"
	KindRandomEvent          Kind = "randomEvent"
	KindMatchEvent           Kind = "matchEvent"
	KindAnnounce             Kind = "announce"
	KindCardCast             Kind = "cardCast"
	KindPlayerStatus         Kind = "playerStatus"
)

type Message interface {
	Kind() Kind
	Validate() error
}

type StockDataUpdated struct {
	Series       []market.PricePoint `json:"series"`
	ChangeAmount int64               `json:"changeAmount"`
	IsAuto       bool                `json:"isAuto"`
	TS           int64               `json:"ts"`
}

func (StockDataUpdated) Kind() Kind { return KindStockDataUpdated }

func (m StockDataUpdated) Validate() error {
	if len(m.Series) == 0 {
		return apperr.Validation(string(m.Kind()), "empty series")
	}
	if m.TS <= 0 {
		return apperr.Validation(string(m.Kind()), "missing ts")
	}
	return nil
}

type OpponentFound struct {
	RoomID string `json:"roomId"`
}

func (OpponentFound) Kind() Kind { return KindOpponentFound }

func (m OpponentFound) Validate() error {
	if m.RoomID == "" {
		return apperr.Validation(string(m.Kind()), "missing room id")
	}
	return nil
}

type WaitingForOpponent struct {
	Message string `json:"message"`
}

func (WaitingForOpponent) Kind() Kind { return KindWaitingForOpponent }

func (WaitingForOpponent) Validate() error { return nil }

type OpponentDisconnected struct {
	Message     string `json:"message"`
	Participant string `json:"participant,omitempty"`
}

func (OpponentDisconnected) Kind() Kind { return KindOpponentDisconnected }

func (OpponentDisconnected) Validate() error { return nil }

type RandomEvent struct {
	ID        string          `json:"id"`
	EventKind lottery.Kind    `json:"kind"`
	Payload   lottery.Payload `json:"payload"`
	TS        int64           `json:"ts"`
}

func (RandomEvent) Kind() Kind { return KindRandomEvent }

func (m RandomEvent) Validate() error {
	const op = "randomEvent"
	if m.ID == "" {
		return apperr.Validation(op, "missing id")
	}
	if !m.EventKind.Valid() {
		return apperr.Validation(op, "unknown event kind %q", m.EventKind)
	}
	if m.Payload.Percent.Sign() < 0 {
		return apperr.Validation(op, "negative percent %s", m.Payload.Percent)
	}
	return nil
}

type MatchEventType string

const (
	MatchStart  MatchEventType = "START"
	MatchFinish MatchEventType = "FINISH"
)

type MatchEvent struct {
	Type   MatchEventType `json:"type"`
	By     string         `json:"by"`
	TS     int64          `json:"ts"`
	EndsAt int64          `json:"endsAt,omitempty"`
	Scores []room.Score   `json:"scores,omitempty"`
}

func (MatchEvent) Kind() Kind { return KindMatchEvent }

func (m MatchEvent) Validate() error {
	const op = "matchEvent"
	if m.Type != MatchStart && m.Type != MatchFinish {
		return apperr.Validation(op, "unknown type %q", m.Type)
	}
	if m.By == "" {
		return apperr.Validation(op, "missing author")
	}
	if m.Type == MatchStart && m.EndsAt <= m.TS {
		return apperr.Validation(op, "start must end after %d", m.TS)
	}
	return nil
}

// ID identifies the occurrence for dedup.
func (m MatchEvent) ID() string {
	return EventID(string(m.Type), m.TS, m.By)
}

type Announce struct {
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

func (Announce) Kind() Kind { return KindAnnounce }

func (m Announce) Validate() error {
	if m.Text == "" {
		return apperr.Validation(string(m.Kind()), "empty text")
	}
	return nil
}

type CardCast struct {
	ID     string `json:"id"`
	CardID string `json:"cardId"`
	Actor  string `json:"actor"`
	Target string `json:"target,omitempty"`
	TS     int64  `json:"ts"`
}

func (CardCast) Kind() Kind { return KindCardCast }

func (m CardCast) Validate() error {
	const op = "cardCast"
	switch {
	case m.ID == "":
		return apperr.Validation(op, "missing id")
	case m.CardID == "":
		return apperr.Validation(op, "missing card id")
	case m.Actor == "":
		return apperr.Validation(op, "missing actor")
	}
	return nil
}

type PlayerStatus struct {
	Participant string  `json:"participant"`
	Name        string  `json:"name"`
	Cash        int64   `json:"cash"`
	Holdings    int64   `json:"holdings"`
	Gauge       float64 `json:"gauge"`
	GaugeMax    float64 `json:"gaugeMax"`
	GuardStacks int     `json:"guardStacks"`
	HandSize    int     `json:"handSize"`
	TS          int64   `json:"ts"`
}

func (PlayerStatus) Kind() Kind { return KindPlayerStatus }

func (m PlayerStatus) Validate() error {
	const op = "playerStatus"
	if m.Participant == "" {
		return apperr.Validation(op, "missing participant")
	}
	if m.Holdings < 0 || m.GuardStacks < 0 || m.HandSize < 0 {
		return apperr.Validation(op, "negative counters")
	}
	return nil
}
