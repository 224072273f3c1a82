package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/bytespool"
	"github.com/bloops-games/stockrush/internal/strpool"
	"github.com/google/uuid"
)

// Envelope is the wire frame of every message.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	From    string          `json:"from"`
	TS      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(from string, ts int64, m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.Kind(), err)
	}

	buf := bytespool.Get()
	defer bytespool.Put(buf)

	if err := json.NewEncoder(buf).Encode(Envelope{Kind: m.Kind(), From: from, TS: ts, Payload: payload}); err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	buf.Truncate(buf.Len() - 1)

	return bytespool.Copy(buf), nil
}

// Decode parses and validates a frame. Every failure is a validation error so
// callers can skip the frame.
func Decode(data []byte) (Envelope, Message, error) {
	const op = "decode"

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, apperr.Validation(op, "malformed envelope: %v", err)
	}
	if env.From == "" {
		return env, nil, apperr.Validation(op, "%s without sender", env.Kind)
	}

	var m Message
	switch env.Kind {
	case KindStockDataUpdated:
		m = &StockDataUpdated{}
	case KindOpponentFound:
		m = &OpponentFound{}
	case KindWaitingForOpponent:
		m = &WaitingForOpponent{}
	case KindOpponentDisconnected:
		m = &OpponentDisconnected{}
	case KindRandomEvent:
		m = &RandomEvent{}
	case KindMatchEvent:
		m = &MatchEvent{}
	case KindAnnounce:
		m = &Announce{}
	case KindCardCast:
		m = &CardCast{}
	case KindPlayerStatus:
		m = &PlayerStatus{}
	default:
		return env, nil, apperr.Validation(op, "unknown kind %q", env.Kind)
	}

	if len(env.Payload) == 0 {
		return env, nil, apperr.Validation(op, "%s without payload", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, m); err != nil {
		return env, nil, apperr.Validation(op, "malformed %s payload: %v", env.Kind, err)
	}
	if err := m.Validate(); err != nil {
		return env, nil, err
	}

	return env, m, nil
}

var eventNamespace = uuid.MustParse("6f1c1d7e-3f0a-4c59-9d53-2b7c8a4e5f10")

// EventID derives the id of one logical occurrence from its kind, creation
// time and author. Equal inputs always give the same id.
func EventID(kind string, createdAtMs int64, author string, extra ...string) string {
	parts := append([]string{kind, strconv.FormatInt(createdAtMs, 10), author}, extra...)
	return uuid.NewSHA1(eventNamespace, []byte(strpool.Join('|', parts...))).String()
}
