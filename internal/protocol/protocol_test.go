package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/lottery"
	"github.com/bloops-games/stockrush/internal/market"
	"github.com/shopspring/decimal"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	ev := RandomEvent{
		ID:        EventID(string(lottery.KindPriceSpike), 1700, "alice"),
		EventKind: lottery.KindPriceSpike,
		Payload:   lottery.Payload{Percent: decimal.RequireFromString("7.5")},
		TS:        1700,
	}

	bytes, err := Encode("alice", 1700, ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, m, err := Decode(bytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != KindRandomEvent || env.From != "alice" || env.TS != 1700 {
		t.Fatalf("envelope: got %+v", env)
	}

	got, ok := m.(*RandomEvent)
	if !ok {
		t.Fatalf("message type: got %T", m)
	}
	if got.ID != ev.ID || got.EventKind != ev.EventKind || !got.Payload.Percent.Equal(ev.Payload.Percent) {
		t.Fatalf("got %+v, want %+v", got, ev)
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	t.Parallel()

	if _, err := Encode("a", 1, StockDataUpdated{TS: 1}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	series, _ := json.Marshal(StockDataUpdated{TS: 5})
	badEvent, _ := json.Marshal(RandomEvent{ID: "x", EventKind: "METEOR"})
	badStart, _ := json.Marshal(MatchEvent{Type: MatchStart, By: "a", TS: 10, EndsAt: 5})

	testCases := []struct {
		name string
		data string
	}{
		{name: "not_json", data: "{{"},
		{name: "unknown_kind", data: `{"kind":"teleport","from":"a","payload":{}}`},
		{name: "no_sender", data: `{"kind":"announce","payload":{"text":"hi"}}`},
		{name: "no_payload", data: `{"kind":"announce","from":"a"}`},
		{name: "wrong_payload_type", data: `{"kind":"announce","from":"a","payload":{"text":5}}`},
		{name: "empty_series", data: `{"kind":"stockDataUpdated","from":"a","payload":` + string(series) + `}`},
		{name: "unknown_event", data: `{"kind":"randomEvent","from":"a","payload":` + string(badEvent) + `}`},
		{name: "start_ends_before", data: `{"kind":"matchEvent","from":"a","payload":` + string(badStart) + `}`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := Decode([]byte(tc.data)); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}
}

func TestDecodeEveryKind(t *testing.T) {
	t.Parallel()

	messages := []Message{
		StockDataUpdated{Series: []market.PricePoint{{Timestamp: 1, Price: 15000, Volume: 10}}, ChangeAmount: 5, IsAuto: true, TS: 9},
		OpponentFound{RoomID: "ABC"},
		WaitingForOpponent{Message: "waiting"},
		OpponentDisconnected{Message: "gone", Participant: "b"},
		MatchEvent{Type: MatchStart, By: "a", TS: 1, EndsAt: 2},
		Announce{Text: "hello", TS: 3},
		CardCast{ID: "c1", CardID: "hedge", Actor: "a", TS: 4},
		PlayerStatus{Participant: "a", Cash: 10, TS: 5},
	}

	for _, msg := range messages {
		bytes, err := Encode("a", 1, msg)
		if err != nil {
			t.Fatalf("encode %s: %v", msg.Kind(), err)
		}
		_, got, err := Decode(bytes)
		if err != nil {
			t.Fatalf("decode %s: %v", msg.Kind(), err)
		}
		if got.Kind() != msg.Kind() {
			t.Fatalf("kind: got %s, want %s", got.Kind(), msg.Kind())
		}
	}
}

func TestEventID(t *testing.T) {
	t.Parallel()

	a := EventID("PRICE_SPIKE", 100, "alice")
	if a != EventID("PRICE_SPIKE", 100, "alice") {
		t.Fatal("event id must be deterministic")
	}

	others := []string{
		EventID("PRICE_CRASH", 100, "alice"),
		EventID("PRICE_SPIKE", 101, "alice"),
		EventID("PRICE_SPIKE", 100, "bob"),
		EventID("PRICE_SPIKE", 100, "alice", "extra"),
	}
	for _, o := range others {
		if o == a {
			t.Fatalf("distinct occurrences share id %s", a)
		}
	}
}

func TestDeduper(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	d, err := NewDeduper(8, time.Minute, clk)
	if err != nil {
		t.Fatalf("new deduper: %v", err)
	}

	if !d.First("evt-1") {
		t.Fatal("first delivery must be new")
	}
	if d.First("evt-1") {
		t.Fatal("redelivery must be a duplicate")
	}
	if !d.Seen("evt-1") {
		t.Fatal("evt-1 must be seen")
	}

	clk.Advance(time.Minute)
	if !d.First("evt-1") {
		t.Fatal("id must be forgotten after the window")
	}

	for i := 0; i < 100; i++ {
		d.Mark(EventID("CLEAR_HAND", int64(i), "host"))
	}
	if d.seen.Len() > 8 {
		t.Fatalf("dedup set grew beyond its bound: %d", d.seen.Len())
	}
}

func TestStampNewer(t *testing.T) {
	t.Parallel()

	cur := Stamp{TS: 100, Author: "m"}
	testCases := []struct {
		name string
		s    Stamp
		want bool
	}{
		{name: "later", s: Stamp{TS: 101, Author: "z"}, want: true},
		{name: "earlier", s: Stamp{TS: 99, Author: "a"}, want: false},
		{name: "tie_smaller_author", s: Stamp{TS: 100, Author: "a"}, want: true},
		{name: "tie_larger_author", s: Stamp{TS: 100, Author: "z"}, want: false},
		{name: "same", s: cur, want: false},
	}

	for _, tc := range testCases {
		if got := tc.s.Newer(cur); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if !(Stamp{TS: 1, Author: "x"}).Newer(Stamp{}) {
		t.Fatal("anything replaces the zero stamp")
	}
}
