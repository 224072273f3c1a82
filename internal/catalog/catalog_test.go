package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/lottery"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()
	if len(c.IDs()) == 0 {
		t.Fatal("default catalog has no cards")
	}

	def, ok := c.Card("short_small")
	if !ok {
		t.Fatal("short_small missing")
	}
	if def.Effect.Kind != card.EffectReduceHoldings || def.Effect.Magnitude != 1 {
		t.Fatalf("short_small effect: got %+v", def.Effect)
	}
	if def.Cooldown != 3*time.Second {
		t.Fatalf("cooldown: got %v, want 3s", def.Cooldown)
	}
	if !def.NeedsTarget {
		t.Fatal("short_small must need a target")
	}

	if got := len(c.Events()); got != len(lottery.Kinds) {
		t.Fatalf("events: got %d, want %d", got, len(lottery.Kinds))
	}
	if len(c.Weights()) != len(c.IDs()) {
		t.Fatal("weights not aligned with ids")
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		doc  string
	}{
		{name: "unknown_effect", doc: "cards:\n  - {id: x, effect: {kind: TELEPORT}}\n"},
		{name: "duplicate", doc: "cards:\n  - {id: x, effect: {kind: DRAW}}\n  - {id: x, effect: {kind: DRAW}}\n"},
		{name: "missing_id", doc: "cards:\n  - {effect: {kind: DRAW}}\n"},
		{name: "exclusive_targeting", doc: "cards:\n  - {id: x, needsTarget: true, selfOnly: true, effect: {kind: GUARD}}\n"},
		{name: "unknown_event", doc: "events:\n  - {kind: METEOR}\n"},
		{name: "malformed", doc: "cards: [\n"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "cards:\n  - {id: solo, gaugeCost: 5, effect: {kind: GUARD, magnitude: 1}}\nevents:\n  - {kind: FORCE_SELL}\n"
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ids := c.IDs(); len(ids) != 1 || ids[0] != "solo" {
		t.Fatalf("ids: got %v", ids)
	}
	def, _ := c.Card("solo")
	if def.Name != "solo" {
		t.Fatalf("name defaults to id, got %q", def.Name)
	}
	if ev := c.Events(); len(ev) != 1 || ev[0].Weight != 1 {
		t.Fatalf("events: got %+v", ev)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
