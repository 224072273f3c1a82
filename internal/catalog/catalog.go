// Package catalog loads the static card and event definitions.
package catalog

import (
	_ "embed"
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/lottery"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type document struct {
	Cards  []card.Definition `yaml:"cards"`
	Events []lottery.Entry   `yaml:"events"`
}

// Catalog is immutable after loading and safe for concurrent reads.
type Catalog struct {
	cards  map[string]card.Definition
	ids    []string
	events []lottery.Entry
}

var _ card.Catalog = (*Catalog)(nil)

func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	return Parse(bytes)
}

func Parse(bytes []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(bytes, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	c := &Catalog{cards: make(map[string]card.Definition, len(doc.Cards))}
	for _, def := range doc.Cards {
		if def.ID == "" {
			return nil, fmt.Errorf("card without id")
		}
		if _, ok := c.cards[def.ID]; ok {
			return nil, fmt.Errorf("duplicate card %q", def.ID)
		}
		if !def.Effect.Kind.Valid() {
			return nil, fmt.Errorf("card %q: unknown effect %q", def.ID, def.Effect.Kind)
		}
		if def.GaugeCost < 0 || def.Effect.Magnitude < 0 {
			return nil, fmt.Errorf("card %q: negative cost or magnitude", def.ID)
		}
		if def.NeedsTarget && def.SelfOnly {
			return nil, fmt.Errorf("card %q: needsTarget and selfOnly are exclusive", def.ID)
		}
		if def.Name == "" {
			def.Name = def.ID
		}
		c.cards[def.ID] = def
		c.ids = append(c.ids, def.ID)
	}
	sort.Strings(c.ids)

	for _, e := range doc.Events {
		if !e.Kind.Valid() {
			return nil, fmt.Errorf("unknown event kind %q", e.Kind)
		}
		if e.Weight <= 0 {
			e.Weight = 1
		}
		c.events = append(c.events, e)
	}
	if len(c.events) == 0 {
		c.events = lottery.DefaultEntries()
	}

	return c, nil
}

func (c *Catalog) Card(id string) (card.Definition, bool) {
	def, ok := c.cards[id]
	return def, ok
}

// IDs returns card ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

func (c *Catalog) Events() []lottery.Entry {
	events := make([]lottery.Entry, len(c.events))
	copy(events, c.events)
	return events
}

// Weights returns the draw weight of every card, aligned with IDs.
func (c *Catalog) Weights() []int {
	weights := make([]int, len(c.ids))
	for i, id := range c.ids {
		weights[i] = c.cards[id].Rarity.Weight()
	}
	return weights
}
