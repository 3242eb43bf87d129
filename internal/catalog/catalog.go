// Package catalog holds the static card definitions a match engine plays
// with. A Catalog is built once at startup from a definition list and is
// read-only afterwards; it is passed explicitly to whatever needs lookups
// so tests can run against their own card tables.
package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/openduel/duel-server/internal/rng"
)

// ErrUnknownCard is returned when a card id is not present in the catalog.
var ErrUnknownCard = errors.New("catalog: unknown card")

// CardType classifies a card definition.
type CardType string

const (
	TypeMinion CardType = "MINION"
	TypeSpell  CardType = "SPELL"
	TypeWeapon CardType = "WEAPON"
	TypeHero   CardType = "HERO"
)

// Trigger identifies when a card effect fires.
type Trigger string

const (
	// TriggerSummon fires when a minion enters the board.
	TriggerSummon Trigger = "SUMMON"
	// TriggerCast fires when a spell resolves.
	TriggerCast Trigger = "CAST"
)

// Action identifies what a card effect does. The reducer dispatches on this
// tag; adding a new action here forces a decision in the spell resolver.
type Action string

const (
	// ActionFirebolt deals Amount damage to an enemy hero or minion.
	ActionFirebolt Action = "FIREBOLT"
	// ActionHeal restores Amount health to a friendly hero or minion.
	ActionHeal Action = "HEAL"
	// ActionCoin grants Amount temporary mana for the current turn.
	ActionCoin Action = "COIN"
	// ActionTakeCard draws Amount cards for the controller.
	ActionTakeCard Action = "TAKE_CARD"
)

// EffectDescriptor pairs a trigger with an action. Condition is free-form
// and unused by the current effect set.
type EffectDescriptor struct {
	Trigger   Trigger `json:"trigger"`
	Action    Action  `json:"action"`
	Amount    int     `json:"amount,omitempty"`
	Condition string  `json:"condition,omitempty"`
}

// CardDefinition is an immutable card description.
type CardDefinition struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       CardType           `json:"type"`
	Cost       int                `json:"cost"`
	Rarity     string             `json:"rarity,omitempty"`
	Tribe      string             `json:"tribe,omitempty"`
	Text       string             `json:"text,omitempty"`
	Attack     int                `json:"attack,omitempty"`
	Health     int                `json:"health,omitempty"`
	Durability int                `json:"durability,omitempty"`
	Effects    []EffectDescriptor `json:"effects,omitempty"`
}

// Catalog is a process-wide read-only card lookup table.
type Catalog struct {
	defs map[string]CardDefinition
	ids  []string
}

// New builds a catalog from defs. Duplicate ids are rejected.
func New(defs []CardDefinition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]CardDefinition, len(defs))}
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("catalog: definition %q has empty id", def.Name)
		}
		if _, dup := c.defs[def.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate card id %q", def.ID)
		}
		c.defs[def.ID] = def
		c.ids = append(c.ids, def.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (CardDefinition, error) {
	def, ok := c.defs[id]
	if !ok {
		return CardDefinition{}, fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return def, nil
}

// Has reports whether id is a known card.
func (c *Catalog) Has(id string) bool {
	_, ok := c.defs[id]
	return ok
}

// IDs returns all card ids in deterministic order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Size returns the number of definitions.
func (c *Catalog) Size() int {
	return len(c.defs)
}

// DefaultDeck assembles a shuffled starter deck of size cards from the
// catalog's playable (non-token) definitions, at most two copies per card.
func (c *Catalog) DefaultDeck(size int, r *rand.Rand) []string {
	pool := make([]string, 0, len(c.ids)*2)
	for _, id := range c.ids {
		def := c.defs[id]
		if def.Rarity == RarityToken {
			continue
		}
		pool = append(pool, id, id)
	}
	rng.Shuffle(pool, r)
	if size > len(pool) {
		size = len(pool)
	}
	deck := make([]string, size)
	copy(deck, pool[:size])
	return deck
}
