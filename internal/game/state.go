// Package game owns the authoritative match state and the rule engine that
// mutates it. The engine is split the same way the rules are reasoned
// about: pure validation predicates that never touch state, and reducers
// that assume validation already passed.
package game

import (
	"time"
)

// Side identifies one of the two fixed match participants.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Valid reports whether s is one of the two playable sides.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Stage is the top-level match phase, gating which commands are legal.
type Stage string

const (
	StageMulligan Stage = "MULLIGAN"
	StagePlay     Stage = "PLAY"
)

// Phase is the per-turn phase within the Play stage.
type Phase string

const (
	PhaseStart Phase = "START"
	PhaseMain  Phase = "MAIN"
	PhaseEnd   Phase = "END"
)

// TargetKind discriminates the two targetable entity classes.
type TargetKind string

const (
	TargetHero   TargetKind = "HERO"
	TargetMinion TargetKind = "MINION"
)

// Target designates a hero or a board minion.
type Target struct {
	Kind       TargetKind `json:"kind"`
	Side       Side       `json:"side"`
	InstanceID string     `json:"instance_id,omitempty"`
}

// Placement selects which end of the board a summoned minion joins.
type Placement string

const (
	PlacementLeft  Placement = "LEFT"
	PlacementRight Placement = "RIGHT"
)

// Hero is a side's hero health record.
type Hero struct {
	HP    int `json:"hp"`
	MaxHP int `json:"max_hp"`
}

// Mana tracks a side's resource pool. Temporary is the same-turn-only
// bonus (the Coin) clawed back at end of turn.
type Mana struct {
	Current   int `json:"current"`
	Max       int `json:"max"`
	Temporary int `json:"temporary"`
}

// CardInHand pairs a unique instance id with a card definition reference.
type CardInHand struct {
	InstanceID string `json:"instance_id"`
	CardID     string `json:"card_id"`
}

// Minion is a board-resident instantiation of a minion card. Attack and
// Health may diverge from the base stats via buffs. DivineShield and
// Berserk are declared for the client contract; no shipped effect drives
// them yet.
type Minion struct {
	InstanceID       string `json:"instance_id"`
	CardID           string `json:"card_id"`
	Attack           int    `json:"attack"`
	Health           int    `json:"health"`
	AttacksRemaining int    `json:"attacks_remaining"`
	DivineShield     bool   `json:"divine_shield"`
	Berserk          bool   `json:"berserk"`
}

// PlayerState is one side's mutable record.
type PlayerState struct {
	Hero      Hero          `json:"hero"`
	Deck      []string      `json:"deck"`
	Hand      []*CardInHand `json:"hand"`
	Graveyard []string      `json:"graveyard"`
	Mana      Mana          `json:"mana"`
	OwnsCoin  bool          `json:"owns_coin"`
	Ready     bool          `json:"ready"`
}

// TurnState tracks whose turn it is. Number increments on every side
// switch, i.e. once per half-round.
type TurnState struct {
	Current Side  `json:"current"`
	Phase   Phase `json:"phase"`
	Number  int   `json:"number"`
}

// MulliganState tracks the pre-game replacement phase: which sides have
// locked in, and which hand card instances were already swapped once.
type MulliganState struct {
	Applied  map[Side]bool   `json:"applied"`
	Replaced map[string]bool `json:"replaced"`
}

// TimerState carries the wall-clock deadlines the timeout orchestration
// keys off. A nil deadline means no timer should be pending.
type TimerState struct {
	MulliganEndsAt *time.Time `json:"mulligan_ends_at,omitempty"`
	TurnEndsAt     *time.Time `json:"turn_ends_at,omitempty"`
}

// State is the full authoritative snapshot of one match. Exactly one
// State exists per match; the reducer mutates it in place and every
// accepted command bumps Seq exactly once.
type State struct {
	MatchID  string                `json:"match_id"`
	Seed     string                `json:"seed"`
	Seq      uint64                `json:"seq"`
	Stage    Stage                 `json:"stage"`
	Players  map[Side]*PlayerState `json:"players"`
	Boards   map[Side][]*Minion    `json:"boards"`
	Turn     TurnState             `json:"turn"`
	Mulligan MulliganState         `json:"mulligan"`
	Timers   TimerState            `json:"timers"`
	Winner   *Side                 `json:"winner,omitempty"`
}

// Finished reports whether a winner has been decided.
func (st *State) Finished() bool {
	return st.Winner != nil
}

// Player returns the state for side, or nil for an invalid side.
func (st *State) Player(side Side) *PlayerState {
	return st.Players[side]
}

// FindHandCard returns the index and card for a hand instance id, or -1.
func (p *PlayerState) FindHandCard(instanceID string) (int, *CardInHand) {
	for i, c := range p.Hand {
		if c.InstanceID == instanceID {
			return i, c
		}
	}
	return -1, nil
}

// FindMinion returns the index and minion for instanceID on side's board,
// or -1 if absent.
func (st *State) FindMinion(side Side, instanceID string) (int, *Minion) {
	for i, m := range st.Boards[side] {
		if m.InstanceID == instanceID {
			return i, m
		}
	}
	return -1, nil
}
