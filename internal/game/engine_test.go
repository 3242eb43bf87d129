package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openduel/duel-server/internal/catalog"
	"github.com/openduel/duel-server/internal/config"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := catalog.New(catalog.BaseSet())
	require.NoError(t, err)
	return NewEngine(cat, config.Default().Game, "engine-test-seed", func() time.Time { return testNow })
}

// newPlayState returns a match already past the mulligan, with side A in
// its main phase and both sides at the given mana.
func newPlayState(t *testing.T, e *Engine, mana int) *State {
	t.Helper()
	st := e.NewState("match-1")
	st.Stage = StagePlay
	st.Turn.Phase = PhaseMain
	for _, side := range []Side{SideA, SideB} {
		p := st.Player(side)
		p.Mana = Mana{Current: mana, Max: mana}
	}
	return st
}

func giveCard(st *State, side Side, instanceID, cardID string) {
	p := st.Player(side)
	p.Hand = append(p.Hand, &CardInHand{InstanceID: instanceID, CardID: cardID})
}

func putMinion(st *State, side Side, instanceID string, attack, health, attacks int) *Minion {
	m := &Minion{
		InstanceID:       instanceID,
		CardID:           catalog.CardRiverCroc,
		Attack:           attack,
		Health:           health,
		AttacksRemaining: attacks,
	}
	st.Boards[side] = append(st.Boards[side], m)
	return m
}

func TestNewStateShape(t *testing.T) {
	e := newTestEngine(t)
	st := e.NewState("match-1")

	assert.Equal(t, "match-1", st.MatchID)
	assert.Equal(t, e.Seed(), st.Seed)
	assert.Equal(t, StageMulligan, st.Stage)
	assert.Equal(t, SideA, st.Turn.Current)
	assert.Equal(t, 1, st.Turn.Number)
	assert.Nil(t, st.Winner)
	assert.Nil(t, st.Timers.MulliganEndsAt)
	assert.Nil(t, st.Timers.TurnEndsAt)
	require.NotNil(t, st.Mulligan.Applied)
	require.NotNil(t, st.Mulligan.Replaced)

	for _, side := range []Side{SideA, SideB} {
		p := st.Player(side)
		assert.Equal(t, 30, p.Hero.HP)
		assert.Equal(t, 30, p.Hero.MaxHP)
		assert.Len(t, p.Deck, 20)
		assert.Empty(t, p.Hand)
		assert.Empty(t, st.Boards[side])
	}
}

func TestNewStateDeterministicDecks(t *testing.T) {
	cat, err := catalog.New(catalog.BaseSet())
	require.NoError(t, err)
	cfg := config.Default().Game

	first := NewEngine(cat, cfg, "same-seed", nil).NewState("m")
	second := NewEngine(cat, cfg, "same-seed", nil).NewState("m")

	assert.Equal(t, first.Player(SideA).Deck, second.Player(SideA).Deck)
	assert.Equal(t, first.Player(SideB).Deck, second.Player(SideB).Deck)
}

func TestBeginDealsHandsAndCoin(t *testing.T) {
	e := newTestEngine(t)
	st := e.NewState("match-1")
	require.NoError(t, e.Begin(st))

	a, b := st.Player(SideA), st.Player(SideB)
	assert.Len(t, a.Hand, 4)
	assert.Len(t, b.Hand, 5, "second player gets the coin on top of the opening hand")
	assert.Equal(t, catalog.CardCoin, b.Hand[len(b.Hand)-1].CardID)
	assert.True(t, b.OwnsCoin)
	assert.False(t, a.OwnsCoin)

	require.NotNil(t, st.Timers.MulliganEndsAt)
	assert.Equal(t, testNow.Add(45*time.Second), *st.Timers.MulliganEndsAt)
}

func TestMulliganReplaceSwapsExactlyOneCard(t *testing.T) {
	e := newTestEngine(t)
	st := e.NewState("match-1")
	require.NoError(t, e.Begin(st))

	p := st.Player(SideA)
	victim := p.Hand[1]
	deckBefore := len(p.Deck)

	require.NoError(t, e.ValidateMulliganReplace(st, SideA, victim.InstanceID))
	require.NoError(t, e.ApplyMulliganReplace(st, SideA, victim.InstanceID))

	assert.Len(t, p.Hand, 4)
	assert.Len(t, p.Deck, deckBefore, "one card in, one card out")
	replacement := p.Hand[1]
	assert.NotEqual(t, victim.InstanceID, replacement.InstanceID)
	assert.True(t, st.Mulligan.Replaced[replacement.InstanceID])

	err := e.ValidateMulliganReplace(st, SideA, replacement.InstanceID)
	require.Error(t, err)
	assert.True(t, IsValidation(err), "replacing a replacement must be a user error")
}

func TestMulliganCoinCannotBeReplaced(t *testing.T) {
	e := newTestEngine(t)
	st := e.NewState("match-1")
	require.NoError(t, e.Begin(st))

	b := st.Player(SideB)
	coin := b.Hand[len(b.Hand)-1]
	err := e.ValidateMulliganReplace(st, SideB, coin.InstanceID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestMulliganApplyBothSidesStartsPlay(t *testing.T) {
	e := newTestEngine(t)
	st := e.NewState("match-1")
	require.NoError(t, e.Begin(st))

	require.NoError(t, e.ApplyMulliganApply(st, SideA))
	assert.Equal(t, StageMulligan, st.Stage, "one side applied is not enough")

	require.NoError(t, e.ApplyMulliganApply(st, SideB))
	assert.Equal(t, StagePlay, st.Stage)
	assert.Equal(t, PhaseMain, st.Turn.Phase)
	assert.Equal(t, SideA, st.Turn.Current)
	assert.Nil(t, st.Timers.MulliganEndsAt)
	require.NotNil(t, st.Timers.TurnEndsAt)
	assert.Equal(t, testNow.Add(75*time.Second), *st.Timers.TurnEndsAt)

	a := st.Player(SideA)
	assert.Equal(t, 1, a.Mana.Max)
	assert.Equal(t, 1, a.Mana.Current)
	assert.Len(t, a.Hand, 5, "opening four plus the turn-one draw")
}

func TestCompleteMulliganForcesLaggards(t *testing.T) {
	e := newTestEngine(t)
	st := e.NewState("match-1")
	require.NoError(t, e.Begin(st))

	require.NoError(t, e.ApplyMulliganApply(st, SideB))
	require.NoError(t, e.CompleteMulligan(st))

	assert.Equal(t, StagePlay, st.Stage)
	assert.True(t, st.Mulligan.Applied[SideA])
	assert.True(t, st.Mulligan.Applied[SideB])

	// Idempotent once play has begun.
	turn := st.Turn
	require.NoError(t, e.CompleteMulligan(st))
	assert.Equal(t, turn, st.Turn)
}
