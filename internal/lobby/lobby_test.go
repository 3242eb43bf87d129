package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/catalog"
	"github.com/openduel/duel-server/internal/config"
	"github.com/openduel/duel-server/internal/game"
	"github.com/openduel/duel-server/internal/match"
)

func testFactory(t *testing.T) Factory {
	t.Helper()
	cat, err := catalog.New(catalog.BaseSet())
	require.NoError(t, err)
	cfg := config.Default().Game
	return func(matchID, playerA, playerB string) (*match.Match, error) {
		engine := game.NewEngine(cat, cfg, "lobby-test-seed", nil)
		return match.New(matchID, engine, cfg, playerA, playerB, match.Hooks{}, zap.NewNop()), nil
	}
}

func TestJoinPairsTwoPlayers(t *testing.T) {
	l := New(testFactory(t), zap.NewNop())

	var first, second *Pairing
	require.NoError(t, l.Join("alice", func(p Pairing) { first = &p }))
	assert.Nil(t, first, "first joiner waits")

	waiting, ok := l.Waiting()
	require.True(t, ok)
	assert.Equal(t, "alice", waiting)

	require.NoError(t, l.Join("bob", func(p Pairing) { second = &p }))

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, game.SideA, first.Side, "first-in becomes side A")
	assert.Equal(t, game.SideB, second.Side)
	assert.Same(t, first.Match, second.Match)

	_, ok = l.Waiting()
	assert.False(t, ok, "slot cleared after pairing")

	side, ok := first.Match.SideOf("alice")
	require.True(t, ok)
	assert.Equal(t, game.SideA, side)
}

func TestJoinTwiceWhileWaiting(t *testing.T) {
	l := New(testFactory(t), zap.NewNop())
	require.NoError(t, l.Join("alice", nil))
	assert.Error(t, l.Join("alice", nil))
}

func TestCancelClearsSlot(t *testing.T) {
	l := New(testFactory(t), zap.NewNop())
	require.NoError(t, l.Join("alice", nil))

	assert.True(t, l.Cancel("alice"))
	assert.False(t, l.Cancel("alice"), "second cancel is a no-op")

	_, ok := l.Waiting()
	assert.False(t, ok)

	// The slot is usable again.
	require.NoError(t, l.Join("carol", nil))
	waiting, ok := l.Waiting()
	require.True(t, ok)
	assert.Equal(t, "carol", waiting)
}
