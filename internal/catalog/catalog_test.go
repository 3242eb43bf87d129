package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openduel/duel-server/internal/rng"
)

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]CardDefinition{
		{ID: "x", Name: "X", Type: TypeSpell},
		{ID: "x", Name: "X again", Type: TypeSpell},
	})
	assert.Error(t, err)
}

func TestGetUnknownCard(t *testing.T) {
	c, err := New(BaseSet())
	require.NoError(t, err)

	_, err = c.Get("no_such_card")
	assert.ErrorIs(t, err, ErrUnknownCard)
}

func TestBaseSetLookups(t *testing.T) {
	c, err := New(BaseSet())
	require.NoError(t, err)

	coin, err := c.Get(CardCoin)
	require.NoError(t, err)
	assert.Equal(t, TypeSpell, coin.Type)
	assert.Equal(t, 0, coin.Cost)
	require.Len(t, coin.Effects, 1)
	assert.Equal(t, ActionCoin, coin.Effects[0].Action)

	bolt, err := c.Get(CardFirebolt)
	require.NoError(t, err)
	assert.Equal(t, 2, bolt.Cost)
	assert.Equal(t, 2, bolt.Effects[0].Amount)

	croc, err := c.Get(CardRiverCroc)
	require.NoError(t, err)
	assert.Equal(t, TypeMinion, croc.Type)
	assert.Equal(t, 2, croc.Attack)
	assert.Equal(t, 3, croc.Health)
}

func TestDefaultDeckExcludesTokens(t *testing.T) {
	c, err := New(BaseSet())
	require.NoError(t, err)

	deck := c.DefaultDeck(20, rng.New("deck-seed"))
	require.Len(t, deck, 20)
	for _, id := range deck {
		assert.NotEqual(t, CardCoin, id, "the coin must never be in a deck")
		assert.True(t, c.Has(id))
	}
}

func TestDefaultDeckDeterministic(t *testing.T) {
	c, err := New(BaseSet())
	require.NoError(t, err)

	first := c.DefaultDeck(20, rng.New("same-seed"))
	second := c.DefaultDeck(20, rng.New("same-seed"))
	assert.Equal(t, first, second)
}
