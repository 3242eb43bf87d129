package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/openduel/duel-server/internal/catalog"
	"github.com/openduel/duel-server/internal/config"
	"github.com/openduel/duel-server/internal/rng"
)

// Engine applies the game rules to one match's state. It owns the match's
// deterministic random source (derived from the persisted seed) and the
// catalog used for card lookups. Engines are not safe for concurrent use;
// a match serializes all access through its command loop.
type Engine struct {
	cat  *catalog.Catalog
	cfg  config.GameConfig
	seed string
	rand *rand.Rand
	now  func() time.Time
}

// NewEngine creates a rule engine with a generator reproducible from seed.
// now is injectable for deadline tests; nil means time.Now.
func NewEngine(cat *catalog.Catalog, cfg config.GameConfig, seed string, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cat:  cat,
		cfg:  cfg,
		seed: seed,
		rand: rng.New(seed),
		now:  now,
	}
}

// Seed returns the seed the engine's generator was derived from.
func (e *Engine) Seed() string {
	return e.seed
}

// Now returns the engine's clock reading. Deadlines armed by the engine
// and the checks that enforce them use this one clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// NewState builds the full initial state for a match: shuffled decks,
// heroes at full health, mulligan bookkeeping, empty boards. The mulligan
// stage is armed later by Begin, once both sides are ready.
func (e *Engine) NewState(matchID string) *State {
	return &State{
		MatchID: matchID,
		Seed:    e.seed,
		Stage:   StageMulligan,
		Players: map[Side]*PlayerState{
			SideA: e.newPlayerState(),
			SideB: e.newPlayerState(),
		},
		Boards: map[Side][]*Minion{
			SideA: {},
			SideB: {},
		},
		Turn: TurnState{Current: SideA, Phase: PhaseStart, Number: 1},
		Mulligan: MulliganState{
			Applied:  map[Side]bool{},
			Replaced: map[string]bool{},
		},
	}
}

func (e *Engine) newPlayerState() *PlayerState {
	return &PlayerState{
		Hero:      Hero{HP: e.cfg.HeroHP, MaxHP: e.cfg.HeroHP},
		Deck:      e.cat.DefaultDeck(e.cfg.DeckSize, e.rand),
		Hand:      []*CardInHand{},
		Graveyard: []string{},
	}
}

// Begin deals the opening hands and arms the mulligan deadline. The second
// player receives the Coin as compensation for going second. Called once,
// when both sides have marked ready.
func (e *Engine) Begin(st *State) error {
	for i := 0; i < e.cfg.OpeningHandSize; i++ {
		if err := e.DrawCard(st, SideA); err != nil {
			return err
		}
		if err := e.DrawCard(st, SideB); err != nil {
			return err
		}
	}
	second := st.Player(SideB)
	second.OwnsCoin = true
	second.Hand = append(second.Hand, &CardInHand{
		InstanceID: newInstanceID(),
		CardID:     catalog.CardCoin,
	})

	deadline := e.now().Add(e.cfg.MulliganTimeout)
	st.Timers.MulliganEndsAt = &deadline
	return nil
}

func newInstanceID() string {
	return uuid.NewString()
}
