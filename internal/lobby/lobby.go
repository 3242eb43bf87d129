// Package lobby pairs two waiting players into a match. The queue is a
// single slot: the first joiner waits, the second join creates the match.
package lobby

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/game"
	"github.com/openduel/duel-server/internal/match"
)

// Factory creates and starts a match for two paired players. playerA
// joined first.
type Factory func(matchID, playerA, playerB string) (*match.Match, error)

// Pairing tells a player which match it was placed in and on which side.
type Pairing struct {
	Match *match.Match
	Side  game.Side
}

// Lobby holds the single forming-match slot.
type Lobby struct {
	mu        sync.Mutex
	waitingID string
	waitingCB func(Pairing)
	create    Factory
	logger    *zap.Logger
}

// New creates a lobby that builds matches through create.
func New(create Factory, logger *zap.Logger) *Lobby {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lobby{create: create, logger: logger}
}

// Join enters playerID into the queue. The first joiner is held until a
// second player arrives; then a match is created and both callbacks fire
// with the assigned sides, first-in as side A.
func (l *Lobby) Join(playerID string, ready func(Pairing)) error {
	l.mu.Lock()
	if l.waitingID == playerID {
		l.mu.Unlock()
		return fmt.Errorf("lobby: player %s is already waiting", playerID)
	}
	if l.waitingID == "" {
		l.waitingID = playerID
		l.waitingCB = ready
		l.mu.Unlock()
		l.logger.Info("player waiting for opponent", zap.String("player_id", playerID))
		return nil
	}

	first, firstCB := l.waitingID, l.waitingCB
	l.waitingID, l.waitingCB = "", nil
	l.mu.Unlock()

	matchID := uuid.NewString()
	m, err := l.create(matchID, first, playerID)
	if err != nil {
		return fmt.Errorf("lobby: create match: %w", err)
	}
	l.logger.Info("players paired",
		zap.String("match_id", matchID),
		zap.String("side_a", first),
		zap.String("side_b", playerID),
	)

	if firstCB != nil {
		firstCB(Pairing{Match: m, Side: game.SideA})
	}
	if ready != nil {
		ready(Pairing{Match: m, Side: game.SideB})
	}
	return nil
}

// Cancel removes a waiting player, typically on disconnect. Reports
// whether the player was in the slot.
func (l *Lobby) Cancel(playerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waitingID != playerID {
		return false
	}
	l.waitingID, l.waitingCB = "", nil
	l.logger.Info("waiting player left the lobby", zap.String("player_id", playerID))
	return true
}

// Waiting reports the currently held player, if any.
func (l *Lobby) Waiting() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitingID, l.waitingID != ""
}
