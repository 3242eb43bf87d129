package match

import (
	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/game"
)

// HandleReady marks a side ready. When both sides are ready the match
// starts: opening hands are dealt and the mulligan deadline is armed.
func (m *Match) HandleReady(playerID string) Result {
	return m.do(func() Result {
		pm, ok := m.players[playerID]
		if !ok {
			return Result{OK: false, Error: "unknown player"}
		}
		if pm.ready {
			return Result{OK: true, Duplicate: true}
		}
		pm.ready = true
		m.state.Player(pm.side).Ready = true

		if !m.bothReady() {
			return Result{OK: true, StateChanged: true}
		}
		if err := m.engine.Begin(m.state); err != nil {
			m.logger.Error("failed to begin match", zap.Error(err))
			return Result{OK: false, Error: "internal error"}
		}
		m.started = true
		m.logger.Info("match started",
			zap.String("seed", m.engine.Seed()),
			zap.String("side_a", m.playerBySide(game.SideA)),
			zap.String("side_b", m.playerBySide(game.SideB)),
		)
		return Result{OK: true, StateChanged: true}
	})
}

// HandlePlayCard attempts to play a hand card.
func (m *Match) HandlePlayCard(playerID string, seq uint64, nonce, cardInstanceID string, target *game.Target, placement game.Placement) Result {
	return m.handleSequenced(playerID, seq, nonce, func(side game.Side) error {
		if err := m.engine.ValidatePlayCard(m.state, side, cardInstanceID, target); err != nil {
			return err
		}
		return m.engine.ApplyPlayCard(m.state, side, cardInstanceID, target, placement)
	})
}

// HandleEndTurn ends the acting side's turn and starts the opponent's.
func (m *Match) HandleEndTurn(playerID string, seq uint64, nonce string) Result {
	return m.handleSequenced(playerID, seq, nonce, func(side game.Side) error {
		if err := m.engine.ValidateEndTurn(m.state, side); err != nil {
			return err
		}
		m.engine.EndTurn(m.state, side)
		return m.engine.StartTurn(m.state, m.state.Turn.Current)
	})
}

// HandleAttack resolves an attack by one of the player's minions.
func (m *Match) HandleAttack(playerID string, seq uint64, nonce, attackerID string, target game.Target) Result {
	return m.handleSequenced(playerID, seq, nonce, func(side game.Side) error {
		if err := m.engine.ValidateAttack(m.state, side, attackerID, target); err != nil {
			return err
		}
		return m.engine.ApplyAttack(m.state, side, attackerID, target)
	})
}

// HandleMulliganReplace swaps one opening-hand card during the mulligan.
func (m *Match) HandleMulliganReplace(playerID string, seq uint64, nonce, cardInstanceID string) Result {
	return m.handleSequenced(playerID, seq, nonce, func(side game.Side) error {
		if err := m.engine.ValidateMulliganReplace(m.state, side, cardInstanceID); err != nil {
			return err
		}
		return m.engine.ApplyMulliganReplace(m.state, side, cardInstanceID)
	})
}

// HandleMulliganApply locks in the player's opening hand.
func (m *Match) HandleMulliganApply(playerID string, seq uint64, nonce string) Result {
	return m.handleSequenced(playerID, seq, nonce, func(side game.Side) error {
		if err := m.engine.ValidateMulliganApply(m.state, side); err != nil {
			return err
		}
		return m.engine.ApplyMulliganApply(m.state, side)
	})
}

// handleSequenced wraps a mutating command with the per-player ordering
// and idempotency protocol, then runs it on the match loop.
func (m *Match) handleSequenced(playerID string, seq uint64, nonce string, apply func(side game.Side) error) Result {
	return m.do(func() Result {
		pm, ok := m.players[playerID]
		if !ok {
			return Result{OK: false, Error: "unknown player"}
		}
		if proceed, res := m.checkSequence(pm, seq, nonce); !proceed {
			return res
		}

		if err := apply(pm.side); err != nil {
			if game.IsValidation(err) {
				return Result{OK: false, Error: err.Error()}
			}
			m.logger.Error("command failed unexpectedly",
				zap.String("player_id", playerID),
				zap.Uint64("seq", seq),
				zap.Error(err),
			)
			return Result{OK: false, Error: "internal error"}
		}
		return Result{OK: true, StateChanged: true}
	})
}

// checkSequence enforces at-most-once semantics under at-least-once
// delivery: commands at or below lastSeq are retransmissions and are
// acknowledged without re-execution, a gap above lastSeq+1 is rejected,
// and a reused nonce is treated as a duplicate even with a fresh seq.
// On acceptance lastSeq advances and the nonce joins the bounded history.
func (m *Match) checkSequence(pm *playerMeta, seq uint64, nonce string) (bool, Result) {
	if seq <= pm.lastSeq {
		pm.recordNonce(nonce, m.cfg.NonceHistory)
		return false, Result{OK: true, Duplicate: true}
	}
	if seq != pm.lastSeq+1 {
		return false, Result{OK: false, Error: "out-of-order sequence"}
	}
	if nonce != "" && pm.sawNonce(nonce) {
		return false, Result{OK: true, Duplicate: true}
	}
	pm.lastSeq = seq
	pm.recordNonce(nonce, m.cfg.NonceHistory)
	return true, Result{}
}

// forceMulliganComplete is the mulligan-deadline transition. It runs on
// the match loop; the deadline may have resolved itself already.
func (m *Match) forceMulliganComplete() Result {
	deadline := m.state.Timers.MulliganEndsAt
	if m.state.Stage != game.StageMulligan || deadline == nil || deadline.After(m.engine.Now()) {
		return Result{OK: true}
	}
	if err := m.engine.CompleteMulligan(m.state); err != nil {
		m.logger.Error("forced mulligan completion failed", zap.Error(err))
		return Result{OK: false, Error: "internal error"}
	}
	m.logger.Info("mulligan completed by deadline")
	return Result{OK: true, StateChanged: true}
}

// forceEndTurn is the turn-deadline transition.
func (m *Match) forceEndTurn() Result {
	deadline := m.state.Timers.TurnEndsAt
	if m.state.Stage != game.StagePlay || m.state.Finished() || deadline == nil || deadline.After(m.engine.Now()) {
		return Result{OK: true}
	}
	side := m.state.Turn.Current
	m.engine.EndTurn(m.state, side)
	if err := m.engine.StartTurn(m.state, m.state.Turn.Current); err != nil {
		m.logger.Error("forced turn end failed", zap.Error(err))
		return Result{OK: false, Error: "internal error"}
	}
	m.logger.Info("turn ended by deadline", zap.String("side", string(side)))
	return Result{OK: true, StateChanged: true}
}

func (m *Match) bothReady() bool {
	for _, pm := range m.players {
		if !pm.ready {
			return false
		}
	}
	return true
}

func (m *Match) playerBySide(side game.Side) string {
	for id, pm := range m.players {
		if pm.side == side {
			return id
		}
	}
	return ""
}
