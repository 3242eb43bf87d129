// Package match owns one match's lifecycle: player binding, the readiness
// handshake, per-player command sequencing, validation and reduction, and
// the deadline timers that force stuck transitions.
//
// All state access is serialized through a single command loop per match,
// so the one GameState is only ever mutated by one goroutine. Connection
// handlers and timer callbacks both feed the same mailbox.
package match

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/config"
	"github.com/openduel/duel-server/internal/game"
)

// Phase of the match lifecycle, coarser than the in-game stage.
type Lifecycle string

const (
	LifecycleAwaitingReady Lifecycle = "AWAITING_READY"
	LifecycleStarted       Lifecycle = "STARTED"
	LifecycleFinished      Lifecycle = "FINISHED"
)

// Result is what every mutating command handler reports back to the
// transport layer. Duplicates are acknowledged with OK and no state
// change; validation failures come back with OK false and a reason.
type Result struct {
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
	StateChanged bool   `json:"state_changed"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// Snapshot is a broadcast-ready view of the authoritative state.
type Snapshot struct {
	MatchID string
	Seq     uint64
	Winner  *game.Side
	State   json.RawMessage
}

// Hooks are the match's outbound notifications. OnChange fires after
// every accepted mutation with a fresh snapshot; OnFinished fires once,
// when a winner is decided.
type Hooks struct {
	OnChange   func(Snapshot)
	OnFinished func(matchID string, winner game.Side, turns int)
}

// playerMeta is the server-internal per-player record, never broadcast.
type playerMeta struct {
	playerID string
	side     game.Side
	ready    bool
	lastSeq  uint64
	nonces   []string
}

func (pm *playerMeta) sawNonce(nonce string) bool {
	for _, n := range pm.nonces {
		if n == nonce {
			return true
		}
	}
	return false
}

func (pm *playerMeta) recordNonce(nonce string, limit int) {
	if nonce == "" || pm.sawNonce(nonce) {
		return
	}
	pm.nonces = append(pm.nonces, nonce)
	if len(pm.nonces) > limit {
		pm.nonces = pm.nonces[len(pm.nonces)-limit:]
	}
}

type command struct {
	fn    func() Result
	reply chan Result
}

// Match owns one game's authoritative state.
type Match struct {
	id     string
	engine *game.Engine
	state  *game.State
	cfg    config.GameConfig
	logger *zap.Logger
	hooks  Hooks

	players map[string]*playerMeta
	started bool

	cmds chan command
	done chan struct{}

	mulliganTimer *deadlineTimer
	turnTimer     *deadlineTimer
}

// New binds two players to a fresh match. playerA joined first and plays
// side A. The match does not process commands until Run is started.
func New(id string, engine *game.Engine, cfg config.GameConfig, playerA, playerB string, hooks Hooks, logger *zap.Logger) *Match {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Match{
		id:     id,
		engine: engine,
		state:  engine.NewState(id),
		cfg:    cfg,
		logger: logger.With(zap.String("match_id", id)),
		hooks:  hooks,
		players: map[string]*playerMeta{
			playerA: {playerID: playerA, side: game.SideA},
			playerB: {playerID: playerB, side: game.SideB},
		},
		cmds: make(chan command, 64),
		done: make(chan struct{}),
	}
	m.mulliganTimer = newDeadlineTimer(func() { m.enqueue(m.forceMulliganComplete) })
	m.turnTimer = newDeadlineTimer(func() { m.enqueue(m.forceEndTurn) })
	return m
}

// ID returns the match id.
func (m *Match) ID() string {
	return m.id
}

// Seed returns the persisted RNG seed for this match.
func (m *Match) Seed() string {
	return m.engine.Seed()
}

// SideOf resolves a player id to its side.
func (m *Match) SideOf(playerID string) (game.Side, bool) {
	pm, ok := m.players[playerID]
	if !ok {
		return "", false
	}
	return pm.side, true
}

// Opponent returns the other player's id.
func (m *Match) Opponent(playerID string) (string, bool) {
	pm, ok := m.players[playerID]
	if !ok {
		return "", false
	}
	for id, other := range m.players {
		if other.side == pm.side.Opponent() {
			return id, true
		}
	}
	return "", false
}

// Run consumes the command mailbox until ctx is cancelled. Exactly one
// Run per match.
func (m *Match) Run(ctx context.Context) {
	defer close(m.done)
	defer m.mulliganTimer.stop()
	defer m.turnTimer.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m.cmds:
			res := cmd.fn()
			if res.StateChanged {
				m.afterChange()
			}
			m.reconcileTimers()
			if cmd.reply != nil {
				cmd.reply <- res
			}
		}
	}
}

// do runs fn on the match loop and waits for its result.
func (m *Match) do(fn func() Result) Result {
	reply := make(chan Result, 1)
	select {
	case m.cmds <- command{fn: fn, reply: reply}:
	case <-m.done:
		return Result{OK: false, Error: "match closed"}
	}
	select {
	case res := <-reply:
		return res
	case <-m.done:
		return Result{OK: false, Error: "match closed"}
	}
}

// enqueue posts fn without waiting for a result (timer callbacks).
func (m *Match) enqueue(fn func() Result) {
	select {
	case m.cmds <- command{fn: fn}:
	case <-m.done:
	}
}

// afterChange bumps the global state version exactly once per accepted
// mutation and notifies subscribers.
func (m *Match) afterChange() {
	m.state.Seq++
	if m.hooks.OnChange != nil {
		m.hooks.OnChange(m.snapshotOnLoop())
	}
	if m.state.Finished() && m.hooks.OnFinished != nil {
		m.hooks.OnFinished(m.id, *m.state.Winner, m.state.Turn.Number)
		m.hooks.OnFinished = nil
	}
}

// snapshotOnLoop serializes the state; it must only run on the match
// loop goroutine, which is the sole writer.
func (m *Match) snapshotOnLoop() Snapshot {
	raw, err := json.Marshal(m.state)
	if err != nil {
		m.logger.Error("failed to marshal state snapshot", zap.Error(err))
		raw = []byte("{}")
	}
	return Snapshot{
		MatchID: m.id,
		Seq:     m.state.Seq,
		Winner:  m.state.Winner,
		State:   raw,
	}
}

// Snapshot returns the current broadcast view, serialized on the loop.
func (m *Match) Snapshot() Snapshot {
	var snap Snapshot
	m.do(func() Result {
		snap = m.snapshotOnLoop()
		return Result{OK: true}
	})
	return snap
}

// Lifecycle reports the coarse match phase.
func (m *Match) Lifecycle() Lifecycle {
	var lc Lifecycle
	m.do(func() Result {
		lc = m.lifecycleOnLoop()
		return Result{OK: true}
	})
	return lc
}

func (m *Match) lifecycleOnLoop() Lifecycle {
	switch {
	case m.state.Finished():
		return LifecycleFinished
	case m.started:
		return LifecycleStarted
	default:
		return LifecycleAwaitingReady
	}
}
