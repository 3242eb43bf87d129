package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/catalog"
	"github.com/openduel/duel-server/internal/config"
	"github.com/openduel/duel-server/internal/game"
	"github.com/openduel/duel-server/internal/lobby"
	"github.com/openduel/duel-server/internal/match"
	"github.com/openduel/duel-server/internal/repository"
	"github.com/openduel/duel-server/internal/rng"
)

// Hub owns every live match room and the pairing lobby. One hub per
// process.
type Hub struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	audit  repository.MatchAuditStore
	logger *zap.Logger

	lobby    *lobby.Lobby
	upgrader websocket.Upgrader

	// mu guards rooms and runCtx: Run binds the context on its own
	// goroutine while connection read goroutines create matches.
	mu     sync.RWMutex
	rooms  map[string]*room
	runCtx context.Context
}

// NewHub wires the transport around the match core.
func NewHub(cfg *config.Config, cat *catalog.Catalog, audit repository.MatchAuditStore, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = repository.NopAuditStore{}
	}
	h := &Hub{
		cfg:    cfg,
		cat:    cat,
		audit:  audit,
		logger: logger,
		rooms:  make(map[string]*room),
	}
	h.lobby = lobby.New(h.createMatch, logger)
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			allowed := cfg.Server.AllowedOrigin
			return allowed == "" || r.Header.Get("Origin") == allowed
		},
	}
	return h
}

// Run drives the periodic resync backstop until ctx is cancelled. Match
// loops started while running are bound to the same ctx.
func (h *Hub) Run(ctx context.Context) {
	h.bindContext(ctx)
	ticker := time.NewTicker(h.cfg.Server.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.resyncAll()
		}
	}
}

func (h *Hub) bindContext(ctx context.Context) {
	h.mu.Lock()
	h.runCtx = ctx
	h.mu.Unlock()
}

// matchContext is the context match loops are bound to: the Run context
// once Run has started, Background before that.
func (h *Hub) matchContext() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.runCtx == nil {
		return context.Background()
	}
	return h.runCtx
}

// resyncAll rebroadcasts the full state of every room, a consistency
// backstop on top of the per-mutation syncs.
func (h *Hub) resyncAll() {
	h.mu.RLock()
	rooms := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		if r.empty() {
			continue
		}
		r.broadcastSync(r.m.Snapshot())
	}
}

// createMatch is the lobby's match factory: fresh seed, engine, match
// loop, room registration and an audit row.
func (h *Hub) createMatch(matchID, playerA, playerB string) (*match.Match, error) {
	seed, err := rng.NewSeed()
	if err != nil {
		return nil, err
	}
	engine := game.NewEngine(h.cat, h.cfg.Game, seed, nil)

	r := &room{
		id:     matchID,
		conns:  make(map[*client]struct{}),
		logger: h.logger.With(zap.String("match_id", matchID)),
	}
	m := match.New(matchID, engine, h.cfg.Game, playerA, playerB, match.Hooks{
		OnChange:   r.broadcastChange,
		OnFinished: h.recordFinished,
	}, h.logger)
	r.m = m

	h.mu.Lock()
	h.rooms[matchID] = r
	h.mu.Unlock()

	go m.Run(h.matchContext())

	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.audit.RecordCreated(auditCtx, matchID, seed); err != nil {
		h.logger.Warn("failed to record match creation", zap.String("match_id", matchID), zap.Error(err))
	}
	return m, nil
}

func (h *Hub) recordFinished(matchID string, winner game.Side, turns int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.audit.RecordFinished(ctx, matchID, string(winner), turns); err != nil {
		h.logger.Warn("failed to record match result", zap.String("match_id", matchID), zap.Error(err))
	}
	h.logger.Info("match finished",
		zap.String("match_id", matchID),
		zap.String("winner", string(winner)),
		zap.Int("turns", turns),
	)
}

func (h *Hub) room(matchID string) (*room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[matchID]
	return r, ok
}

// room fans broadcasts out to every connection attached to one match.
type room struct {
	id     string
	m      *match.Match
	logger *zap.Logger

	mu    sync.RWMutex
	conns map[*client]struct{}
}

func (r *room) add(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

func (r *room) remove(c *client) {
	r.mu.Lock()
	delete(r.conns, c)
	peers := r.peersLocked(c)
	r.mu.Unlock()

	// Disconnects never forfeit the match; peers are just told.
	for _, p := range peers {
		p.sendFrame(encode(TypePeerLeft, nil))
	}
}

func (r *room) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns) == 0
}

func (r *room) peersLocked(except *client) []*client {
	peers := make([]*client, 0, len(r.conns))
	for c := range r.conns {
		if c != except {
			peers = append(peers, c)
		}
	}
	return peers
}

func (r *room) broadcast(frame []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.conns {
		c.sendFrame(frame)
	}
}

// broadcastSync pushes a full-state snapshot to every connection.
func (r *room) broadcastSync(snap match.Snapshot) {
	r.broadcast(encode(TypeStateSync, StateSyncPayload{Seq: snap.Seq, State: snap.State}))
}

// broadcastChange is the match's OnChange hook: a sync after every
// accepted mutation, followed by the game-over announcement the moment a
// winner is set.
func (r *room) broadcastChange(snap match.Snapshot) {
	r.broadcastSync(snap)
	if snap.Winner != nil {
		r.broadcast(encode(TypeGameOver, GameOverPayload{Winner: *snap.Winner}))
	}
}

// relayEmote forwards an emote to everyone but the sender; emotes are
// not part of authoritative state.
func (r *room) relayEmote(from *client, kind string) {
	frame := encode(TypeEmote, EmoteRelayPayload{From: from.playerID, Kind: kind})
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.conns {
		if c != from {
			c.sendFrame(frame)
		}
	}
}
