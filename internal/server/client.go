package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/game"
	"github.com/openduel/duel-server/internal/lobby"
	"github.com/openduel/duel-server/internal/match"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// client is one WebSocket connection. Its read pump handles messages
// strictly sequentially, which is what makes the per-connection command
// ordering protocol sound.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	send chan []byte

	playerID string

	// mu guards room, side and the send-channel close: the pairing
	// callback can attach the room from the other player's read
	// goroutine, and room broadcasts race the teardown.
	mu       sync.Mutex
	room     *room
	side     game.Side
	sendDone bool

	limiter *rateLimiter
}

func (c *client) getRoom() *room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *client) setRoom(r *room, side game.Side) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room != nil {
		return false
	}
	c.room = r
	c.side = side
	return true
}

// rateLimiter is a fixed-window message counter, independent of the
// sequencing protocol. Over-budget frames are dropped with a warning
// toast rather than a hard error.
type rateLimiter struct {
	window time.Duration
	budget int
	start  time.Time
	count  int
}

func (rl *rateLimiter) allow(now time.Time) bool {
	if now.Sub(rl.start) >= rl.window {
		rl.start = now
		rl.count = 0
	}
	rl.count++
	return rl.count <= rl.budget
}

// ServeWS upgrades an HTTP request to a game connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		hub:    h,
		conn:   conn,
		logger: h.logger.With(zap.String("remote", conn.RemoteAddr().String())),
		send:   make(chan []byte, sendBuffer),
		limiter: &rateLimiter{
			window: h.cfg.Server.RateLimitWindow,
			budget: h.cfg.Server.RateLimitBudget,
		},
	}
	go c.writePump()
	c.readPump()
}

// sendFrame queues a frame, dropping it if the connection is backed up
// or already torn down. The periodic resync recovers any client that
// missed a sync this way.
func (c *client) sendFrame(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendDone {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("send buffer full, dropping frame", zap.String("player_id", c.playerID))
	}
}

func (c *client) sendToast(message string) {
	c.sendFrame(encode(TypeToast, ToastPayload{Message: message}))
}

func (c *client) readPump() {
	defer c.disconnect()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection closed unexpectedly", zap.Error(err))
			}
			return
		}
		c.handle(raw)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect tears the connection down: a waiting player leaves the
// lobby, an attached one leaves its room. The match itself keeps
// running; there is no disconnect-forfeit rule.
func (c *client) disconnect() {
	c.conn.Close()
	if c.playerID != "" {
		c.hub.lobby.Cancel(c.playerID)
	}
	if r := c.getRoom(); r != nil {
		r.remove(c)
		c.logger.Info("player disconnected from match",
			zap.String("player_id", c.playerID),
			zap.String("match_id", r.id),
		)
	}
	c.mu.Lock()
	c.sendDone = true
	close(c.send)
	c.mu.Unlock()
}

// handle processes one inbound frame. Runs on the read pump, so frames
// from one connection are never handled concurrently.
func (c *client) handle(raw []byte) {
	if !c.limiter.allow(time.Now()) {
		c.sendToast("slow down")
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendToast("malformed message")
		return
	}

	switch env.Type {
	case TypeJoinMatch:
		c.handleJoin(env)
	case TypeReady:
		c.withRoom(func(r *room) {
			c.reply(0, r.m.HandleReady(c.playerID))
		})
	case TypePlayCard:
		var p PlayCardPayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withRoom(func(r *room) {
			c.reply(env.Seq, r.m.HandlePlayCard(c.playerID, env.Seq, env.Nonce, p.CardID, p.Target, p.Placement))
		})
	case TypeEndTurn:
		c.withRoom(func(r *room) {
			c.reply(env.Seq, r.m.HandleEndTurn(c.playerID, env.Seq, env.Nonce))
		})
	case TypeAttack:
		var p AttackPayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withRoom(func(r *room) {
			c.reply(env.Seq, r.m.HandleAttack(c.playerID, env.Seq, env.Nonce, p.AttackerID, p.Target))
		})
	case TypeMulliganReplace:
		var p MulliganReplacePayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withRoom(func(r *room) {
			c.reply(env.Seq, r.m.HandleMulliganReplace(c.playerID, env.Seq, env.Nonce, p.CardID))
		})
	case TypeMulliganApply:
		c.withRoom(func(r *room) {
			c.reply(env.Seq, r.m.HandleMulliganApply(c.playerID, env.Seq, env.Nonce))
		})
	case TypeEmote:
		var p EmotePayload
		if !c.decode(env.Payload, &p) {
			return
		}
		c.withRoom(func(r *room) {
			r.relayEmote(c, p.Kind)
		})
	default:
		c.sendToast("unknown message type")
	}
}

func (c *client) decode(raw json.RawMessage, into any) bool {
	if err := json.Unmarshal(raw, into); err != nil {
		c.sendToast("malformed payload")
		return false
	}
	return true
}

func (c *client) withRoom(fn func(r *room)) {
	r := c.getRoom()
	if r == nil {
		c.sendToast("join a match first")
		return
	}
	fn(r)
}

func (c *client) reply(seq uint64, res match.Result) {
	c.sendFrame(encode(TypeActionResult, ActionResultPayload{
		Seq:          seq,
		OK:           res.OK,
		Error:        res.Error,
		StateChanged: res.StateChanged,
		Duplicate:    res.Duplicate,
	}))
}

// handleJoin binds a player identity and either queues for pairing or
// rejoins an existing match by id.
func (c *client) handleJoin(env Envelope) {
	if c.getRoom() != nil {
		c.sendToast("already in a match")
		return
	}
	var p JoinMatchPayload
	if !c.decode(env.Payload, &p) {
		return
	}
	if c.playerID == "" {
		if p.PlayerID != "" {
			c.playerID = p.PlayerID
		} else {
			c.playerID = uuid.NewString()
		}
	}

	if p.MatchID == "" || p.MatchID == "auto" {
		if err := c.hub.lobby.Join(c.playerID, c.onPaired); err != nil {
			c.sendToast(err.Error())
			return
		}
		// For the second joiner the pairing callback has already run on
		// this goroutine and attached the room.
		if c.getRoom() == nil {
			c.sendFrame(encode(TypeWaiting, nil))
		}
		return
	}

	r, ok := c.hub.room(p.MatchID)
	if !ok {
		c.sendToast("match not found")
		return
	}
	side, ok := r.m.SideOf(c.playerID)
	if !ok {
		c.sendToast("not a player in this match")
		return
	}
	c.attach(r, side)
}

// onPaired is invoked by the lobby, possibly on the other player's read
// goroutine.
func (c *client) onPaired(p lobby.Pairing) {
	r, ok := c.hub.room(p.Match.ID())
	if !ok {
		c.logger.Error("paired into unregistered match", zap.String("match_id", p.Match.ID()))
		return
	}
	c.attach(r, p.Side)
}

func (c *client) attach(r *room, side game.Side) {
	if !c.setRoom(r, side) {
		return
	}
	r.add(c)
	c.sendFrame(encode(TypeJoined, JoinedPayload{
		MatchID:  r.id,
		PlayerID: c.playerID,
		Side:     side,
	}))
	snap := r.m.Snapshot()
	c.sendFrame(encode(TypeStateSync, StateSyncPayload{Seq: snap.Seq, State: snap.State}))
	c.logger.Info("player joined match",
		zap.String("player_id", c.playerID),
		zap.String("match_id", r.id),
		zap.String("side", string(side)),
	)
}
