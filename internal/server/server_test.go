package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openduel/duel-server/internal/catalog"
	"github.com/openduel/duel-server/internal/config"
	"github.com/openduel/duel-server/internal/game"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cat, err := catalog.New(catalog.BaseSet())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Server.RateLimitBudget = 1000
	h := NewHub(cfg, cat, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.bindContext(ctx)
	return h
}

func TestCreateMatchWhileRunStarting(t *testing.T) {
	cat, err := catalog.New(catalog.BaseSet())
	require.NoError(t, err)
	h := NewHub(config.Default(), cat, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	_, err = h.createMatch("match-1", "alice", "bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.matchContext() == ctx
	}, time.Second, 5*time.Millisecond, "Run must bind its context for later matches")
}

func TestRateLimiterFixedWindow(t *testing.T) {
	rl := &rateLimiter{window: time.Second, budget: 3}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, rl.allow(now))
	assert.True(t, rl.allow(now.Add(100*time.Millisecond)))
	assert.True(t, rl.allow(now.Add(200*time.Millisecond)))
	assert.False(t, rl.allow(now.Add(300*time.Millisecond)), "over budget within the window")

	// A new window resets the counter.
	assert.True(t, rl.allow(now.Add(1100*time.Millisecond)))
}

func TestEncodeEnvelope(t *testing.T) {
	frame := encode(TypeToast, ToastPayload{Message: "hi"})

	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, TypeToast, env.Type)

	var p ToastPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "hi", p.Message)
}

func TestCreateMatchRegistersRoom(t *testing.T) {
	h := newTestHub(t)

	m, err := h.createMatch("match-1", "alice", "bob")
	require.NoError(t, err)

	r, ok := h.room("match-1")
	require.True(t, ok)
	assert.Same(t, m, r.m)
	assert.NotEmpty(t, m.Seed())

	side, ok := m.SideOf("alice")
	require.True(t, ok)
	assert.Equal(t, game.SideA, side)
}

// wsClient is a thin test wrapper over one dialed connection.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWS(t *testing.T, url string) *wsClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) sendEnvelope(msgType string, seq uint64, nonce string, payload any) {
	c.t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(c.t, err)
		raw = b
	}
	require.NoError(c.t, c.conn.WriteJSON(Envelope{Type: msgType, Seq: seq, Nonce: nonce, Payload: raw}))
}

// awaitType reads frames until one of the wanted type arrives, skipping
// interleaved syncs and results.
func (c *wsClient) awaitType(msgType string) Envelope {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for i := 0; i < 64; i++ {
		c.conn.SetReadDeadline(deadline)
		var env Envelope
		require.NoError(c.t, c.conn.ReadJSON(&env), "waiting for %s", msgType)
		if env.Type == msgType {
			return env
		}
	}
	c.t.Fatalf("no %s frame within 64 messages", msgType)
	return Envelope{}
}

// awaitState reads state syncs until one satisfies pred, returning the
// decoded state.
func (c *wsClient) awaitState(pred func(*game.State) bool) *game.State {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for i := 0; i < 64; i++ {
		c.conn.SetReadDeadline(deadline)
		var env Envelope
		require.NoError(c.t, c.conn.ReadJSON(&env))
		if env.Type != TypeStateSync {
			continue
		}
		var sync StateSyncPayload
		require.NoError(c.t, json.Unmarshal(env.Payload, &sync))
		st := &game.State{}
		require.NoError(c.t, json.Unmarshal(sync.State, st))
		if pred(st) {
			return st
		}
	}
	c.t.Fatal("no state sync matched")
	return nil
}

func TestWebSocketMatchFlow(t *testing.T) {
	h := newTestHub(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	alice := dialWS(t, url)
	bob := dialWS(t, url)

	alice.sendEnvelope(TypeJoinMatch, 0, "", JoinMatchPayload{MatchID: "auto", PlayerID: "alice"})
	alice.awaitType(TypeWaiting)

	bob.sendEnvelope(TypeJoinMatch, 0, "", JoinMatchPayload{MatchID: "auto", PlayerID: "bob"})

	var aliceJoined, bobJoined JoinedPayload
	require.NoError(t, json.Unmarshal(alice.awaitType(TypeJoined).Payload, &aliceJoined))
	require.NoError(t, json.Unmarshal(bob.awaitType(TypeJoined).Payload, &bobJoined))
	assert.Equal(t, game.SideA, aliceJoined.Side, "first-in is side A")
	assert.Equal(t, game.SideB, bobJoined.Side)
	assert.Equal(t, aliceJoined.MatchID, bobJoined.MatchID)

	alice.sendEnvelope(TypeReady, 0, "", nil)
	bob.sendEnvelope(TypeReady, 0, "", nil)

	st := bob.awaitState(func(st *game.State) bool {
		return st.Stage == game.StageMulligan && len(st.Players[game.SideA].Hand) > 0
	})
	assert.Len(t, st.Players[game.SideA].Hand, 4)
	assert.Len(t, st.Players[game.SideB].Hand, 5, "second player holds the coin")
	assert.NotNil(t, st.Timers.MulliganEndsAt)

	alice.sendEnvelope(TypeMulliganApply, 1, "a-1", nil)
	bob.sendEnvelope(TypeMulliganApply, 1, "b-1", nil)

	st = alice.awaitState(func(st *game.State) bool { return st.Stage == game.StagePlay })
	assert.Equal(t, game.SideA, st.Turn.Current)
	assert.Equal(t, game.PhaseMain, st.Turn.Phase)
	assert.Equal(t, 1, st.Players[game.SideA].Mana.Current)

	// Turn passes to B on end_turn.
	alice.sendEnvelope(TypeEndTurn, 2, "a-2", nil)
	var res ActionResultPayload
	require.NoError(t, json.Unmarshal(alice.awaitType(TypeActionResult).Payload, &res))
	assert.True(t, res.OK)
	assert.True(t, res.StateChanged)
	assert.Equal(t, uint64(2), res.Seq)

	// B acting out of turn gets a clean rejection, not a dropped
	// connection.
	bob.sendEnvelope(TypeEndTurn, 2, "b-2", nil)
	require.NoError(t, json.Unmarshal(bob.awaitType(TypeActionResult).Payload, &res))
	assert.True(t, res.OK, "it became B's turn after A ended")

	// Emotes are relayed to the peer only.
	bob.sendEnvelope(TypeEmote, 0, "", EmotePayload{Kind: "greetings"})
	var emote EmoteRelayPayload
	require.NoError(t, json.Unmarshal(alice.awaitType(TypeEmote).Payload, &emote))
	assert.Equal(t, "bob", emote.From)
	assert.Equal(t, "greetings", emote.Kind)
}

func TestWebSocketMalformedJSONKeepsConnection(t *testing.T) {
	h := newTestHub(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := dialWS(t, url)
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	var toast ToastPayload
	require.NoError(t, json.Unmarshal(c.awaitType(TypeToast).Payload, &toast))
	assert.Equal(t, "malformed message", toast.Message)

	// The connection still works afterwards.
	c.sendEnvelope(TypeJoinMatch, 0, "", JoinMatchPayload{MatchID: "auto", PlayerID: "solo"})
	c.awaitType(TypeWaiting)
}

func TestWebSocketCommandBeforeJoin(t *testing.T) {
	h := newTestHub(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := dialWS(t, url)
	c.sendEnvelope(TypeEndTurn, 1, "n-1", nil)

	var toast ToastPayload
	require.NoError(t, json.Unmarshal(c.awaitType(TypeToast).Payload, &toast))
	assert.Equal(t, "join a match first", toast.Message)
}

func TestWebSocketPeerLeftOnDisconnect(t *testing.T) {
	h := newTestHub(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	alice := dialWS(t, url)
	bob := dialWS(t, url)

	alice.sendEnvelope(TypeJoinMatch, 0, "", JoinMatchPayload{MatchID: "auto", PlayerID: "alice"})
	alice.awaitType(TypeWaiting)
	bob.sendEnvelope(TypeJoinMatch, 0, "", JoinMatchPayload{MatchID: "auto", PlayerID: "bob"})
	bob.awaitType(TypeJoined)
	alice.awaitType(TypeJoined)

	bob.conn.Close()
	alice.awaitType(TypePeerLeft)
}
