// Package server is the WebSocket transport in front of the match core:
// it decodes client envelopes, feeds commands into lobby and match, and
// broadcasts authoritative state to every connection of a match.
package server

import (
	"encoding/json"

	"github.com/openduel/duel-server/internal/game"
)

// Message type discriminators, client to server.
const (
	TypeJoinMatch       = "join_match"
	TypeReady           = "ready"
	TypePlayCard        = "play_card"
	TypeEndTurn         = "end_turn"
	TypeAttack          = "attack"
	TypeEmote           = "emote"
	TypeMulliganReplace = "mulligan_replace"
	TypeMulliganApply   = "mulligan_apply"
)

// Message type discriminators, server to client.
const (
	TypeJoined       = "joined"
	TypeWaiting      = "waiting"
	TypeActionResult = "action_result"
	TypeStateSync    = "state_sync"
	TypeGameOver     = "game_over"
	TypeToast        = "toast"
	TypePeerLeft     = "peer_left"
)

// Envelope is the wire frame for every message in both directions.
// Mutating commands carry a per-connection strictly increasing Seq and an
// opaque Nonce.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Nonce   string          `json:"nonce,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinMatchPayload binds a player and requests a match. MatchID "auto"
// enters the pairing queue; a concrete id rejoins an existing match.
type JoinMatchPayload struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id,omitempty"`
}

// PlayCardPayload plays a hand card, optionally targeted and placed.
type PlayCardPayload struct {
	CardID    string         `json:"card_id"`
	Target    *game.Target   `json:"target,omitempty"`
	Placement game.Placement `json:"placement,omitempty"`
}

// AttackPayload declares an attack by a board minion.
type AttackPayload struct {
	AttackerID string      `json:"attacker_id"`
	Target     game.Target `json:"target"`
}

// EmotePayload is relayed to the peer without touching game state.
type EmotePayload struct {
	Kind string `json:"kind"`
}

// MulliganReplacePayload swaps one opening-hand card.
type MulliganReplacePayload struct {
	CardID string `json:"card_id"`
}

// JoinedPayload confirms a match binding.
type JoinedPayload struct {
	MatchID  string    `json:"match_id"`
	PlayerID string    `json:"player_id"`
	Side     game.Side `json:"side"`
}

// ActionResultPayload mirrors the match handler result, echoing the
// command seq so clients can correlate replies.
type ActionResultPayload struct {
	Seq          uint64 `json:"seq,omitempty"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
	StateChanged bool   `json:"state_changed"`
	Duplicate    bool   `json:"duplicate,omitempty"`
}

// StateSyncPayload carries the full authoritative snapshot; there is no
// delta protocol.
type StateSyncPayload struct {
	Seq   uint64          `json:"seq"`
	State json.RawMessage `json:"state"`
}

// GameOverPayload announces the winner.
type GameOverPayload struct {
	Winner game.Side `json:"winner"`
}

// ToastPayload is a non-fatal notice shown to the player.
type ToastPayload struct {
	Message string `json:"message"`
}

// EmoteRelayPayload forwards a peer emote.
type EmoteRelayPayload struct {
	From string `json:"from"`
	Kind string `json:"kind"`
}

// encode marshals an envelope with its payload; marshal failures are
// programming errors and yield an empty frame.
func encode(msgType string, payload any) []byte {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return []byte(`{"type":"` + TypeToast + `"}`)
		}
		raw = b
	}
	b, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return []byte(`{"type":"` + TypeToast + `"}`)
	}
	return b
}
