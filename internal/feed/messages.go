package feed

import (
	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// Message types.
const (
	TypeSubscribe  = "subscribe"
	TypePing       = "ping"
	TypeSession    = "session"
	TypeSubscribed = "subscribed"
	TypeEvent      = "event"
	TypePong       = "pong"
	TypeError      = "error"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "subscribe", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribeData is the payload for "subscribe" messages. An empty list
// subscribes to every kind.
type SubscribeData struct {
	Kinds []types.Kind `json:"kinds"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string          `json:"type"`                 // "session", "subscribed", "event", "pong", "error"
	RequestID string          `json:"request_id,omitempty"` // Echoes client ID
	Data      json.RawMessage `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeEvent returns the domain event carried by an "event" message.
func (m ServerMessage) DecodeEvent() (event.DomainEvent, error) {
	var evt event.DomainEvent
	err := json.Unmarshal(m.Data, &evt)
	return evt, err
}

func newMessage(typ, requestID string, data any) ServerMessage {
	msg := ServerMessage{Type: typ, RequestID: requestID}
	if data != nil {
		b, _ := json.Marshal(data)
		msg.Data = b
	}
	return msg
}
