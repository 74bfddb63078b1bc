// Package feed streams domain events to dashboard clients over WebSocket.
// The feed is notification-only: clients reload the affected collection
// through the REST API when an event arrives.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// Hub fans domain events out to the connected sessions. It is an event bus
// handler and an http.Handler for the WebSocket endpoint.
type Hub struct {
	sessions *Manager
	origins  []string
	log      *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithOriginPatterns sets the origins allowed to open a feed. Defaults to any.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a hub whose sessions buffer up to buf events each.
func NewHub(buf int, opts ...Option) *Hub {
	h := &Hub{
		sessions: NewManager(buf),
		origins:  []string{"*"},
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Sessions exposes the session manager.
func (h *Hub) Sessions() *Manager { return h.sessions }

// RegisterRoutes registers the feed endpoint on the given router.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/api/events/ws", h.ServeHTTP)
}

// HandleEvent implements eventbus.Handler.
func (h *Hub) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if n := h.sessions.Broadcast(evt); n > 0 {
		h.log.WarnContext(ctx, "feed: slow sessions dropped event",
			"event_type", evt.EventType,
			"sessions", n,
		)
	}
	return nil
}

// ServeHTTP upgrades to WebSocket and streams events until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn("feed: websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	sess := h.sessions.Create()
	defer h.sessions.Remove(sess.ID)
	if kinds := parseKinds(r.URL.Query()["kind"]); len(kinds) > 0 {
		sess.Subscribe(kinds)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.send(ctx, conn, newMessage(TypeSession, "", SessionData{SessionID: sess.ID}))

	go func() {
		defer cancel()
		h.readLoop(ctx, conn, sess)
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt := <-sess.events:
			if err := wsjson.Write(ctx, conn, newMessage(TypeEvent, "", evt)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, sess *Session) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.log.Debug("feed: read error", "session", sess.ID, "error", err)
			}
			return
		}

		switch msg.Type {
		case TypeSubscribe:
			var data SubscribeData
			if len(msg.Data) > 0 {
				if err := json.Unmarshal(msg.Data, &data); err != nil {
					h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid subscribe data")
					continue
				}
			}
			if k, ok := firstInvalid(data.Kinds); ok {
				h.sendError(ctx, conn, msg.ID, "unknown_kind", "unknown kind: "+string(k))
				continue
			}
			sess.Subscribe(data.Kinds)
			h.send(ctx, conn, newMessage(TypeSubscribed, msg.ID, data))
		case TypePing:
			h.send(ctx, conn, newMessage(TypePong, msg.ID, nil))
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", "unknown message type: "+msg.Type)
		}
	}
}

func (h *Hub) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug("feed: write error", "error", err)
	}
}

func (h *Hub) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, newMessage(TypeError, requestID, ErrorData{Code: code, Message: message}))
}

func parseKinds(values []string) []types.Kind {
	var out []types.Kind
	for _, v := range values {
		if k, err := types.ParseKind(v); err == nil {
			out = append(out, k)
		}
	}
	return out
}

func firstInvalid(kinds []types.Kind) (types.Kind, bool) {
	for _, k := range kinds {
		if !k.Valid() {
			return k, true
		}
	}
	return "", false
}
