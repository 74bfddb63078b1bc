package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// URL returns the feed endpoint for an API base URL such as
// "http://localhost:8080".
func URL(apiURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing api url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("api url %q must be http or https", apiURL)
	}
	return u.JoinPath("api", "events", "ws").String(), nil
}

// Watch connects to the feed at wsURL and calls fn for every event until ctx
// is done, the server closes the connection or fn returns an error.
func Watch(ctx context.Context, wsURL string, kinds []types.Kind, fn func(event.DomainEvent) error) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing feed: %w", err)
	}
	defer conn.CloseNow()

	if len(kinds) > 0 {
		data, _ := json.Marshal(SubscribeData{Kinds: kinds})
		if err := wsjson.Write(ctx, conn, ClientMessage{Type: TypeSubscribe, ID: "subscribe", Data: data}); err != nil {
			return fmt.Errorf("subscribing: %w", err)
		}
	}

	for {
		var msg ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}
		switch msg.Type {
		case TypeEvent:
			evt, err := msg.DecodeEvent()
			if err != nil {
				return fmt.Errorf("decoding event: %w", err)
			}
			if err := fn(evt); err != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return err
			}
		case TypeError:
			var e ErrorData
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				return errors.New("feed error")
			}
			return fmt.Errorf("feed error %s: %s", e.Code, e.Message)
		}
	}
}
