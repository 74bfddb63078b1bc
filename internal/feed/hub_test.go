package feed

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/types"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(8)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) ServerMessage {
	t.Helper()
	var msg ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestHub_StreamsSubscribedKinds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub, url := newTestHub(t)
	conn := dial(t, ctx, url)

	msg := read(t, ctx, conn)
	require.Equal(t, TypeSession, msg.Type)
	assert.Equal(t, 1, hub.Sessions().Len())

	data, _ := json.Marshal(SubscribeData{Kinds: []types.Kind{types.KindPillar}})
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: TypeSubscribe, ID: "s1", Data: data}))
	ack := read(t, ctx, conn)
	assert.Equal(t, TypeSubscribed, ack.Type)
	assert.Equal(t, "s1", ack.RequestID)

	require.NoError(t, hub.HandleEvent(ctx, event.NewElementDeleted(types.KindStatistic, "s-1")))
	require.NoError(t, hub.HandleEvent(ctx, event.NewElementDeleted(types.KindPillar, "p-1")))

	got := read(t, ctx, conn)
	require.Equal(t, TypeEvent, got.Type)
	evt, err := got.DecodeEvent()
	require.NoError(t, err)
	assert.Equal(t, types.KindPillar, evt.Kind)
	assert.Equal(t, event.TypeElementDeleted, evt.EventType)
}

func TestHub_PingAndErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, url := newTestHub(t)
	conn := dial(t, ctx, url)
	read(t, ctx, conn)

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: TypePing, ID: "p"}))
	assert.Equal(t, TypePong, read(t, ctx, conn).Type)

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "bogus", ID: "b"}))
	msg := read(t, ctx, conn)
	assert.Equal(t, TypeError, msg.Type)

	data, _ := json.Marshal(SubscribeData{Kinds: []types.Kind{"widget"}})
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: TypeSubscribe, ID: "s", Data: data}))
	msg = read(t, ctx, conn)
	require.Equal(t, TypeError, msg.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, "unknown_kind", e.Code)
}

func TestManager_BroadcastDropsWhenFull(t *testing.T) {
	m := NewManager(1)
	s := m.Create()
	evt := event.NewElementDeleted(types.KindPolicy, "x")

	assert.Equal(t, 0, m.Broadcast(evt))
	assert.Equal(t, 1, m.Broadcast(evt))
	assert.EqualValues(t, 1, s.Dropped())

	s.Subscribe([]types.Kind{types.KindProject})
	assert.False(t, s.Wants(types.KindPolicy))
	assert.Equal(t, 0, m.Broadcast(evt))

	m.Remove(s.ID)
	assert.Equal(t, 0, m.Len())
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub, url := newTestHub(t)

	stop := errors.New("stop")
	got := make(chan event.DomainEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, url, []types.Kind{types.KindService}, func(evt event.DomainEvent) error {
			got <- evt
			return stop
		})
	}()

	// Keep publishing until the subscription is in place.
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case evt := <-got:
			assert.Equal(t, types.KindService, evt.Kind)
			assert.ErrorIs(t, <-done, stop)
			return
		case <-tick.C:
			hub.HandleEvent(ctx, event.NewElementsReordered(types.KindService, []string{"a", "b"}))
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestURL(t *testing.T) {
	u, err := URL("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/events/ws", u)

	u, err = URL("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/api/events/ws", u)

	_, err = URL("ftp://example.com")
	assert.Error(t, err)
}
