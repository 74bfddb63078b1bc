package eventbus

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/types"
)

func TestBus_DispatchInOrder(t *testing.T) {
	bus := New(8, slog.New(slog.DiscardHandler))
	var (
		mu  sync.Mutex
		got []string
	)
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.EventType)
		return nil
	}))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Start(context.Background())

	ctx := context.Background()
	bus.Publish(ctx, event.NewElementDeleted(types.KindPillar, "a"))
	bus.Publish(ctx, event.NewElementsReordered(types.KindPillar, []string{"b", "c"}))
	bus.Stop()

	assert.Equal(t, []string{event.TypeElementDeleted, event.TypeElementsReordered}, got)
}

func TestBus_DropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	bus := New(1, slog.New(slog.NewTextHandler(&buf, nil)))

	ctx := context.Background()
	bus.Publish(ctx, event.NewElementDeleted(types.KindPolicy, "a"))
	bus.Publish(ctx, event.NewElementDeleted(types.KindPolicy, "b"))

	assert.Contains(t, buf.String(), "buffer full")
	bus.Start(ctx)
	bus.Stop()
}

func TestBus_DrainsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := New(4, nil)
	var count int
	var mu sync.Mutex
	bus.Subscribe("count", HandlerFunc(func(context.Context, event.DomainEvent) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for range 3 {
		bus.Publish(ctx, event.NewElementDeleted(types.KindService, "x"))
	}
	cancel()
	bus.Start(ctx)
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count)
}

func TestLogConsumer(t *testing.T) {
	var buf bytes.Buffer
	c := NewLogConsumer(slog.New(slog.NewTextHandler(&buf, nil)))

	rec := types.Record{ID: "abc", Order: 2, Fields: map[string]any{"title": "Calidad"}}
	require.NoError(t, c.HandleEvent(context.Background(), event.NewElementCreated(types.KindPillar, rec)))

	out := buf.String()
	assert.Contains(t, out, "event_type=element_created")
	assert.Contains(t, out, "kind=pillar")
	assert.Contains(t, out, "abc")
}
