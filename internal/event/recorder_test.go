package event

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/activity"
	"github.com/matthewbaird/sitecontent/internal/types"
)

type capture struct{ events []DomainEvent }

func (c *capture) Publish(_ context.Context, evt DomainEvent) { c.events = append(c.events, evt) }

func TestActivityRecorder_FansOutReorder(t *testing.T) {
	ctx := context.Background()
	store := activity.NewMemoryStore()
	pub := &capture{}
	rec := NewActivityRecorder(store)
	rec.SetPublisher(pub)

	evt := NewElementsReordered(types.KindStatistic, []string{"b", "a"})
	require.NoError(t, rec.Record(ctx, evt))

	require.Len(t, pub.events, 1)
	assert.Equal(t, evt.ID, pub.events[0].ID)

	for _, id := range []string{"a", "b"} {
		entries, _, total, err := store.QueryByElement(ctx, types.KindStatistic, id, activity.DefaultQueryOptions())
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "sibling", entries[0].Role)
		assert.Len(t, entries[0].SourceRefs, 2)
	}

	var payload ElementsReorderedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, []string{"b", "a"}, payload.IDs)
}

func TestEventConstructors(t *testing.T) {
	rec := types.Record{ID: "p1", Order: 3, Fields: map[string]any{"title": "Calidad"}}

	created := NewElementCreated(types.KindPillar, rec)
	assert.Equal(t, TypeElementCreated, created.EventType)
	assert.Equal(t, `Created pillar "Calidad" at position 3`, created.Summary)

	updated := NewElementUpdated(types.KindPillar, rec, types.Patch{"title": "x", "icon": "Star"})
	var up ElementUpdatedPayload
	require.NoError(t, json.Unmarshal(updated.Payload, &up))
	assert.Equal(t, []string{"icon", "title"}, up.Changed)

	deleted := NewElementDeleted(types.KindPillar, "p1")
	assert.Equal(t, "subject", deleted.AffectedElements[0].Role)
	assert.NotEqual(t, created.ID, deleted.ID)
	assert.Less(t, created.ID, deleted.ID, "ids sort by creation time")
}
