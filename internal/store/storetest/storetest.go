// Package storetest holds the behavioural suite every store.Backend must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// Run exercises b against the Backend contract. newBackend must return an
// empty backend for every call. Every payload passes validation, so
// backends that validate server-side run the same suite.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Run("CreateAppendsAndAssignsMetadata", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		first, err := b.Create(ctx, types.KindPillar, map[string]any{
			"id": "client-guess", "order": 99, "title": "Calidad", "description": "d",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.NotEqual(t, "client-guess", first.ID)
		assert.Equal(t, 1, first.Order)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Equal(t, "Calidad", first.Title())
		assert.True(t, first.Enabled())

		second, err := b.Create(ctx, types.KindPillar, Fields(types.KindPillar, "Seguridad"))
		require.NoError(t, err)
		assert.Equal(t, 2, second.Order)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("ListSortedAndScopedByKind", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		ids := seed(t, b, types.KindStatistic, "a", "b", "c")
		_, err := b.Create(ctx, types.KindPolicy, Fields(types.KindPolicy, "other"))
		require.NoError(t, err)

		require.NoError(t, b.Reorder(ctx, types.KindStatistic, []store.OrderEntry{
			{ID: ids[2], Order: 1}, {ID: ids[0], Order: 2}, {ID: ids[1], Order: 3},
		}))

		recs, err := b.List(ctx, types.KindStatistic)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, []string{"c", "a", "b"}, titles(recs))
		assert.Equal(t, []int{1, 2, 3}, orders(recs))

		empty, err := b.List(ctx, types.KindProject)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("GetAndUpdateMergePatch", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		rec, err := b.Create(ctx, types.KindService, map[string]any{
			"title":       "Diseño",
			"description": "Proyectos llave en mano",
			"cta":         map[string]any{"text": "Ver", "url": "/a"},
		})
		require.NoError(t, err)

		updated, err := b.Update(ctx, types.KindService, rec.ID, types.Patch{
			"cta":   map[string]any{"text": "Cotizar"},
			"order": 7,
		})
		require.NoError(t, err)
		assert.Equal(t, rec.ID, updated.ID)
		assert.Equal(t, 1, updated.Order, "order only changes through reorder")
		assert.Equal(t, map[string]any{"text": "Cotizar", "url": "/a"}, updated.Fields["cta"])
		assert.Equal(t, "Diseño", updated.Title())
		assert.False(t, updated.UpdatedAt.Before(rec.UpdatedAt))

		got, err := b.Get(ctx, types.KindService, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.Fields, got.Fields)
	})

	t.Run("NotFound", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		_, err := b.Get(ctx, types.KindPillar, "missing")
		assert.True(t, store.IsNotFound(err))
		_, err = b.Update(ctx, types.KindPillar, "missing", types.Patch{"title": "x"})
		assert.True(t, store.IsNotFound(err))
		assert.True(t, store.IsNotFound(b.Delete(ctx, types.KindPillar, "missing")))

		ids := seed(t, b, types.KindPillar, "a")
		_, err = b.Get(ctx, types.KindPolicy, ids[0])
		assert.True(t, store.IsNotFound(err), "ids are scoped by kind")
	})

	t.Run("DeleteThenReorder", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		ids := seed(t, b, types.KindProject, "a", "b", "c")

		require.NoError(t, b.Delete(ctx, types.KindProject, ids[0]))
		require.NoError(t, b.Reorder(ctx, types.KindProject, []store.OrderEntry{
			{ID: ids[1], Order: 1}, {ID: ids[2], Order: 2},
		}))

		recs, err := b.List(ctx, types.KindProject)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, titles(recs))
		assert.Equal(t, []int{1, 2}, orders(recs))

		next, err := b.Create(ctx, types.KindProject, Fields(types.KindProject, "d"))
		require.NoError(t, err)
		assert.Equal(t, 3, next.Order)
	})

	t.Run("ReorderIsAllOrNothing", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)
		ids := seed(t, b, types.KindStatistic, "a", "b", "c")

		bad := [][]store.OrderEntry{
			{{ID: ids[0], Order: 2}, {ID: ids[1], Order: 1}},
			{{ID: ids[0], Order: 1}, {ID: ids[1], Order: 1}, {ID: ids[2], Order: 3}},
			{{ID: ids[0], Order: 1}, {ID: ids[1], Order: 2}, {ID: ids[2], Order: 4}},
			{{ID: ids[0], Order: 3}, {ID: ids[0], Order: 1}, {ID: ids[2], Order: 2}},
			{{ID: ids[0], Order: 3}, {ID: "x", Order: 1}, {ID: ids[2], Order: 2}},
		}
		for _, entries := range bad {
			err := b.Reorder(ctx, types.KindStatistic, entries)
			assert.True(t, store.IsConflict(err), "%v: %v", entries, err)
		}

		recs, err := b.List(ctx, types.KindStatistic)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, titles(recs))
		assert.Equal(t, []int{1, 2, 3}, orders(recs))
	})
}

// Fields returns a create payload for kind k that passes validation.
func Fields(k types.Kind, title string) map[string]any {
	m := map[string]any{"title": title, "description": "Descripción de " + title}
	switch k {
	case types.KindStatistic:
		m["value"] = 10
		m["icon"] = "Award"
		m["label"] = "Proyectos"
		m["suffix"] = "+"
	case types.KindProject:
		m["name"] = title
		m["type"] = types.ProjectCommercial
		m["image_url"] = "/images/proyectos/" + title + ".jpg"
	}
	return m
}

func seed(t *testing.T, b store.Backend, k types.Kind, titles ...string) []string {
	t.Helper()
	ids := make([]string, len(titles))
	for i, title := range titles {
		rec, err := b.Create(context.Background(), k, Fields(k, title))
		require.NoError(t, err)
		ids[i] = rec.ID
	}
	return ids
}

func titles(recs []types.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title()
	}
	return out
}

func orders(recs []types.Record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Order
	}
	return out
}
