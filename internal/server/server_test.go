package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/activity"
	"github.com/matthewbaird/sitecontent/internal/event"
	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

type testEnv struct {
	handler  http.Handler
	backend  *store.MemoryBackend
	activity *activity.MemoryStore
}

func newTestEnv(t *testing.T, origins ...string) *testEnv {
	t.Helper()
	v, err := validate.Default()
	require.NoError(t, err)
	env := &testEnv{
		backend:  store.NewMemoryBackend(),
		activity: activity.NewMemoryStore(),
	}
	env.handler = NewHandler(Config{
		AllowedOrigins: origins,
		Backend:        env.backend,
		Activity:       env.activity,
		Validator:      v,
		Recorder:       event.NewActivityRecorder(env.activity),
		Logger:         slog.New(slog.DiscardHandler),
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func pillar(title string) map[string]any {
	return map[string]any{"title": title, "description": "Descripción de " + title, "icon": "Shield"}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSchemaEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Kinds []map[string]any `json:"kinds"`
		Icons []string         `json:"icons"`
	}](t, rec)
	require.Len(t, body.Kinds, 5)
	assert.Equal(t, "statistics", body.Kinds[0]["resource"])
	assert.Contains(t, body.Icons, "Users")
}

func TestElementLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pillars", pillar("Calidad"), "X-Actor", "ana")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.Record](t, rec)
	assert.Equal(t, 1, created.Order)

	rec = env.do(t, http.MethodPatch, "/api/pillars/"+created.ID, map[string]any{"title": "Calidad total"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Calidad total", decode[types.Record](t, rec).Title())

	rec = env.do(t, http.MethodPut, "/api/pillars/"+created.ID, map[string]any{"icon": "Star"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Star", decode[types.Record](t, rec).Fields["icon"])

	rec = env.do(t, http.MethodGet, "/api/pillars/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/pillars/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/pillars", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/pillars/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries, _, total, err := env.activity.QueryByElement(context.Background(), types.KindPillar, created.ID, activity.DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, event.TypeElementDeleted, entries[0].EventType)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pillars", map[string]any{"description": "sin título"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "Título es requerido", body.Fields["title"])
	assert.Zero(t, env.backend.Count(types.KindPillar))

	rec = env.do(t, http.MethodPost, "/api/statistics", map[string]any{
		"title": "Clientes", "value": "-3", "icon": "Users", "label": "clientes", "suffix": "+",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]any](t, rec)["fields"], "value")

	rec = env.do(t, http.MethodPost, "/api/statistics", map[string]any{
		"title": "Clientes", "value": "250", "icon": "Users", "label": "clientes", "suffix": "+",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 250.0, decode[types.Record](t, rec).Fields["value"])
}

func TestWrongFieldTypesAreRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pillars", map[string]any{"title": 123, "description": "d"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"title": "Título debe ser texto"}, decode[map[string]any](t, rec)["fields"])
	assert.Zero(t, env.backend.Count(types.KindPillar))

	rec = env.do(t, http.MethodPost, "/api/services", map[string]any{
		"title": "Diseño", "description": "Ingeniería", "cta": map[string]any{"text": "Cotizar", "url": "/contacto"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[types.Record](t, rec).ID

	rec = env.do(t, http.MethodPatch, "/api/services/"+id, map[string]any{"cta": "Cotizar"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"cta": "cta debe ser un objeto"}, decode[map[string]any](t, rec)["fields"])

	rec = env.do(t, http.MethodGet, "/api/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]types.Record](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, map[string]any{"text": "Cotizar", "url": "/contacto"}, list[0].Fields["cta"])
}

func TestUpdateValidatesMergedElement(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/pillars", pillar("Calidad"))
	created := decode[types.Record](t, rec)

	rec = env.do(t, http.MethodPatch, "/api/pillars/"+created.ID, map[string]any{"description": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/pillars/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/pillars/"+created.ID, "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReorder(t *testing.T) {
	env := newTestEnv(t)
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		rec := env.do(t, http.MethodPost, "/api/pillars", pillar(title))
		ids = append(ids, decode[types.Record](t, rec).ID)
	}

	rec := env.do(t, http.MethodPut, "/api/pillars/reorder", store.ReorderRequest{Items: []store.OrderEntry{
		{ID: ids[2], Order: 1}, {ID: ids[0], Order: 2}, {ID: ids[1], Order: 3},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]types.Record](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)

	rec = env.do(t, http.MethodPut, "/api/pillars/reorder", store.ReorderRequest{Items: []store.OrderEntry{
		{ID: ids[0], Order: 1},
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REORDER_CONFLICT", decode[map[string]any](t, rec)["code"])

	entries, total, err := env.activity.Search(context.Background(), "Reordered", activity.DefaultSearchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, total, "one row per reorder event")
	assert.Equal(t, event.TypeElementsReordered, entries[0].EventType)
}

func TestActivityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/pillars", pillar("Calidad"))
	id := decode[types.Record](t, rec).ID
	env.do(t, http.MethodPost, "/api/policies", pillar("Ambiental"))

	rec = env.do(t, http.MethodGet, "/api/activity?kind=pillars&element_id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Entries []types.ActivityEntry `json:"entries"`
		Total   int                   `json:"total"`
	}](t, rec)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, id, body.Entries[0].ElementID)

	rec = env.do(t, http.MethodGet, "/api/activity?q=ambiental", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["total"])

	rec = env.do(t, http.MethodGet, "/api/activity?kind=widgets", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/activity?element_id="+id, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, "https://admin.example.com")

	rec := env.do(t, http.MethodGet, "/api/pillars", nil, "Origin", "https://admin.example.com")
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodGet, "/api/pillars", nil, "Origin", "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownResource(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/widgets", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
