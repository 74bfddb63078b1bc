package main

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/sitecontent/internal/icons"
	"github.com/matthewbaird/sitecontent/internal/schema"
)

func generate(t *testing.T) map[string]any {
	t.Helper()
	doc := buildSpec(schema.MustDefault(), icons.MustDefault(), "http://localhost:8080")
	assert.Equal(t, 15, doc.pathCount)
	assert.Equal(t, 17, doc.schemaCount)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestBuildSpec_Paths(t *testing.T) {
	out := generate(t)
	assert.Equal(t, "3.1.0", out["openapi"])

	paths := out["paths"].(map[string]any)
	for _, p := range []string{"/api/statistics", "/api/pillars/reorder", "/api/projects/{id}"} {
		assert.Contains(t, paths, p)
	}
	item := paths["/api/services/{id}"].(map[string]any)
	assert.Contains(t, item, "patch")
	assert.Contains(t, item, "delete")
}

func TestBuildSpec_Schemas(t *testing.T) {
	schemas := generate(t)["components"].(map[string]any)["schemas"].(map[string]any)

	project := schemas["ProjectCreate"].(map[string]any)
	assert.ElementsMatch(t, []any{"name", "title", "type", "image_url"}, project["required"])
	props := project["properties"].(map[string]any)
	assert.Len(t, props["type"].(map[string]any)["enum"], 4)

	service := schemas["Service"].(map[string]any)["properties"].(map[string]any)
	cta := service["cta"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, cta, "text")
	assert.Contains(t, cta, "url")

	stat := schemas["Statistic"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, float64(0), stat["value"].(map[string]any)["minimum"])
	assert.Contains(t, stat["icon"].(map[string]any)["enum"], "Award")
}

func TestOrderedMapKeepsInsertionOrder(t *testing.T) {
	m := newOrderedMap()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":2}`, string(data))
}
