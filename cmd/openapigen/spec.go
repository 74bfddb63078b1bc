package main

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/icons"
	"github.com/matthewbaird/sitecontent/internal/schema"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// ─── Ordered JSON ────────────────────────────────────────────────────────────

type orderedMap struct {
	keys   []string
	values map[string]any
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]any)}
}

func (om *orderedMap) Set(key string, value any) {
	if _, exists := om.values[key]; !exists {
		om.keys = append(om.keys, key)
	}
	om.values[key] = value
}

func (om *orderedMap) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteString("{")
	for i, key := range om.keys {
		if i > 0 {
			buf.WriteString(",")
		}
		keyJSON, _ := json.Marshal(key)
		buf.Write(keyJSON)
		buf.WriteString(":")
		valJSON, err := json.Marshal(om.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteString("}")
	return []byte(buf.String()), nil
}

// document is the generated spec plus counts for the summary line.
type document struct {
	root        *orderedMap
	pathCount   int
	schemaCount int
}

func (d *document) MarshalJSON() ([]byte, error) { return d.root.MarshalJSON() }

// ─── Schemas ─────────────────────────────────────────────────────────────────

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

func fieldToSchema(f schema.FieldMeta, iconNames []string) map[string]any {
	s := map[string]any{"type": "string", "description": f.Label}
	switch f.Type {
	case schema.FieldNumber:
		s["type"] = "number"
		if b := f.Validation; b != nil {
			if b.Min != nil {
				s["minimum"] = *b.Min
			}
			if b.Max != nil {
				s["maximum"] = *b.Max
			}
		}
	case schema.FieldSelect:
		s["enum"] = f.Options
	case schema.FieldIcon:
		s["enum"] = iconNames
	case schema.FieldURL, schema.FieldImage:
		s["pattern"] = "^(http|/)"
	}
	if f.Placeholder != "" {
		s["examples"] = []string{f.Placeholder}
	}
	return s
}

// fieldProperties builds the properties of a kind. Dotted keys become nested
// objects; required lists the top-level keys with a required field.
func fieldProperties(ks *schema.KindSchema, iconNames []string) (*orderedMap, []string) {
	props := newOrderedMap()
	var required []string
	for _, f := range ks.Fields {
		parent, child, nested := strings.Cut(f.Key, ".")
		if !nested {
			props.Set(f.Key, fieldToSchema(f, iconNames))
			if f.Required {
				required = append(required, f.Key)
			}
			continue
		}
		obj, ok := props.values[parent].(*orderedMap)
		if !ok {
			obj = newOrderedMap()
			obj.Set("type", "object")
			obj.Set("properties", newOrderedMap())
			props.Set(parent, obj)
		}
		obj.values["properties"].(*orderedMap).Set(child, fieldToSchema(f, iconNames))
	}
	props.Set(types.FieldEnabled, map[string]any{"type": "boolean", "default": true})
	return props, required
}

func buildEntitySchema(ks *schema.KindSchema, iconNames []string) *orderedMap {
	s := newOrderedMap()
	s.Set("type", "object")
	s.Set("description", ks.Description)

	fields, required := fieldProperties(ks, iconNames)
	props := newOrderedMap()
	props.Set(types.FieldID, map[string]any{"type": "string", "format": "uuid"})
	props.Set(types.FieldOrder, map[string]any{"type": "integer", "minimum": 1})
	for _, k := range fields.keys {
		props.Set(k, fields.values[k])
	}
	props.Set(types.FieldCreatedAt, map[string]any{"type": "string", "format": "date-time"})
	props.Set(types.FieldUpdatedAt, map[string]any{"type": "string", "format": "date-time"})

	s.Set("properties", props)
	s.Set("required", append([]string{types.FieldID, types.FieldOrder}, required...))
	return s
}

func buildCreateSchema(ks *schema.KindSchema, iconNames []string) *orderedMap {
	s := newOrderedMap()
	s.Set("type", "object")
	props, required := fieldProperties(ks, iconNames)
	s.Set("properties", props)
	if len(required) > 0 {
		s.Set("required", required)
	}
	return s
}

func buildUpdateSchema(ks *schema.KindSchema, iconNames []string) *orderedMap {
	s := newOrderedMap()
	s.Set("type", "object")
	s.Set("description", "Fields to change. The merged element must still be valid.")
	props, _ := fieldProperties(ks, iconNames)
	s.Set("properties", props)
	return s
}

// ─── Paths ───────────────────────────────────────────────────────────────────

func jsonBody(schemaRef map[string]any) map[string]any {
	return map[string]any{
		"required": true,
		"content":  map[string]any{"application/json": map[string]any{"schema": schemaRef}},
	}
}

func response(desc string, schemaRef map[string]any) map[string]any {
	r := map[string]any{"description": desc}
	if schemaRef != nil {
		r["content"] = map[string]any{"application/json": map[string]any{"schema": schemaRef}}
	}
	return r
}

func listOf(name string) map[string]any {
	return map[string]any{"type": "array", "items": ref(name)}
}

var (
	errNotFound   = response("Element not found", ref("Error"))
	errValidation = response("Validation failed; fields maps keys to messages", ref("Error"))
	idParam       = []map[string]any{{
		"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"},
	}}
)

func kindPaths(paths *orderedMap, ks *schema.KindSchema, name string) {
	base := "/api/" + ks.Resource
	tag := []string{ks.Plural}

	collection := newOrderedMap()
	collection.Set("get", map[string]any{
		"operationId": "list" + name, "tags": tag, "summary": "List " + ks.Resource + " by order",
		"responses": map[string]any{"200": response("OK", listOf(name))},
	})
	collection.Set("post", map[string]any{
		"operationId": "create" + name, "tags": tag, "summary": "Create a " + string(ks.Kind) + " at the end",
		"requestBody": jsonBody(ref(name + "Create")),
		"responses": map[string]any{
			"201": response("Created", ref(name)),
			"400": errValidation,
		},
	})
	paths.Set(base, collection)

	reorder := newOrderedMap()
	reorder.Set("put", map[string]any{
		"operationId": "reorder" + name, "tags": tag,
		"summary":     "Assign orders 1..N to every " + string(ks.Kind),
		"requestBody": jsonBody(ref("ReorderRequest")),
		"responses": map[string]any{
			"200": response("Reordered list", listOf(name)),
			"409": response("Items are not a permutation of the collection", ref("Error")),
		},
	})
	paths.Set(base+"/reorder", reorder)

	item := newOrderedMap()
	item.Set("parameters", idParam)
	item.Set("get", map[string]any{
		"operationId": "get" + name, "tags": tag,
		"responses": map[string]any{"200": response("OK", ref(name)), "404": errNotFound},
	})
	item.Set("patch", map[string]any{
		"operationId": "update" + name, "tags": tag,
		"requestBody": jsonBody(ref(name + "Update")),
		"responses": map[string]any{
			"200": response("Updated", ref(name)),
			"400": errValidation,
			"404": errNotFound,
		},
	})
	item.Set("delete", map[string]any{
		"operationId": "delete" + name, "tags": tag,
		"description": "Remaining elements keep their orders until the next reorder.",
		"responses":   map[string]any{"204": response("Deleted", nil), "404": errNotFound},
	})
	paths.Set(base+"/{id}", item)
}

// ─── Document ────────────────────────────────────────────────────────────────

func buildSpec(reg *schema.Registry, catalog *icons.Catalog, serverURL string) *document {
	iconNames := catalog.Names()

	spec := newOrderedMap()
	spec.Set("openapi", "3.1.0")
	spec.Set("info", map[string]any{
		"title":       "Site Content API",
		"version":     "1.0.0",
		"description": "Manage the statistics, pillars, policies, services and projects of the public site. All endpoints accept/return JSON.",
	})
	spec.Set("servers", []map[string]any{
		{"url": serverURL, "description": "Local development"},
	})

	paths := newOrderedMap()
	schemas := newOrderedMap()
	for _, ks := range reg.Kinds() {
		name := typeName(ks.Kind)
		kindPaths(paths, ks, name)
		schemas.Set(name, buildEntitySchema(ks, iconNames))
		schemas.Set(name+"Create", buildCreateSchema(ks, iconNames))
		schemas.Set(name+"Update", buildUpdateSchema(ks, iconNames))
	}

	schemas.Set("ReorderRequest", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"order": map[string]any{"type": "integer", "minimum": 1},
					},
					"required": []string{"id", "order"},
				},
			},
		},
		"required": []string{"items"},
	})
	schemas.Set("Error", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"error":  map[string]any{"type": "string"},
			"code":   map[string]any{"type": "string"},
			"fields": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		},
		"required": []string{"error", "code"},
	})

	spec.Set("paths", paths)
	components := newOrderedMap()
	components.Set("schemas", schemas)
	spec.Set("components", components)

	return &document{root: spec, pathCount: len(paths.keys), schemaCount: len(schemas.keys)}
}

// typeName turns a kind into a schema name, e.g. "statistic" -> "Statistic".
func typeName(k types.Kind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
