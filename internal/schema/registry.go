// Package schema provides the element type registry.
//
// The registry is decoded once from the embedded CUE definitions (registry.cue)
// and consumed by the field validator, the REST handlers (schema endpoint and
// server-side re-validation), the admin CLI and the OpenAPI generator.
package schema

import (
	"github.com/matthewbaird/sitecontent/internal/types"
)

// FieldType classifies how a field is edited and validated.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldIcon     FieldType = "icon"
	FieldURL      FieldType = "url"
	FieldImage    FieldType = "image"
)

// Valid reports whether ft is a known field type.
func (ft FieldType) Valid() bool {
	switch ft {
	case FieldText, FieldTextarea, FieldNumber, FieldSelect, FieldIcon, FieldURL, FieldImage:
		return true
	default:
		return false
	}
}

// IsLink returns true for field types whose value must be a URL or a site path.
func (ft FieldType) IsLink() bool {
	return ft == FieldURL || ft == FieldImage
}

// Bounds holds the optional numeric limits of a number field.
type Bounds struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// FieldMeta describes a single editable field of a kind.
type FieldMeta struct {
	Key         string    `json:"key"` // dotted for nested values, e.g. "cta.text"
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Validation  *Bounds   `json:"validation,omitempty"`
	Options     []string  `json:"options,omitempty"` // non-nil for select fields
}

// KindSchema holds the complete metadata for one element kind.
type KindSchema struct {
	Kind        types.Kind  `json:"kind"`
	Singular    string      `json:"singular"`
	Plural      string      `json:"plural"`
	Description string      `json:"description"`
	Resource    string      `json:"resource"`
	Fields      []FieldMeta `json:"fields"` // in form order
}

// Field returns the field with the given key, or nil.
func (ks *KindSchema) Field(key string) *FieldMeta {
	for i := range ks.Fields {
		if ks.Fields[i].Key == key {
			return &ks.Fields[i]
		}
	}
	return nil
}

// RequiredKeys lists the keys of the required fields in form order.
func (ks *KindSchema) RequiredKeys() []string {
	var keys []string
	for _, f := range ks.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Registry holds schema metadata for all kinds. It is immutable once built and
// safe for concurrent read access.
type Registry struct {
	kinds map[types.Kind]*KindSchema
	order []types.Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[types.Kind]*KindSchema)}
}

// Register adds a kind schema. Only used while building the registry.
func (r *Registry) Register(ks *KindSchema) {
	if _, exists := r.kinds[ks.Kind]; !exists {
		r.order = append(r.order, ks.Kind)
	}
	r.kinds[ks.Kind] = ks
}

// Kind returns the schema for k, or nil if not registered.
func (r *Registry) Kind(k types.Kind) *KindSchema {
	return r.kinds[k]
}

// Kinds returns every registered schema in definition order.
func (r *Registry) Kinds() []*KindSchema {
	out := make([]*KindSchema, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.kinds[k])
	}
	return out
}

// Field returns the field meta for kind k and key, or nil.
func (r *Registry) Field(k types.Kind, key string) *FieldMeta {
	ks := r.kinds[k]
	if ks == nil {
		return nil
	}
	return ks.Field(key)
}
