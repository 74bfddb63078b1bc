package types

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Keys owned by the store. They are never sent on create and never patched.
const (
	FieldID        = "id"
	FieldOrder     = "order"
	FieldEnabled   = "enabled"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is the kind-agnostic representation of an element: the store-owned
// metadata plus every other field flattened into Fields. It marshals to the
// same JSON object as the corresponding kind struct.
type Record struct {
	ID        string
	Order     int
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any
}

// MarshalJSON flattens the record into a single JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+4)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[FieldID] = r.ID
	out[FieldOrder] = r.Order
	out[FieldCreatedAt] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	out[FieldUpdatedAt] = r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON splits a flat JSON object into metadata and Fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec, err := RecordFromMap(raw)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// RecordFromMap extracts the store-owned keys from m; the remainder becomes Fields.
func RecordFromMap(m map[string]any) (Record, error) {
	var r Record
	r.Fields = make(map[string]any, len(m))
	for k, v := range m {
		switch k {
		case FieldID:
			s, _ := v.(string)
			r.ID = s
		case FieldOrder:
			n, err := toInt(v)
			if err != nil {
				return Record{}, fmt.Errorf("decoding order: %w", err)
			}
			r.Order = n
		case FieldCreatedAt, FieldUpdatedAt:
			t, err := toTime(v)
			if err != nil {
				return Record{}, fmt.Errorf("decoding %s: %w", k, err)
			}
			if k == FieldCreatedAt {
				r.CreatedAt = t
			} else {
				r.UpdatedAt = t
			}
		default:
			r.Fields[k] = v
		}
	}
	return r, nil
}

// Clone returns a deep copy so callers can mutate Fields freely.
func (r Record) Clone() Record {
	r.Fields = cloneMap(r.Fields)
	return r
}

// Enabled reports the enabled flag, defaulting to true when unset.
func (r Record) Enabled() bool {
	v, ok := r.Fields[FieldEnabled].(bool)
	return !ok || v
}

// Title returns the title field as a string.
func (r Record) Title() string {
	s, _ := r.Fields["title"].(string)
	return s
}

// ToRecord converts a typed element into its Record form.
func ToRecord[T Element[T]](e T) (Record, error) {
	m, err := ToFields(e)
	if err != nil {
		return Record{}, err
	}
	return RecordFromMap(m)
}

// FromRecord decodes a Record into the typed element T.
func FromRecord[T Element[T]](r Record) (T, error) {
	var out T
	data, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("encoding %s record: %w", out.Kind(), err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %s record: %w", out.Kind(), err)
	}
	return out, nil
}

// ToFields converts any JSON-encodable value into a generic field map.
func ToFields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateFields returns the fields of e suitable for a create request: the
// store-owned keys are removed.
func CreateFields[T Element[T]](e T) (map[string]any, error) {
	m, err := ToFields(e)
	if err != nil {
		return nil, err
	}
	delete(m, FieldID)
	delete(m, FieldCreatedAt)
	delete(m, FieldUpdatedAt)
	return m, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, t)
	case time.Time:
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
