package types

import "strings"

// Patch is a partial set of fields for an update. Nested objects (cta) are
// merged key by key.
type Patch map[string]any

// Sanitize returns a copy without the store-owned keys. Order only changes
// through a reorder.
func (p Patch) Sanitize() Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		switch k {
		case FieldID, FieldOrder, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

// Apply merges the patch into a copy of fields and returns it.
func (p Patch) Apply(fields map[string]any) map[string]any {
	out := cloneMap(fields)
	if out == nil {
		out = make(map[string]any, len(p))
	}
	mergeInto(out, p)
	return out
}

func mergeInto(dst map[string]any, src map[string]any) {
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				merged := cloneMap(cur)
				mergeInto(merged, nested)
				dst[k] = merged
				continue
			}
			dst[k] = cloneMap(nested)
			continue
		}
		if nested, ok := v.(Patch); ok {
			mergeInto(dst, map[string]any{k: map[string]any(nested)})
			continue
		}
		dst[k] = v
	}
}

// Lookup resolves a dotted key such as "cta.text" in a field map.
func Lookup(fields map[string]any, key string) (any, bool) {
	cur := any(fields)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
