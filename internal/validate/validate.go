// Package validate checks candidate element fields against the element type
// registry and the icon catalog. Validation is pure: it never performs I/O and
// a Validator may be shared between goroutines.
package validate

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/icons"
	"github.com/matthewbaird/sitecontent/internal/schema"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// ErrUnknownKind is returned for a kind the registry does not define.
var ErrUnknownKind = errors.New("unknown element kind")

// ErrorMap maps a field key to its message. An empty map means valid.
type ErrorMap map[string]string

// OK reports whether no errors were recorded.
func (m ErrorMap) OK() bool { return len(m) == 0 }

// Keys returns the failing field keys in sorted order.
func (m ErrorMap) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// add records msg for key unless the key already failed an earlier rule.
func (m ErrorMap) add(key, msg string) {
	if _, exists := m[key]; !exists {
		m[key] = msg
	}
}

// Rule is a kind-specific check layered on top of the per-field schema.
type Rule func(candidate map[string]any, errs ErrorMap)

// Validator applies the registry schema, the icon catalog and any cross-field
// rules of a kind.
type Validator struct {
	registry *schema.Registry
	icons    *icons.Catalog
	rules    map[types.Kind][]Rule
}

// New returns a validator with the built-in cross-field rules installed.
func New(reg *schema.Registry, catalog *icons.Catalog) *Validator {
	return &Validator{
		registry: reg,
		icons:    catalog,
		rules: map[types.Kind][]Rule{
			types.KindStatistic: {statisticRule},
		},
	}
}

// Default builds a validator from the embedded registry and icon catalog.
func Default() (*Validator, error) {
	reg, err := schema.Default()
	if err != nil {
		return nil, err
	}
	catalog, err := icons.Default()
	if err != nil {
		return nil, err
	}
	return New(reg, catalog), nil
}

// Registry returns the registry the validator checks against.
func (v *Validator) Registry() *schema.Registry { return v.registry }

// Icons returns the icon catalog the validator checks against.
func (v *Validator) Icons() *icons.Catalog { return v.icons }

// Validate checks a complete candidate for kind k. For updates, pass the
// current record's fields with the patch applied.
func (v *Validator) Validate(k types.Kind, candidate map[string]any) ErrorMap {
	errs := ErrorMap{}
	ks := v.registry.Kind(k)
	if ks == nil {
		errs.add("kind", msgUnknownKind)
		return errs
	}

	for _, f := range ks.Fields {
		if parent, ok := notObject(candidate, f.Key); ok {
			errs.add(parent, msgNotObject(parent))
			continue
		}
		val, _ := types.Lookup(candidate, f.Key)
		v.checkField(f, val, errs)
	}
	if raw, ok := candidate[types.FieldEnabled]; ok && raw != nil {
		if _, isBool := raw.(bool); !isBool {
			errs.add(types.FieldEnabled, msgEnabledNotBoolean)
		}
	}
	for _, rule := range v.rules[k] {
		rule(candidate, errs)
	}
	return errs
}

// ValidatePatch checks the candidate obtained by applying patch to current.
// Store-owned keys in patch are ignored.
func (v *Validator) ValidatePatch(k types.Kind, current map[string]any, patch types.Patch) (ErrorMap, error) {
	if v.registry.Kind(k) == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return v.Validate(k, patch.Sanitize().Apply(current)), nil
}

// Coerce returns a copy of fields with numeric strings in number fields
// converted to float64, so the result decodes into the kind's struct.
func (v *Validator) Coerce(k types.Kind, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, val := range fields {
		out[key] = val
	}
	ks := v.registry.Kind(k)
	if ks == nil {
		return out
	}
	for _, f := range ks.Fields {
		if f.Type != schema.FieldNumber {
			continue
		}
		if s, ok := out[f.Key].(string); ok {
			if n, ok := toNumber(s); ok {
				out[f.Key] = n
			}
		}
	}
	return out
}

// ValidateElement checks a typed element.
func ValidateElement[T types.Element[T]](v *Validator, e T) ErrorMap {
	fields, err := types.ToFields(e)
	if err != nil {
		return ErrorMap{"kind": err.Error()}
	}
	return v.Validate(e.Kind(), fields)
}

func (v *Validator) checkField(f schema.FieldMeta, val any, errs ErrorMap) {
	if isEmpty(val) {
		if f.Required {
			errs.add(f.Key, msgRequired(f.Label))
		}
		return
	}

	switch f.Type {
	case schema.FieldText, schema.FieldTextarea:
		if _, ok := val.(string); !ok {
			errs.add(f.Key, msgNotText(f.Label))
		}
	case schema.FieldNumber:
		n, ok := toNumber(val)
		if !ok {
			errs.add(f.Key, msgNotNumber(f.Label))
			return
		}
		if b := f.Validation; b != nil {
			if b.Min != nil && n < *b.Min {
				errs.add(f.Key, msgMin(f.Label, *b.Min))
			}
			if b.Max != nil && n > *b.Max {
				errs.add(f.Key, msgMax(f.Label, *b.Max))
			}
		}
	case schema.FieldIcon:
		s, _ := val.(string)
		if !v.icons.IsValid(s) {
			errs.add(f.Key, msgIcon(f.Label))
		}
	case schema.FieldURL, schema.FieldImage:
		s, _ := val.(string)
		if !strings.HasPrefix(s, "http") && !strings.HasPrefix(s, "/") {
			errs.add(f.Key, msgLink(f.Label))
		}
	case schema.FieldSelect:
		s, _ := val.(string)
		if !slices.Contains(f.Options, s) {
			errs.add(f.Key, msgOption(f.Label, f.Options))
		}
	}
}

// statisticRule requires the label and suffix shown next to the number.
func statisticRule(candidate map[string]any, errs ErrorMap) {
	for _, r := range []struct{ key, label, required string }{
		{"label", "La etiqueta", msgStatisticLabel},
		{"suffix", "El sufijo", msgStatisticSuffix},
	} {
		val := candidate[r.key]
		if isEmpty(val) {
			errs.add(r.key, r.required)
			continue
		}
		if _, ok := val.(string); !ok {
			errs.add(r.key, msgNotText(r.label))
		}
	}
}

// notObject reports the first segment of a dotted key whose value is present
// but is not an object, e.g. "cta" in {"cta": "x"} for key "cta.text".
func notObject(candidate map[string]any, key string) (string, bool) {
	parts := strings.Split(key, ".")
	cur := candidate
	for i, part := range parts[:len(parts)-1] {
		raw, ok := cur[part]
		if !ok || raw == nil {
			return "", false
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return strings.Join(parts[:i+1], "."), true
		}
		cur = m
	}
	return "", false
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
