// Package seed loads demo content into an empty element store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the seed format: element payloads keyed by kind or resource name,
// listed in display order.
type File map[types.Kind][]map[string]any

// Parse decodes a YAML seed document.
func Parse(data []byte) (File, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	f := make(File, len(raw))
	for key, items := range raw {
		k, err := types.ParseKind(key)
		if err != nil {
			return nil, fmt.Errorf("parsing seed: %w", err)
		}
		f[k] = append(f[k], items...)
	}
	return f, nil
}

// LoadFile reads and parses the seed file at path.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded demo content.
func Default() (File, error) {
	return Parse(defaultSeed)
}

// Elements creates the payloads of every kind that has no elements yet, in
// file order. Kinds with existing elements are skipped, so seeding is
// idempotent. All payloads of a kind are validated before any is written.
// It returns the number of elements created per kind.
func Elements(ctx context.Context, b store.Backend, v *validate.Validator, f File, logger *slog.Logger) (map[types.Kind]int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	created := make(map[types.Kind]int)
	for _, k := range types.Kinds {
		items := f[k]
		if len(items) == 0 {
			continue
		}

		existing, err := b.List(ctx, k)
		if err != nil {
			return created, fmt.Errorf("checking %s: %w", k.Resource(), err)
		}
		if len(existing) > 0 {
			logger.Info("already seeded, skipping", "kind", string(k), "count", len(existing))
			continue
		}

		payloads := make([]map[string]any, len(items))
		for i, item := range items {
			fields := v.Coerce(k, types.Patch(item).Sanitize())
			if errs := v.Validate(k, fields); !errs.OK() {
				return created, fmt.Errorf("seed %s #%d: %w", k, i+1, &store.ValidationError{Fields: errs})
			}
			payloads[i] = fields
		}
		for i, fields := range payloads {
			if _, err := b.Create(ctx, k, fields); err != nil {
				return created, fmt.Errorf("creating %s #%d: %w", k, i+1, err)
			}
			created[k]++
		}
		logger.Info("seeded", "kind", string(k), "count", created[k])
	}
	return created, nil
}

// Kinds returns the kinds present in f in dashboard order.
func (f File) Kinds() []types.Kind {
	var out []types.Kind
	for _, k := range types.Kinds {
		if len(f[k]) > 0 {
			out = append(out, k)
		}
	}
	return slices.Clip(out)
}
