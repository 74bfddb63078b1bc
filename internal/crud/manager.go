package crud

import (
	"context"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// Manager is the kind-erased view of a Collection, for callers that pick the
// kind at run time (the admin CLI, seeding).
type Manager interface {
	Kind() types.Kind
	Status() Status
	Load(ctx context.Context) error
	Snapshot() ([]types.Record, error)
	CreateFrom(ctx context.Context, fields map[string]any) (types.Record, error)
	UpdateFrom(ctx context.Context, id string, patch types.Patch) (types.Record, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
	Move(ctx context.Context, src, dst int) error
}

// Manager returns the kind-erased view of c.
func (c *Collection[T]) Manager() Manager { return managed[T]{c} }

type managed[T types.Element[T]] struct {
	*Collection[T]
}

func (m managed[T]) Snapshot() ([]types.Record, error) {
	items := m.Items()
	out := make([]types.Record, 0, len(items))
	for _, e := range items {
		r, err := types.ToRecord(e)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CreateFrom validates fields before decoding them so that type mismatches
// surface as field errors rather than decode failures.
func (m managed[T]) CreateFrom(ctx context.Context, fields map[string]any) (types.Record, error) {
	fields = types.Patch(fields).Sanitize()
	if _, ok := fields[types.FieldEnabled]; !ok {
		fields[types.FieldEnabled] = true
	}
	if errs := m.validator.Validate(m.kind, fields); !errs.OK() {
		return types.Record{}, &store.ValidationError{Fields: errs}
	}
	candidate, err := types.FromRecord[T](types.Record{Fields: m.validator.Coerce(m.kind, fields)})
	if err != nil {
		return types.Record{}, err
	}
	created, err := m.Create(ctx, candidate)
	if err != nil {
		return types.Record{}, err
	}
	return types.ToRecord(created)
}

func (m managed[T]) UpdateFrom(ctx context.Context, id string, patch types.Patch) (types.Record, error) {
	updated, err := m.Update(ctx, id, m.validator.Coerce(m.kind, patch))
	if err != nil {
		return types.Record{}, err
	}
	return types.ToRecord(updated)
}
