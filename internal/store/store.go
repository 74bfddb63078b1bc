// Package store defines the persistence contract for elements and its
// in-memory implementation. SQL and HTTP implementations live in the
// sqlite and httpstore subpackages.
package store

import (
	"context"
	"fmt"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// OrderEntry assigns a display order to one element in a bulk reorder.
type OrderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// ReorderRequest is the body of a bulk reorder over HTTP.
type ReorderRequest struct {
	Items []OrderEntry `json:"items"`
}

// Backend is the kind-agnostic persistence surface. List returns records
// sorted by order ascending. Reorder must be all-or-nothing: entries must
// cover every element of the kind exactly once with orders 1..N, otherwise
// ErrConflict is returned and nothing changes.
type Backend interface {
	List(ctx context.Context, k types.Kind) ([]types.Record, error)
	Get(ctx context.Context, k types.Kind, id string) (types.Record, error)
	Create(ctx context.Context, k types.Kind, fields map[string]any) (types.Record, error)
	Update(ctx context.Context, k types.Kind, id string, patch types.Patch) (types.Record, error)
	Delete(ctx context.Context, k types.Kind, id string) error
	Reorder(ctx context.Context, k types.Kind, entries []OrderEntry) error
}

// Adapter is the typed view of one kind's collection.
type Adapter[T types.Element[T]] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, e T) (T, error)
	Update(ctx context.Context, id string, patch types.Patch) (T, error)
	Delete(ctx context.Context, id string) error
	BulkReorder(ctx context.Context, items []T) error
}

// Typed adapts a Backend to the Adapter of a single kind.
type Typed[T types.Element[T]] struct {
	backend Backend
	kind    types.Kind
}

// NewTyped returns the adapter for T's kind over b.
func NewTyped[T types.Element[T]](b Backend) *Typed[T] {
	var zero T
	return &Typed[T]{backend: b, kind: zero.Kind()}
}

var _ Adapter[types.Statistic] = (*Typed[types.Statistic])(nil)

func (a *Typed[T]) List(ctx context.Context) ([]T, error) {
	recs, err := a.backend.List(ctx, a.kind)
	if err != nil {
		return nil, wrap("list", a.kind, err)
	}
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		e, err := types.FromRecord[T](r)
		if err != nil {
			return nil, wrap("list", a.kind, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (a *Typed[T]) Create(ctx context.Context, e T) (T, error) {
	var zero T
	fields, err := types.CreateFields(e)
	if err != nil {
		return zero, wrap("create", a.kind, err)
	}
	rec, err := a.backend.Create(ctx, a.kind, fields)
	if err != nil {
		return zero, wrap("create", a.kind, err)
	}
	return a.decode("create", rec)
}

func (a *Typed[T]) Update(ctx context.Context, id string, patch types.Patch) (T, error) {
	rec, err := a.backend.Update(ctx, a.kind, id, patch.Sanitize())
	if err != nil {
		var zero T
		return zero, wrap("update", a.kind, err)
	}
	return a.decode("update", rec)
}

func (a *Typed[T]) Delete(ctx context.Context, id string) error {
	return wrap("delete", a.kind, a.backend.Delete(ctx, a.kind, id))
}

func (a *Typed[T]) BulkReorder(ctx context.Context, items []T) error {
	return wrap("reorder", a.kind, a.backend.Reorder(ctx, a.kind, Entries(items)))
}

func (a *Typed[T]) decode(op string, rec types.Record) (T, error) {
	e, err := types.FromRecord[T](rec)
	if err != nil {
		return e, wrap(op, a.kind, err)
	}
	return e, nil
}

// Entries converts an ordered sequence into reorder entries using each
// element's current order.
func Entries[T types.Element[T]](items []T) []OrderEntry {
	out := make([]OrderEntry, len(items))
	for i, e := range items {
		m := e.Meta()
		out[i] = OrderEntry{ID: m.ID, Order: m.Order}
	}
	return out
}

// CheckPermutation verifies that entries assign orders 1..N to exactly the
// ids in current. Backends call it before applying a reorder.
func CheckPermutation(current []string, entries []OrderEntry) error {
	if len(entries) != len(current) {
		return fmt.Errorf("%w: %d entries for %d elements", ErrConflict, len(entries), len(current))
	}
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = false
	}
	orders := make([]bool, len(entries)+1)
	for _, e := range entries {
		used, ok := known[e.ID]
		if !ok {
			return fmt.Errorf("%w: unknown id %q", ErrConflict, e.ID)
		}
		if used {
			return fmt.Errorf("%w: id %q listed twice", ErrConflict, e.ID)
		}
		known[e.ID] = true
		if e.Order < 1 || e.Order > len(entries) || orders[e.Order] {
			return fmt.Errorf("%w: order %d is out of range or repeated", ErrConflict, e.Order)
		}
		orders[e.Order] = true
	}
	return nil
}
