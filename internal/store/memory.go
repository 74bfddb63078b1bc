package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// MemoryBackend implements Backend using in-memory slices, one per kind.
// Intended for demos and testing.
type MemoryBackend struct {
	mu    sync.RWMutex
	kinds map[types.Kind][]types.Record
	now   func() time.Time
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		kinds: make(map[types.Kind][]types.Record),
		now:   time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (m *MemoryBackend) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryBackend) List(_ context.Context, k types.Kind) ([]types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.kinds[k]
	out := make([]types.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	slices.SortStableFunc(out, func(a, b types.Record) int { return a.Order - b.Order })
	return out, nil
}

func (m *MemoryBackend) Get(_ context.Context, k types.Kind, id string) (types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.index(k, id)
	if i < 0 {
		return types.Record{}, &NotFoundError{Kind: k, ID: id}
	}
	return m.kinds[k][i].Clone(), nil
}

// Create stores fields as a new record appended after the current last
// element. Any id, order or timestamp in fields is ignored.
func (m *MemoryBackend) Create(_ context.Context, k types.Kind, fields map[string]any) (types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	rec := types.Record{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Order:     maxOrder(m.kinds[k]) + 1,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    types.Patch(fields).Sanitize(),
	}
	if _, ok := rec.Fields[types.FieldEnabled]; !ok {
		rec.Fields[types.FieldEnabled] = true
	}
	m.kinds[k] = append(m.kinds[k], rec)
	return rec.Clone(), nil
}

func (m *MemoryBackend) Update(_ context.Context, k types.Kind, id string, patch types.Patch) (types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(k, id)
	if i < 0 {
		return types.Record{}, &NotFoundError{Kind: k, ID: id}
	}
	rec := m.kinds[k][i]
	rec.Fields = patch.Sanitize().Apply(rec.Fields)
	rec.UpdatedAt = m.now().UTC()
	m.kinds[k][i] = rec
	return rec.Clone(), nil
}

// Delete removes the record. Remaining orders are left as they are; the
// caller renumbers through Reorder.
func (m *MemoryBackend) Delete(_ context.Context, k types.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(k, id)
	if i < 0 {
		return &NotFoundError{Kind: k, ID: id}
	}
	m.kinds[k] = slices.Delete(m.kinds[k], i, i+1)
	return nil
}

func (m *MemoryBackend) Reorder(_ context.Context, k types.Kind, entries []OrderEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.kinds[k]
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	if err := CheckPermutation(ids, entries); err != nil {
		return err
	}

	orders := make(map[string]int, len(entries))
	for _, e := range entries {
		orders[e.ID] = e.Order
	}
	now := m.now().UTC()
	for i := range recs {
		if o := orders[recs[i].ID]; o != recs[i].Order {
			recs[i].Order = o
			recs[i].UpdatedAt = now
		}
	}
	slices.SortFunc(recs, func(a, b types.Record) int { return a.Order - b.Order })
	return nil
}

func maxOrder(recs []types.Record) int {
	n := 0
	for _, r := range recs {
		n = max(n, r.Order)
	}
	return n
}

// Count returns the number of records of kind k.
func (m *MemoryBackend) Count(k types.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.kinds[k])
}

func (m *MemoryBackend) index(k types.Kind, id string) int {
	return slices.IndexFunc(m.kinds[k], func(r types.Record) bool { return r.ID == id })
}
