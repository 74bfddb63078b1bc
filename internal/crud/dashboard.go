package crud

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

// Dashboard holds one collection per kind. Collections share no state, so
// they are loaded concurrently and may be mutated independently.
type Dashboard struct {
	Statistics *Collection[types.Statistic]
	Pillars    *Collection[types.Pillar]
	Policies   *Collection[types.Policy]
	Services   *Collection[types.Service]
	Projects   *Collection[types.Project]

	managers map[types.Kind]Manager
}

// NewDashboard creates a collection for every kind over b.
func NewDashboard(b store.Backend, v *validate.Validator, opts ...Option) *Dashboard {
	d := &Dashboard{
		Statistics: New[types.Statistic](store.NewTyped[types.Statistic](b), v, opts...),
		Pillars:    New[types.Pillar](store.NewTyped[types.Pillar](b), v, opts...),
		Policies:   New[types.Policy](store.NewTyped[types.Policy](b), v, opts...),
		Services:   New[types.Service](store.NewTyped[types.Service](b), v, opts...),
		Projects:   New[types.Project](store.NewTyped[types.Project](b), v, opts...),
	}
	d.managers = map[types.Kind]Manager{
		types.KindStatistic: d.Statistics.Manager(),
		types.KindPillar:    d.Pillars.Manager(),
		types.KindPolicy:    d.Policies.Manager(),
		types.KindService:   d.Services.Manager(),
		types.KindProject:   d.Projects.Manager(),
	}
	return d
}

// Manager returns the collection of kind k.
func (d *Dashboard) Manager(k types.Kind) (Manager, error) {
	m, ok := d.managers[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", validate.ErrUnknownKind, k)
	}
	return m, nil
}

// Managers returns every collection in dashboard order.
func (d *Dashboard) Managers() []Manager {
	out := make([]Manager, 0, len(types.Kinds))
	for _, k := range types.Kinds {
		out = append(out, d.managers[k])
	}
	return out
}

// LoadAll loads every collection concurrently and returns the first error.
func (d *Dashboard) LoadAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, m := range d.Managers() {
		g.Go(func() error {
			if err := m.Load(ctx); err != nil {
				return fmt.Errorf("loading %s: %w", m.Kind().Resource(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
