// Package crud mediates element edits between callers and a store adapter.
//
// A Collection holds the confirmed in-memory sequence of one kind and
// serializes every mutation on it: while one change is in flight any other
// intent fails with ErrConcurrencyConflict before reaching the adapter.
// Creates and updates are applied after the adapter confirms them; reorders
// are applied at once and rolled back to the pre-drag snapshot on failure.
package crud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/matthewbaird/sitecontent/internal/reorder"
	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
	"github.com/matthewbaird/sitecontent/internal/validate"
)

// ErrConcurrencyConflict is returned when a mutation is attempted while
// another one on the same collection has not completed.
var ErrConcurrencyConflict = errors.New("another change is in progress")

// Op names the mutation a collection is performing.
type Op string

const (
	OpLoad    Op = "load"
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpReorder Op = "reorder"
)

// Status is the state of a collection: Idle when Mutating is false.
type Status struct {
	Mutating bool
	Op       Op
	Target   string // element id for update and delete
}

func (s Status) String() string {
	switch {
	case !s.Mutating:
		return "idle"
	case s.Target != "":
		return fmt.Sprintf("%s(%s)", s.Op, s.Target)
	default:
		return string(s.Op)
	}
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for rollbacks and refreshes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Collection is the orchestrator for one kind.
type Collection[T types.Element[T]] struct {
	adapter   store.Adapter[T]
	validator *validate.Validator
	kind      types.Kind
	log       *slog.Logger

	mu     sync.Mutex // guards items and state; never held across adapter calls
	items  []T
	state  Status
	loaded bool
}

// New creates an empty collection. Call Load to fetch the current sequence.
func New[T types.Element[T]](adapter store.Adapter[T], v *validate.Validator, opts ...Option) *Collection[T] {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	var zero T
	return &Collection[T]{
		adapter:   adapter,
		validator: v,
		kind:      zero.Kind(),
		log:       o.logger.With("kind", string(zero.Kind())),
	}
}

// Kind returns the kind of the collection.
func (c *Collection[T]) Kind() types.Kind { return c.kind }

// Items returns a copy of the current sequence.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Get returns the element with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Status returns the current state.
func (c *Collection[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loaded reports whether Load has completed at least once.
func (c *Collection[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Load replaces the sequence with the adapter's list.
func (c *Collection[T]) Load(ctx context.Context) error {
	if _, err := c.begin(OpLoad, ""); err != nil {
		return err
	}
	defer c.end()
	return c.refresh(ctx)
}

// Create validates candidate and, once the adapter has stored it, appends the
// returned element. Nothing is applied before the adapter confirms. A
// collection that was never loaded is loaded first so the new element lands
// after the stored ones.
//
// Enabled is sent as set on candidate, so a zero Base creates a hidden
// element; build candidates with types.NewBase to get the visible default.
func (c *Collection[T]) Create(ctx context.Context, candidate T) (T, error) {
	var zero T
	if errs := validate.ValidateElement(c.validator, candidate); !errs.OK() {
		return zero, &store.ValidationError{Fields: errs}
	}

	snapshot, err := c.begin(OpCreate, "")
	if err != nil {
		return zero, err
	}
	defer c.end()

	if !c.Loaded() {
		if err := c.refresh(ctx); err != nil {
			return zero, err
		}
		snapshot = c.Items()
	}

	candidate = types.WithOrder(candidate, len(snapshot)+1)
	created, err := c.adapter.Create(ctx, candidate)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	c.items = reorder.Renumber(append(c.items, created))
	created = c.items[len(c.items)-1]
	c.mu.Unlock()

	c.log.Debug("element created", "id", created.Meta().ID)
	return created, nil
}

// Update validates the element with patch applied and replaces it in place
// once the adapter returns the merged result. Store-owned keys in patch are
// ignored; order only changes through Reorder or Move.
func (c *Collection[T]) Update(ctx context.Context, id string, patch types.Patch) (T, error) {
	var zero T
	patch = patch.Sanitize()

	current, ok := c.Get(id)
	if !ok {
		return zero, &store.NotFoundError{Kind: c.kind, ID: id}
	}
	fields, err := types.ToFields(current)
	if err != nil {
		return zero, err
	}
	errs, err := c.validator.ValidatePatch(c.kind, fields, patch)
	if err != nil {
		return zero, err
	}
	if !errs.OK() {
		return zero, &store.ValidationError{Fields: errs}
	}

	snapshot, err := c.begin(OpUpdate, id)
	if err != nil {
		return zero, err
	}
	defer c.end()

	updated, err := c.adapter.Update(ctx, id, patch)
	if err != nil {
		if store.IsNotFound(err) {
			c.refreshAfter(ctx, err)
			return zero, err
		}
		c.restore(snapshot)
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return zero, &store.NotFoundError{Kind: c.kind, ID: id}
	}
	updated = types.WithOrder(updated, c.items[i].Meta().Order)
	c.items[i] = updated
	return updated, nil
}

// Delete removes the element, renumbers the remaining ones 1..N and persists
// the new orders. When the delete succeeds but persisting the orders fails,
// the element stays removed and the reorder error is returned.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if _, err := c.begin(OpDelete, id); err != nil {
		return err
	}
	defer c.end()

	if err := c.adapter.Delete(ctx, id); err != nil {
		if store.IsNotFound(err) {
			c.refreshAfter(ctx, err)
		}
		return err
	}

	c.mu.Lock()
	if i := c.index(id); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
	c.items = reorder.Renumber(c.items)
	remaining := slices.Clone(c.items)
	c.mu.Unlock()

	if len(remaining) == 0 {
		return nil
	}
	if err := c.adapter.BulkReorder(ctx, remaining); err != nil {
		c.log.Warn("renumbering after delete failed", "id", id, "error", err)
		return err
	}
	return nil
}

// Reorder arranges the collection to follow ids, which must be a permutation
// of the current ids.
func (c *Collection[T]) Reorder(ctx context.Context, ids []string) error {
	return c.reorder(ctx, func(items []T) ([]T, error) {
		return reorder.Arrange(items, ids)
	})
}

// Move drags the element at src to dst.
func (c *Collection[T]) Move(ctx context.Context, src, dst int) error {
	return c.reorder(ctx, func(items []T) ([]T, error) {
		return reorder.Move(items, src, dst)
	})
}

// reorder applies the arrangement computed by plan optimistically, persists
// it and restores the snapshot if the adapter fails.
func (c *Collection[T]) reorder(ctx context.Context, plan func([]T) ([]T, error)) error {
	snapshot, err := c.begin(OpReorder, "")
	if err != nil {
		return err
	}
	defer c.end()

	next, err := plan(snapshot)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = next
	c.mu.Unlock()

	if err := c.adapter.BulkReorder(ctx, next); err != nil {
		c.restore(snapshot)
		c.log.Warn("reorder rolled back", "error", err)
		return err
	}
	return nil
}

// begin moves the collection to Mutating and returns a snapshot of the
// sequence. It fails without side effects when a mutation is in flight.
func (c *Collection[T]) begin(op Op, target string) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mutating {
		return nil, fmt.Errorf("%w: %s %s", ErrConcurrencyConflict, c.kind, c.state)
	}
	c.state = Status{Mutating: true, Op: op, Target: target}
	return slices.Clone(c.items), nil
}

func (c *Collection[T]) end() {
	c.mu.Lock()
	c.state = Status{}
	c.mu.Unlock()
}

func (c *Collection[T]) restore(snapshot []T) {
	c.mu.Lock()
	c.items = snapshot
	c.mu.Unlock()
}

// refresh reloads the sequence. The caller must hold the Mutating state.
func (c *Collection[T]) refresh(ctx context.Context) error {
	list, err := c.adapter.List(ctx)
	if err != nil {
		return err
	}
	list = reorder.Renumber(reorder.SortByOrder(list))

	c.mu.Lock()
	c.items = list
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// refreshAfter reloads the sequence after cause reported a vanished element.
func (c *Collection[T]) refreshAfter(ctx context.Context, cause error) {
	c.log.Info("element vanished, refreshing", "error", cause)
	if err := c.refresh(ctx); err != nil {
		c.log.Warn("refresh failed", "error", err)
	}
}

func (c *Collection[T]) index(id string) int {
	return slices.IndexFunc(c.items, func(e T) bool { return e.Meta().ID == id })
}
