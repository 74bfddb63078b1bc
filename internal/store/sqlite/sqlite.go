// Package sqlite implements store.Backend on a SQL database through the ent
// dialect driver. Every element lives in one table keyed by (kind, id); the
// kind-specific fields are kept as a JSON document.
package sqlite

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/matthewbaird/sitecontent/internal/store"
	"github.com/matthewbaird/sitecontent/internal/types"
)

const table = "elements"

var schemaDDL = []string{`
CREATE TABLE IF NOT EXISTS elements (
	kind       TEXT    NOT NULL,
	id         TEXT    NOT NULL,
	position   INTEGER NOT NULL,
	data       TEXT    NOT NULL DEFAULT '{}',
	created_at TEXT    NOT NULL,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (kind, id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_elements_kind_position ON elements (kind, position)`,
}

var columns = []string{"id", "position", "data", "created_at", "updated_at"}

// Backend stores elements in SQLite.
type Backend struct {
	drv *entsql.Driver
	now func() time.Time
}

// Open wraps db in an ent driver. Call Migrate before first use.
func Open(db *stdsql.DB) *Backend {
	return &Backend{drv: entsql.OpenDB(dialect.SQLite, db), now: time.Now}
}

// Driver exposes the underlying ent driver so other stores can share it.
func (b *Backend) Driver() *entsql.Driver { return b.drv }

// Migrate creates the elements table if it does not exist.
func (b *Backend) Migrate(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if err := b.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("creating %s table: %w", table, err)
		}
	}
	return nil
}

// Close closes the driver and its database.
func (b *Backend) Close() error { return b.drv.Close() }

var _ store.Backend = (*Backend)(nil)

func builder() *entsql.DialectBuilder { return entsql.Dialect(dialect.SQLite) }

func (b *Backend) List(ctx context.Context, k types.Kind) ([]types.Record, error) {
	return listKind(ctx, b.drv, k)
}

func (b *Backend) Get(ctx context.Context, k types.Kind, id string) (types.Record, error) {
	return getOne(ctx, b.drv, k, id)
}

func (b *Backend) Create(ctx context.Context, k types.Kind, fields map[string]any) (types.Record, error) {
	now := b.now().UTC()
	rec := types.Record{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    types.Patch(fields).Sanitize(),
	}
	if _, ok := rec.Fields[types.FieldEnabled]; !ok {
		rec.Fields[types.FieldEnabled] = true
	}
	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return types.Record{}, fmt.Errorf("encoding fields: %w", err)
	}

	err = b.withTx(ctx, func(tx dialect.Tx) error {
		sel := builder().Select(entsql.Max("position")).
			From(builder().Table(table)).
			Where(entsql.EQ("kind", string(k)))
		q, args := sel.Query()
		rows := &entsql.Rows{}
		if err := tx.Query(ctx, q, args, rows); err != nil {
			return err
		}
		var last stdsql.NullInt64
		if rows.Next() {
			if err := rows.Scan(&last); err != nil {
				rows.Close()
				return err
			}
		}
		rows.Close()
		rec.Order = int(last.Int64) + 1

		ins := builder().Insert(table).
			Columns("kind", "id", "position", "data", "created_at", "updated_at").
			Values(string(k), rec.ID, rec.Order, string(data), formatTime(now), formatTime(now))
		q, args = ins.Query()
		return tx.Exec(ctx, q, args, nil)
	})
	if err != nil {
		return types.Record{}, fmt.Errorf("inserting %s: %w", k, err)
	}
	return rec, nil
}

func (b *Backend) Update(ctx context.Context, k types.Kind, id string, patch types.Patch) (types.Record, error) {
	var out types.Record
	err := b.withTx(ctx, func(tx dialect.Tx) error {
		rec, err := getOne(ctx, tx, k, id)
		if err != nil {
			return err
		}
		rec.Fields = patch.Sanitize().Apply(rec.Fields)
		rec.UpdatedAt = b.now().UTC()
		data, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encoding fields: %w", err)
		}
		upd := builder().Update(table).
			Set("data", string(data)).
			Set("updated_at", formatTime(rec.UpdatedAt)).
			Where(entsql.And(entsql.EQ("kind", string(k)), entsql.EQ("id", id)))
		q, args := upd.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

// Delete removes the row. Positions of the remaining rows are not changed.
func (b *Backend) Delete(ctx context.Context, k types.Kind, id string) error {
	del := builder().Delete(table).
		Where(entsql.And(entsql.EQ("kind", string(k)), entsql.EQ("id", id)))
	q, args := del.Query()
	var res stdsql.Result
	if err := b.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("deleting %s: %w", k, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &store.NotFoundError{Kind: k, ID: id}
	}
	return nil
}

// Reorder rewrites every position of kind k inside one transaction.
func (b *Backend) Reorder(ctx context.Context, k types.Kind, entries []store.OrderEntry) error {
	return b.withTx(ctx, func(tx dialect.Tx) error {
		recs, err := listKind(ctx, tx, k)
		if err != nil {
			return err
		}
		ids := make([]string, len(recs))
		current := make(map[string]int, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
			current[r.ID] = r.Order
		}
		if err := store.CheckPermutation(ids, entries); err != nil {
			return err
		}

		now := formatTime(b.now().UTC())
		for _, e := range entries {
			if current[e.ID] == e.Order {
				continue
			}
			upd := builder().Update(table).
				Set("position", e.Order).
				Set("updated_at", now).
				Where(entsql.And(entsql.EQ("kind", string(k)), entsql.EQ("id", e.ID)))
			q, args := upd.Query()
			if err := tx.Exec(ctx, q, args, nil); err != nil {
				return fmt.Errorf("updating position of %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (b *Backend) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := b.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	return tx.Commit()
}

func listKind(ctx context.Context, conn dialect.ExecQuerier, k types.Kind) ([]types.Record, error) {
	sel := builder().Select(columns...).
		From(builder().Table(table)).
		Where(entsql.EQ("kind", string(k))).
		OrderBy("position", "created_at")
	q, args := sel.Query()
	return query(ctx, conn, q, args)
}

func getOne(ctx context.Context, conn dialect.ExecQuerier, k types.Kind, id string) (types.Record, error) {
	sel := builder().Select(columns...).
		From(builder().Table(table)).
		Where(entsql.And(entsql.EQ("kind", string(k)), entsql.EQ("id", id)))
	q, args := sel.Query()
	recs, err := query(ctx, conn, q, args)
	if err != nil {
		return types.Record{}, err
	}
	if len(recs) == 0 {
		return types.Record{}, &store.NotFoundError{Kind: k, ID: id}
	}
	return recs[0], nil
}

func query(ctx context.Context, conn dialect.ExecQuerier, q string, args []any) ([]types.Record, error) {
	rows := &entsql.Rows{}
	if err := conn.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("querying elements: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var (
			r                types.Record
			data             string
			created, updated string
		)
		if err := rows.Scan(&r.ID, &r.Order, &data, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning element: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &r.Fields); err != nil {
			return nil, fmt.Errorf("decoding element %s: %w", r.ID, err)
		}
		var err error
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }
