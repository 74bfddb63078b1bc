package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/goccy/go-json"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries writes one or more activity entries (one event → many entries).
	WriteEntries(ctx context.Context, entries []types.ActivityEntry) error

	// QueryByElement returns activity entries for a specific element, newest first.
	QueryByElement(ctx context.Context, kind types.Kind, elementID string, opts QueryOptions) (entries []types.ActivityEntry, nextCursor string, totalCount int, err error)

	// Search matches summaries case-insensitively and returns one entry per event.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []types.ActivityEntry, totalCount int, err error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)

const activityTable = "activity_entries"

var activityColumns = []string{
	"event_id", "event_type", "occurred_at", "kind", "element_id",
	"role", "source_refs", "summary", "payload",
}

// SQLStore implements Store on SQLite through the ent dialect driver. It
// shares the driver of the element store.
type SQLStore struct {
	drv dialect.Driver
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(drv dialect.Driver) *SQLStore {
	return &SQLStore{drv: drv}
}

// CreateTable creates the activity_entries table. occurred_at is stored as
// unix nanoseconds so that it sorts and compares numerically.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS activity_entries (
			event_id    TEXT    NOT NULL,
			event_type  TEXT    NOT NULL,
			occurred_at INTEGER NOT NULL,
			kind        TEXT    NOT NULL,
			element_id  TEXT    NOT NULL,
			role        TEXT    NOT NULL,
			source_refs TEXT    NOT NULL DEFAULT '[]',
			summary     TEXT    NOT NULL,
			payload     TEXT,
			PRIMARY KEY (kind, element_id, occurred_at, event_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_time ON activity_entries (occurred_at DESC)`,
	}
	for _, q := range stmts {
		if err := s.drv.Exec(ctx, q, []any{}, nil); err != nil {
			return fmt.Errorf("creating %s: %w", activityTable, err)
		}
	}
	return nil
}

// WriteEntries inserts activity entries, ignoring ones already stored.
func (s *SQLStore) WriteEntries(ctx context.Context, entries []types.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ins := entsql.Dialect(dialect.SQLite).Insert(activityTable).Columns(activityColumns...)
	for _, e := range entries {
		refsJSON, _ := json.Marshal(e.SourceRefs)
		ins.Values(
			e.EventID, e.EventType, e.OccurredAt.UnixNano(), string(e.Kind), e.ElementID,
			e.Role, string(refsJSON), e.Summary, string(e.Payload),
		)
	}
	ins.OnConflict(entsql.DoNothing())
	q, args := ins.Query()
	return s.drv.Exec(ctx, q, args, nil)
}

// QueryByElement returns activity entries for a specific element with filtering and pagination.
func (s *SQLStore) QueryByElement(ctx context.Context, kind types.Kind, elementID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	limit := queryLimit(opts.Limit)

	preds := []*entsql.Predicate{
		entsql.EQ("kind", string(kind)),
		entsql.EQ("element_id", elementID),
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UnixNano()))
	}
	if opts.Until != nil {
		preds = append(preds, entsql.LTE("occurred_at", opts.Until.UnixNano()))
	}
	if len(opts.EventTypes) > 0 {
		preds = append(preds, entsql.In("event_type", anySlice(opts.EventTypes)...))
	}

	total, err := s.count(ctx, preds)
	if err != nil {
		return nil, "", 0, err
	}

	if opts.Cursor != "" {
		// Cursor is the occurred_at timestamp of the last result.
		if cursorTime, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			preds = append(preds, entsql.LT("occurred_at", cursorTime.UnixNano()))
		}
	}

	sel := entsql.Dialect(dialect.SQLite).Select(activityColumns...).
		From(entsql.Dialect(dialect.SQLite).Table(activityTable)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("event_id")).
		Limit(limit + 1) // fetch one extra for cursor
	entries, err := s.scan(ctx, sel)
	if err != nil {
		return nil, "", 0, err
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return entries, nextCursor, total, nil
}

// Search matches summaries case-insensitively and returns one entry per event.
func (s *SQLStore) Search(ctx context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	limit := searchLimit(opts.Limit)

	var preds []*entsql.Predicate
	if query != "" {
		preds = append(preds, entsql.ContainsFold("summary", query))
	}
	if opts.Kind != "" {
		preds = append(preds, entsql.EQ("kind", string(opts.Kind)))
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UnixNano()))
	}
	if len(opts.EventTypes) > 0 {
		preds = append(preds, entsql.In("event_type", anySlice(opts.EventTypes)...))
	}

	sel := entsql.Dialect(dialect.SQLite).Select(activityColumns...).
		From(entsql.Dialect(dialect.SQLite).Table(activityTable)).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("event_id"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	entries, err := s.scan(ctx, sel)
	if err != nil {
		return nil, 0, err
	}

	// Collapse the per-element fan-out back to one row per event.
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if seen[e.EventID] {
			continue
		}
		seen[e.EventID] = true
		out = append(out, e)
	}
	total := len(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *SQLStore) count(ctx context.Context, preds []*entsql.Predicate) (int, error) {
	sel := entsql.Dialect(dialect.SQLite).Select(entsql.Count("*")).
		From(entsql.Dialect(dialect.SQLite).Table(activityTable)).
		Where(entsql.And(preds...))
	q, args := sel.Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, q, args, rows); err != nil {
		return 0, fmt.Errorf("counting activity entries: %w", err)
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func (s *SQLStore) scan(ctx context.Context, sel *entsql.Selector) ([]types.ActivityEntry, error) {
	q, args := sel.Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	var entries []types.ActivityEntry
	for rows.Next() {
		var (
			e          types.ActivityEntry
			kind, refs string
			occurred   int64
			payload    entsql.NullString
		)
		err := rows.Scan(
			&e.EventID, &e.EventType, &occurred, &kind, &e.ElementID,
			&e.Role, &refs, &e.Summary, &payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.Kind = types.Kind(kind)
		e.OccurredAt = time.Unix(0, occurred)
		if refs != "" {
			_ = json.Unmarshal([]byte(refs), &e.SourceRefs)
		}
		if strings.TrimSpace(payload.String) != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
