package activity

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// MemoryStore implements Store using in-memory slices.
// Intended for demos and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []types.ActivityEntry
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []types.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		dup := slices.ContainsFunc(s.entries, func(x types.ActivityEntry) bool {
			return x.EventID == e.EventID && x.Kind == e.Kind && x.ElementID == e.ElementID
		})
		if !dup {
			s.entries = append(s.entries, e)
		}
	}
	return nil
}

func (s *MemoryStore) QueryByElement(_ context.Context, kind types.Kind, elementID string, opts QueryOptions) ([]types.ActivityEntry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []types.ActivityEntry
	for _, e := range s.entries {
		if e.Kind != kind || e.ElementID != elementID {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.OccurredAt.After(*opts.Until) {
			continue
		}
		if len(opts.EventTypes) > 0 && !slices.Contains(opts.EventTypes, e.EventType) {
			continue
		}
		matched = append(matched, e)
	}
	sortNewestFirst(matched)
	totalCount := len(matched)

	if opts.Cursor != "" {
		cursorTime, err := time.Parse(time.RFC3339Nano, opts.Cursor)
		if err == nil {
			i := sort.Search(len(matched), func(i int) bool { return matched[i].OccurredAt.Before(cursorTime) })
			matched = matched[i:]
		}
	}

	limit := queryLimit(opts.Limit)
	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = matched[len(matched)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	return matched, nextCursor, totalCount, nil
}

func (s *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]types.ActivityEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	seen := make(map[string]bool)
	var matched []types.ActivityEntry
	for _, e := range s.entries {
		if !strings.Contains(strings.ToLower(e.Summary), q) {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.EventTypes) > 0 && !slices.Contains(opts.EventTypes, e.EventType) {
			continue
		}
		// One row per event: a reorder touches every element of a kind.
		if seen[e.EventID] {
			continue
		}
		seen[e.EventID] = true
		matched = append(matched, e)
	}

	sortNewestFirst(matched)
	totalCount := len(matched)
	if limit := searchLimit(opts.Limit); len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, totalCount, nil
}

func sortNewestFirst(entries []types.ActivityEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].EventID > entries[j].EventID
		}
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
}
