// Package activity provides the activity store interface and implementations
// for the element activity log.
package activity

import (
	"time"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// QueryOptions controls filtering and pagination for element activity queries.
type QueryOptions struct {
	Since      *time.Time // default: 6 months ago
	Until      *time.Time // default: now
	EventTypes []string   // filter to specific event types
	Limit      int        // max results (default: 100, max: 500)
	Cursor     string     // cursor for pagination
}

// SearchOptions controls filtering for activity search.
type SearchOptions struct {
	Kind       types.Kind // filter to one kind
	Since      *time.Time // filter by time
	EventTypes []string   // filter to specific event types
	Limit      int        // max results (default: 20)
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	sixMonthsAgo := time.Now().AddDate(0, -6, 0)
	now := time.Now()
	return QueryOptions{
		Since: &sixMonthsAgo,
		Until: &now,
		Limit: 100,
	}
}

// DefaultSearchOptions returns SearchOptions with sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit: 20,
	}
}

func queryLimit(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}

func searchLimit(n int) int {
	if n <= 0 {
		return 20
	}
	return min(n, 500)
}
