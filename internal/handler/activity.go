package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/matthewbaird/sitecontent/internal/activity"
	"github.com/matthewbaird/sitecontent/internal/types"
)

// ActivityHandler serves the activity log.
type ActivityHandler struct {
	store activity.Store
	log   *slog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(store activity.Store, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{store: store, log: logger}
}

// ActivityResponse is the body of GET /api/activity.
type ActivityResponse struct {
	Entries    []types.ActivityEntry `json:"entries"`
	NextCursor string                `json:"next_cursor,omitempty"`
	Total      int                   `json:"total"`
}

// ListActivity handles GET /api/activity.
//
// With kind and element_id it returns that element's history, paginated by
// cursor. Otherwise it searches summaries for q (all events when q is empty),
// optionally filtered by kind.
func (h *ActivityHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var kind types.Kind
	if s := q.Get("kind"); s != "" {
		k, err := types.ParseKind(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_KIND", err.Error())
			return
		}
		kind = k
	}
	var eventTypes []string
	if s := q.Get("event_types"); s != "" {
		eventTypes = strings.Split(s, ",")
	}
	var since *time.Time
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be RFC 3339")
			return
		}
		since = &t
	}

	resp := ActivityResponse{}
	if id := q.Get("element_id"); id != "" {
		if kind == "" {
			writeError(w, http.StatusBadRequest, "MISSING_KIND", "element_id requires kind")
			return
		}
		opts := activity.DefaultQueryOptions()
		opts.Limit = parseLimit(r, "limit", opts.Limit)
		opts.Cursor = q.Get("cursor")
		opts.EventTypes = eventTypes
		if since != nil {
			opts.Since = since
		}
		entries, next, total, err := h.store.QueryByElement(r.Context(), kind, id, opts)
		if err != nil {
			storeErrorToHTTP(w, h.log, err)
			return
		}
		resp.Entries, resp.NextCursor, resp.Total = entries, next, total
	} else {
		opts := activity.DefaultSearchOptions()
		opts.Kind = kind
		opts.Limit = parseLimit(r, "limit", opts.Limit)
		opts.EventTypes = eventTypes
		opts.Since = since
		entries, total, err := h.store.Search(r.Context(), q.Get("q"), opts)
		if err != nil {
			storeErrorToHTTP(w, h.log, err)
			return
		}
		resp.Entries, resp.Total = entries, total
	}
	if resp.Entries == nil {
		resp.Entries = []types.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, resp)
}
