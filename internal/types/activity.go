package types

import (
	"time"

	"github.com/goccy/go-json"
)

// SourceRef points at an element touched by a domain event.
type SourceRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
	Role string `json:"role"` // "subject" or "sibling"
}

// ActivityEntry is one row of the activity log: a domain event indexed by
// one of the elements it touched.
type ActivityEntry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Kind       Kind            `json:"kind"`
	ElementID  string          `json:"element_id"`
	Role       string          `json:"role"`
	SourceRefs []SourceRef     `json:"source_refs"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
