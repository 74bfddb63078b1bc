package event

import (
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"github.com/matthewbaird/sitecontent/internal/types"
)

// Event types.
const (
	TypeElementCreated    = "element_created"
	TypeElementUpdated    = "element_updated"
	TypeElementDeleted    = "element_deleted"
	TypeElementsReordered = "elements_reordered"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string            `json:"id"`
	EventType        string            `json:"event_type"`
	OccurredAt       time.Time         `json:"occurred_at"`
	Kind             types.Kind        `json:"kind"`
	AffectedElements []types.SourceRef `json:"affected_elements"`
	Summary          string            `json:"summary"`
	Actor            string            `json:"actor,omitempty"`
	Payload          json.RawMessage   `json:"payload,omitempty"`
}

// By returns a copy of the event attributed to actor.
func (e DomainEvent) By(actor string) DomainEvent {
	e.Actor = actor
	return e
}

// ulids sort by creation time, so activity ties keep event order.
func newID() string { return ulid.Make().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func label(rec types.Record) string {
	if t := rec.Title(); t != "" {
		return fmt.Sprintf("%q", t)
	}
	return rec.ID
}

// ElementCreatedPayload carries event-specific data for ElementCreated.
type ElementCreatedPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

func NewElementCreated(k types.Kind, rec types.Record) DomainEvent {
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeElementCreated,
		OccurredAt:       time.Now(),
		Kind:             k,
		AffectedElements: []types.SourceRef{{Kind: k, ID: rec.ID, Role: "subject"}},
		Summary:          fmt.Sprintf("Created %s %s at position %d", k, label(rec), rec.Order),
		Payload:          mustJSON(ElementCreatedPayload{ID: rec.ID, Title: rec.Title(), Order: rec.Order}),
	}
}

// ElementUpdatedPayload carries event-specific data for ElementUpdated.
type ElementUpdatedPayload struct {
	ID      string   `json:"id"`
	Changed []string `json:"changed"`
}

func NewElementUpdated(k types.Kind, rec types.Record, patch types.Patch) DomainEvent {
	changed := make([]string, 0, len(patch))
	for key := range patch {
		changed = append(changed, key)
	}
	slices.Sort(changed)
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeElementUpdated,
		OccurredAt:       time.Now(),
		Kind:             k,
		AffectedElements: []types.SourceRef{{Kind: k, ID: rec.ID, Role: "subject"}},
		Summary:          fmt.Sprintf("Updated %s %s (%d fields)", k, label(rec), len(changed)),
		Payload:          mustJSON(ElementUpdatedPayload{ID: rec.ID, Changed: changed}),
	}
}

// ElementDeletedPayload carries event-specific data for ElementDeleted.
type ElementDeletedPayload struct {
	ID string `json:"id"`
}

func NewElementDeleted(k types.Kind, id string) DomainEvent {
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeElementDeleted,
		OccurredAt:       time.Now(),
		Kind:             k,
		AffectedElements: []types.SourceRef{{Kind: k, ID: id, Role: "subject"}},
		Summary:          fmt.Sprintf("Deleted %s %s", k, id),
		Payload:          mustJSON(ElementDeletedPayload{ID: id}),
	}
}

// ElementsReorderedPayload carries the new id sequence of a collection.
type ElementsReorderedPayload struct {
	IDs []string `json:"ids"`
}

// NewElementsReordered records a reorder. ids is the full sequence in its
// new order.
func NewElementsReordered(k types.Kind, ids []string) DomainEvent {
	refs := make([]types.SourceRef, len(ids))
	for i, id := range ids {
		refs[i] = types.SourceRef{Kind: k, ID: id, Role: "sibling"}
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeElementsReordered,
		OccurredAt:       time.Now(),
		Kind:             k,
		AffectedElements: refs,
		Summary:          fmt.Sprintf("Reordered %d %s", len(ids), k.Resource()),
		Payload:          mustJSON(ElementsReorderedPayload{IDs: ids}),
	}
}
