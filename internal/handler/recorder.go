package handler

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/sitecontent/internal/event"
)

// eventSink records domain events for the element handlers. A nil recorder
// disables recording.
type eventSink struct {
	recorder event.Recorder
	log      *slog.Logger
}

// record records a domain event if a recorder is configured.
// Errors are logged but do not fail the request.
func (s eventSink) record(ctx context.Context, evt event.DomainEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, evt); err != nil {
		s.log.WarnContext(ctx, "event recording failed",
			"event_type", evt.EventType,
			"kind", string(evt.Kind),
			"error", err,
		)
	}
}
