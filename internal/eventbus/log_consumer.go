package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/sitecontent/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	log *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{log: logger}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	ids := make([]string, len(evt.AffectedElements))
	for i, ref := range evt.AffectedElements {
		ids[i] = ref.ID
	}
	c.log.InfoContext(ctx, "event",
		"event_type", evt.EventType,
		"kind", string(evt.Kind),
		"summary", evt.Summary,
		"actor", evt.Actor,
		"elements", ids,
	)
	return nil
}
