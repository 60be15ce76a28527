// Package subscribers holds event consumers owned by the availability
// context.
package subscribers

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/eventbus"
)

// BusyCache is the slice of the cache the invalidator needs.
type BusyCache interface {
	Invalidate(ctx context.Context, calendarID string)
}

// BusyCacheInvalidator drops cached busy intervals once a workflow books an
// event, so the next slot suggestion sees the fresh calendar state.
type BusyCacheInvalidator struct {
	cache      BusyCache
	calendarID string
	logger     *slog.Logger
}

// NewBusyCacheInvalidator creates the invalidating consumer for the
// configured calendar.
func NewBusyCacheInvalidator(cache BusyCache, calendarID string, logger *slog.Logger) *BusyCacheInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusyCacheInvalidator{cache: cache, calendarID: calendarID, logger: logger}
}

// EventTypes implements eventbus.EventConsumer.
func (s *BusyCacheInvalidator) EventTypes() []string {
	return []string{"scheduling.workflow.confirmed"}
}

// Handle implements eventbus.EventConsumer.
func (s *BusyCacheInvalidator) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	calendarID := event.Metadata.CalendarID
	if calendarID == "" {
		calendarID = s.calendarID
	}
	s.cache.Invalidate(ctx, calendarID)
	s.logger.DebugContext(ctx, "busy cache invalidated",
		"calendar_id", calendarID,
		"event_id", event.EventID,
	)
	return nil
}
