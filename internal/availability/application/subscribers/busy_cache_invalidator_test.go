package subscribers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/eventbus"
)

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, calendarID string) {
	c.invalidated = append(c.invalidated, calendarID)
}

func TestBusyCacheInvalidator_UsesEventCalendar(t *testing.T) {
	cache := &recordingCache{}
	consumer := NewBusyCacheInvalidator(cache, "primary", nil)

	assert.Equal(t, []string{"scheduling.workflow.confirmed"}, consumer.EventTypes())

	err := consumer.Handle(context.Background(), &eventbus.ConsumedEvent{
		RoutingKey: "scheduling.workflow.confirmed",
		Metadata:   eventbus.EventMetadata{CalendarID: "team"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"team"}, cache.invalidated)
}

func TestBusyCacheInvalidator_FallsBackToConfiguredCalendar(t *testing.T) {
	cache := &recordingCache{}
	consumer := NewBusyCacheInvalidator(cache, "primary", nil)

	err := consumer.Handle(context.Background(), &eventbus.ConsumedEvent{
		RoutingKey: "scheduling.workflow.confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"primary"}, cache.invalidated)
}
