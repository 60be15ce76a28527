package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	"github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultBusyCacheTTL keeps cached busy intervals briefly; holds created by
// this process are visible through the hold store, so a short window of
// staleness from the external calendar is acceptable.
const DefaultBusyCacheTTL = 2 * time.Minute

// RedisBusyCache caches busy intervals per calendar and search window.
type RedisBusyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisBusyCache creates a cache with the given TTL (0 means default).
func NewRedisBusyCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisBusyCache {
	if ttl <= 0 {
		ttl = DefaultBusyCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBusyCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(calendarID string, window domain.TimeWindow) string {
	return fmt.Sprintf("tempora:busy:%s:%d:%d", calendarID, window.Start().Unix(), window.End().Unix())
}

// Get returns cached intervals if present. Cache errors degrade to a miss.
func (c *RedisBusyCache) Get(ctx context.Context, calendarID string, window domain.TimeWindow) ([]calendarApp.BusyInterval, bool) {
	data, err := c.client.Get(ctx, cacheKey(calendarID, window)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "busy cache read failed", "error", err)
		return nil, false
	}

	var intervals []calendarApp.BusyInterval
	if err := json.Unmarshal(data, &intervals); err != nil {
		return nil, false
	}
	return intervals, true
}

// Set stores intervals with the configured TTL. Failures are logged and
// otherwise ignored.
func (c *RedisBusyCache) Set(ctx context.Context, calendarID string, window domain.TimeWindow, intervals []calendarApp.BusyInterval) {
	data, err := json.Marshal(intervals)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(calendarID, window), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "busy cache write failed", "error", err)
	}
}

// Invalidate drops every cached window for the calendar, typically after a
// new event was booked on it.
func (c *RedisBusyCache) Invalidate(ctx context.Context, calendarID string) {
	pattern := fmt.Sprintf("tempora:busy:%s:*", calendarID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.WarnContext(ctx, "busy cache invalidation failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.WarnContext(ctx, "busy cache scan failed", "error", err)
	}
}
