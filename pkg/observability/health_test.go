package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry_Check(t *testing.T) {
	registry := NewHealthRegistry()
	registry.Register("sqlite", DatabaseHealthChecker(func(context.Context) error { return nil }))
	registry.Register("redis", CacheHealthChecker(func(context.Context) error {
		return errors.New("connection refused")
	}))

	results := registry.Check(context.Background())
	require.Len(t, results, 2)

	assert.Equal(t, HealthStatusHealthy, results["sqlite"].Status)
	assert.Equal(t, HealthStatusDegraded, results["redis"].Status)
	assert.Contains(t, results["redis"].Message, "connection refused")
	assert.Equal(t, HealthStatusDegraded, OverallStatus(results))
}

func TestOverallStatus_UnhealthyWins(t *testing.T) {
	results := map[string]HealthCheckResult{
		"a": {Status: HealthStatusDegraded},
		"b": {Status: HealthStatusUnhealthy},
		"c": {Status: HealthStatusHealthy},
	}
	assert.Equal(t, HealthStatusUnhealthy, OverallStatus(results))

	assert.Equal(t, HealthStatusHealthy, OverallStatus(nil))
}
