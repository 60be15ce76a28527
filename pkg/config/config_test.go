package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 30*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 3, cfg.MaxCandidates)
	assert.InDelta(t, 0.6, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 120, cfg.DurationCapMinutes)
	assert.Equal(t, 9*time.Hour, cfg.WorkStart)
	assert.Equal(t, 17*time.Hour, cfg.WorkEnd)
	assert.Equal(t, 15, cfg.BufferMinutes)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TEMPORA_ENV", "production")
	t.Setenv("TEMPORA_HOLD_TTL", "10m")
	t.Setenv("TEMPORA_MAX_CANDIDATES", "5")
	t.Setenv("TEMPORA_CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("TEMPORA_WORK_START", "08:30")
	t.Setenv("TEMPORA_WORK_END", "18:00")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 10*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 5, cfg.MaxCandidates)
	assert.InDelta(t, 0.75, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 8*time.Hour+30*time.Minute, cfg.WorkStart)
	assert.Equal(t, 18*time.Hour, cfg.WorkEnd)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("TEMPORA_HOLD_TTL", "not-a-duration")
	t.Setenv("TEMPORA_MAX_CANDIDATES", "three")
	t.Setenv("TEMPORA_WORK_START", "25:99")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 3, cfg.MaxCandidates)
	assert.Equal(t, 9*time.Hour, cfg.WorkStart)
}

func TestLoad_RejectsInvalidThreshold(t *testing.T) {
	t.Setenv("TEMPORA_CONFIDENCE_THRESHOLD", "1.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvertedWorkingHours(t *testing.T) {
	t.Setenv("TEMPORA_WORK_START", "17:00")
	t.Setenv("TEMPORA_WORK_END", "09:00")

	_, err := Load()
	assert.Error(t, err)
}
