package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	calls atomic.Int64
	swept int
	err   error
}

func (m *mockSweeper) SweepExpired(context.Context) (int, error) {
	m.calls.Add(1)
	return m.swept, m.err
}

func TestExpirySweeper_RunsImmediatelyAndStops(t *testing.T) {
	sweeper := &mockSweeper{swept: 2}
	worker := NewExpirySweeper(sweeper, ExpirySweeperConfig{Interval: time.Hour}, nil)

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.False(t, worker.IsRunning())
}

func TestExpirySweeper_StopsOnContextCancel(t *testing.T) {
	worker := NewExpirySweeper(&mockSweeper{}, DefaultExpirySweeperConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	require.Eventually(t, worker.IsRunning, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestExpirySweeper_TicksDespiteErrors(t *testing.T) {
	sweeper := &mockSweeper{err: errors.New("db down")}
	worker := NewExpirySweeper(sweeper, ExpirySweeperConfig{Interval: 10 * time.Millisecond}, nil)

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	worker.Stop()
	<-done
}

func TestExpirySweeper_DefaultsInterval(t *testing.T) {
	worker := NewExpirySweeper(&mockSweeper{}, ExpirySweeperConfig{}, nil)
	assert.Equal(t, DefaultSweepInterval, worker.config.Interval)
}
