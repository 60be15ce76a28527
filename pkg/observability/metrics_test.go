package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryMetrics_Counter(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter("holds.created", 1)
	m.Counter("holds.created", 1)
	m.Counter("holds.created", 1, T("calendar", "primary"))

	assert.Equal(t, int64(2), m.CounterValue("holds.created"))
	assert.Equal(t, int64(1), m.CounterValue("holds.created", T("calendar", "primary")))
	assert.Equal(t, int64(0), m.CounterValue("holds.conflicted"))
}

func TestInMemoryMetrics_TagOrderIrrelevant(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter("workflows.confirmed", 1, T("a", "1"), T("b", "2"))
	m.Counter("workflows.confirmed", 1, T("b", "2"), T("a", "1"))

	assert.Equal(t, int64(2), m.CounterValue("workflows.confirmed", T("a", "1"), T("b", "2")))
}

func TestInMemoryMetrics_GaugeAndTiming(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Gauge("holds.pending", 4)
	m.Gauge("holds.pending", 2)
	assert.Equal(t, float64(2), m.GaugeValue("holds.pending"))

	m.Timing("sweep.duration", 10*time.Millisecond)
	m.Timing("sweep.duration", 20*time.Millisecond)
	assert.Equal(t, 2, m.TimingCount("sweep.duration"))
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NoopMetrics{}
	m.Counter("x", 1)
	m.Gauge("y", 1)
	m.Timing("z", time.Second)
}
