package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var m *SchedulerTickMetrics
	m.ObserveDuration("process-due", time.Second)
	m.IncSuccess("process-due")
	m.IncFailure("process-due")
	m.AddProcessed("process-due", 3)

	empty := NewSchedulerTickMetrics(nil)
	empty.IncSuccess("process-due")
}

func TestCountersRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerTickMetrics(reg)

	m.IncSuccess("retry-failed")
	m.IncFailure("retry-failed")
	m.AddProcessed("retry-failed", 5)
	m.ObserveDuration("retry-failed", 250*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	assert.True(t, names["notify_tick_success"])
	assert.True(t, names["notify_tick_failure"])
	assert.True(t, names["notify_tick_items_processed"])
	assert.True(t, names["notify_tick_duration_seconds"])
}
