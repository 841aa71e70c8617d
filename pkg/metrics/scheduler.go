package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerTickMetrics records metadata for scheduler ticks.
type SchedulerTickMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	processed *prometheus.CounterVec
}

// NewSchedulerTickMetrics registers the tick metrics on the provided
// registerer. A nil registerer yields a no-op collector.
func NewSchedulerTickMetrics(reg prometheus.Registerer) *SchedulerTickMetrics {
	if reg == nil {
		return &SchedulerTickMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notify_tick_duration_seconds",
		Help:    "Duration of scheduler ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tick"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_tick_success",
		Help: "Successful scheduler tick executions.",
	}, []string{"tick"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_tick_failure",
		Help: "Failed scheduler tick executions.",
	}, []string{"tick"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_tick_items_processed",
		Help: "Notifications handled per scheduler tick.",
	}, []string{"tick"})
	reg.MustRegister(duration, success, failure, processed)
	return &SchedulerTickMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		processed: processed,
	}
}

// ObserveDuration records the duration for the named tick.
func (m *SchedulerTickMetrics) ObserveDuration(tick string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(tick)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named tick.
func (m *SchedulerTickMetrics) IncSuccess(tick string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(tick)).Inc()
}

// IncFailure increments the failure counter for the named tick.
func (m *SchedulerTickMetrics) IncFailure(tick string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(tick)).Inc()
}

// AddProcessed counts notifications handled by the named tick.
func (m *SchedulerTickMetrics) AddProcessed(tick string, n int) {
	if m == nil || m.processed == nil || n <= 0 {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(tick)).Add(float64(n))
}

func normalizeLabel(tick string) string {
	if tick == "" {
		return "unknown"
	}
	return tick
}
