package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReaperMetrics holds metrics for the reaper workers and their scheduler.
type ReaperMetrics struct {
	// TicksTotal counts completed ticks. Labels: reaper, status.
	TicksTotal *prometheus.CounterVec

	// TickDuration tracks tick wall time. Labels: reaper, status.
	TickDuration *prometheus.HistogramVec

	// SkippedTotal counts fires dropped because a tick was in flight.
	// Labels: reaper.
	SkippedTotal *prometheus.CounterVec

	// PanicsTotal counts recovered tick panics. Labels: reaper.
	PanicsTotal *prometheus.CounterVec

	// Candidates is the number of eligible records found by the last tick.
	// Labels: reaper.
	Candidates *prometheus.GaugeVec

	// DeletedTotal counts records deleted. Labels: reaper.
	DeletedTotal *prometheus.CounterVec

	// ItemFailuresTotal counts per-item failures. Labels: reaper, kind.
	ItemFailuresTotal *prometheus.CounterVec

	// NotificationsTotal counts deletion report deliveries. Labels: status.
	NotificationsTotal *prometheus.CounterVec

	// Eligible is the backlog of records currently due. Labels: reaper.
	Eligible *prometheus.GaugeVec
}

// DefaultTickDurationBuckets cover ticks from a few milliseconds (nothing
// to do) up to several minutes (large backlogs against a slow media store).
var DefaultTickDurationBuckets = []float64{
	0.005, // 5ms
	0.025, // 25ms
	0.1,   // 100ms
	0.5,   // 500ms
	1,     // 1s
	5,     // 5s
	15,    // 15s
	60,    // 1m
	300,   // 5m
	900,   // 15m
}

// NewReaperMetrics creates and registers reaper metrics with the default registry.
func NewReaperMetrics() *ReaperMetrics {
	return NewReaperMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewReaperMetricsWithRegistry creates reaper metrics registered with reg.
// Useful for testing to avoid conflicts with the default registry.
func NewReaperMetricsWithRegistry(reg prometheus.Registerer) *ReaperMetrics {
	f := promauto.With(reg)
	return &ReaperMetrics{
		TicksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "ticks_total",
				Help:      "Total number of reaper ticks, broken down by reaper and status.",
			},
			[]string{"reaper", "status"},
		),
		TickDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "tick_duration_seconds",
				Help:      "Reaper tick duration in seconds, broken down by reaper and status.",
				Buckets:   DefaultTickDurationBuckets,
			},
			[]string{"reaper", "status"},
		),
		SkippedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "skipped_ticks_total",
				Help:      "Scheduled fires skipped because the previous tick was still running.",
			},
			[]string{"reaper"},
		),
		PanicsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "tick_panics_total",
				Help:      "Reaper ticks that panicked and were recovered.",
			},
			[]string{"reaper"},
		),
		Candidates: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "candidates",
				Help:      "Eligible records found by the most recent tick.",
			},
			[]string{"reaper"},
		),
		DeletedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "deleted_total",
				Help:      "Total number of records deleted by the reaper.",
			},
			[]string{"reaper"},
		),
		ItemFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "item_failures_total",
				Help:      "Per-item failures, broken down by reaper and failure kind.",
			},
			[]string{"reaper", "kind"},
		),
		NotificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "notifications_total",
				Help:      "Deletion report deliveries, broken down by status.",
			},
			[]string{"status"},
		),
		Eligible: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reaper",
				Name:      "eligible",
				Help:      "Records currently due for deletion.",
			},
			[]string{"reaper"},
		),
	}
}

// RecordTick records a finished tick.
func (m *ReaperMetrics) RecordTick(reaper string, durationSeconds float64, success bool) {
	status := statusLabel(success)
	m.TicksTotal.WithLabelValues(reaper, status).Inc()
	m.TickDuration.WithLabelValues(reaper, status).Observe(durationSeconds)
}

// SetCandidates records the candidate count of the latest tick.
func (m *ReaperMetrics) SetCandidates(reaper string, n int) {
	m.Candidates.WithLabelValues(reaper).Set(float64(n))
}

// AddDeleted adds to the deleted counter.
func (m *ReaperMetrics) AddDeleted(reaper string, n int) {
	if n > 0 {
		m.DeletedTotal.WithLabelValues(reaper).Add(float64(n))
	}
}

// RecordItemFailure records one per-item failure.
func (m *ReaperMetrics) RecordItemFailure(reaper, kind string) {
	m.ItemFailuresTotal.WithLabelValues(reaper, kind).Inc()
}

// RecordNotification records a deletion report delivery attempt.
func (m *ReaperMetrics) RecordNotification(success bool) {
	m.NotificationsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// SetEligible records the current backlog.
func (m *ReaperMetrics) SetEligible(reaper string, n int64) {
	m.Eligible.WithLabelValues(reaper).Set(float64(n))
}

// RecordSkipped records a fire skipped by the scheduler.
func (m *ReaperMetrics) RecordSkipped(reaper string) {
	m.SkippedTotal.WithLabelValues(reaper).Inc()
}

// RecordPanic records a recovered tick panic.
func (m *ReaperMetrics) RecordPanic(reaper string) {
	m.PanicsTotal.WithLabelValues(reaper).Inc()
}
