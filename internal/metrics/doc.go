// Package metrics provides Prometheus metrics for the reaper process.
//
// It exposes:
//   - Tick counts and durations per reaper, broken down by success/failure
//   - Fires skipped because the previous tick was still running
//   - Candidates found and records deleted per tick
//   - Per-item failures by failure kind
//   - Deletion report deliveries by status
//   - The eligible backlog per reaper, refreshed by a BacklogScanner
//   - Record store and media store operation latency by operation and status
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	reaperMetrics := metrics.NewReaperMetricsWithRegistry(reg)
//	dbMetrics := metrics.NewStoreMetricsWithRegistry(reg, metrics.StoreRecord)
//
//	stories := recordstore.NewInstrumentedCollection(pgStories, dbMetrics)
//	storyReaper := reaper.NewStoryReaper(stories, media, cfg, reaper.WithMetrics(reaperMetrics))
//
//	health.RegisterHandler("/metrics", metrics.Handler(reg))
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

const namespace = "snaplink"

func statusLabel(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusFailure
}
