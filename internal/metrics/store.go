package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Store label values.
const (
	StoreRecord = "recordstore"
	StoreMedia  = "mediastore"
)

// DefaultStoreLatencyBuckets are latency buckets for database and object
// store calls, which typically range from a millisecond to a few seconds.
var DefaultStoreLatencyBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1.0,   // 1s
	2.5,   // 2.5s
	5.0,   // 5s
	10.0,  // 10s
	30.0,  // 30s
}

// StoreMetrics holds operation metrics for one store.
type StoreMetrics struct {
	store string

	// LatencyHistogram tracks operation latency.
	// Labels: store, operation, status.
	LatencyHistogram *prometheus.HistogramVec

	// OperationsTotal counts operations. Labels: store, operation, status.
	OperationsTotal *prometheus.CounterVec
}

// storeVecs are shared by every StoreMetrics on a registry so that both
// stores can report into the same metric families.
type storeVecs struct {
	latency *prometheus.HistogramVec
	ops     *prometheus.CounterVec
}

// NewStoreMetricsWithRegistry creates metrics for store registered with reg.
// Calling it again on the same registry for another store reuses the
// already registered collectors.
func NewStoreMetricsWithRegistry(reg prometheus.Registerer, store string) *StoreMetrics {
	v := registerStoreVecs(reg)
	return &StoreMetrics{
		store:            store,
		LatencyHistogram: v.latency,
		OperationsTotal:  v.ops,
	}
}

// NewStoreMetrics creates metrics for store on the default registry.
func NewStoreMetrics(store string) *StoreMetrics {
	return NewStoreMetricsWithRegistry(prometheus.DefaultRegisterer, store)
}

func registerStoreVecs(reg prometheus.Registerer) storeVecs {
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_latency_seconds",
			Help:      "Store operation latency in seconds, broken down by store, operation and status.",
			Buckets:   DefaultStoreLatencyBuckets,
		},
		[]string{"store", "operation", "status"},
	)
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations, broken down by store, operation and status.",
		},
		[]string{"store", "operation", "status"},
	)
	return storeVecs{
		latency: registerOrExisting(reg, latency),
		ops:     registerOrExisting(reg, ops),
	}
}

func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordOperation records one store call.
func (m *StoreMetrics) RecordOperation(operation string, durationSeconds float64, success bool) {
	status := statusLabel(success)
	m.LatencyHistogram.WithLabelValues(m.store, operation, status).Observe(durationSeconds)
	m.OperationsTotal.WithLabelValues(m.store, operation, status).Inc()
}
