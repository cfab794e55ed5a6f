package mediastore

import (
	"context"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
)

// MetricsRecorder records media store operation metrics.
// This keeps the mediastore package decoupled from the metrics package.
type MetricsRecorder interface {
	RecordOperation(operation string, durationSeconds float64, success bool)
}

// InstrumentedStore wraps a Store and records metrics for each delete.
type InstrumentedStore struct {
	store   Store
	metrics MetricsRecorder
}

// NewInstrumentedStore creates an instrumented wrapper around a Store.
// If metrics is nil, operations pass through directly.
func NewInstrumentedStore(store Store, metrics MetricsRecorder) *InstrumentedStore {
	return &InstrumentedStore{store: store, metrics: metrics}
}

// DeleteObject removes an object.
func (s *InstrumentedStore) DeleteObject(ctx context.Context, externalID string, kind model.MediaKind) error {
	start := time.Now()
	err := s.store.DeleteObject(ctx, externalID, kind)
	if s.metrics != nil {
		s.metrics.RecordOperation("delete", time.Since(start).Seconds(), err == nil)
	}
	return err
}

// CheckReady forwards to the wrapped store when it supports readiness.
func (s *InstrumentedStore) CheckReady(ctx context.Context) error {
	if rc, ok := s.store.(ReadinessChecker); ok {
		return rc.CheckReady(ctx)
	}
	return nil
}

// Close closes the wrapped store.
func (s *InstrumentedStore) Close() error {
	return s.store.Close()
}
