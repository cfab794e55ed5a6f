package recordstore

import (
	"context"
	"errors"
	"time"
)

// MetricsRecorder records record store operation metrics. It keeps this
// package decoupled from the metrics package.
type MetricsRecorder interface {
	RecordOperation(operation string, durationSeconds float64, success bool)
}

// InstrumentedCollection wraps a Collection and records metrics for each
// operation. A delete that finds nothing counts as a success.
type InstrumentedCollection[T Record] struct {
	inner   Collection[T]
	metrics MetricsRecorder
}

// NewInstrumentedCollection wraps inner. If metrics is nil, calls pass
// straight through.
func NewInstrumentedCollection[T Record](inner Collection[T], metrics MetricsRecorder) *InstrumentedCollection[T] {
	return &InstrumentedCollection[T]{inner: inner, metrics: metrics}
}

func (c *InstrumentedCollection[T]) Find(ctx context.Context, filter Filter) ([]T, error) {
	start := time.Now()
	out, err := c.inner.Find(ctx, filter)
	c.record(OpFind, start, err == nil)
	return out, err
}

func (c *InstrumentedCollection[T]) DeleteByID(ctx context.Context, id string) error {
	start := time.Now()
	err := c.inner.DeleteByID(ctx, id)
	c.record(OpDelete, start, err == nil || errors.Is(err, ErrNotFound))
	return err
}

func (c *InstrumentedCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	start := time.Now()
	n, err := c.inner.Count(ctx, filter)
	c.record(OpCount, start, err == nil)
	return n, err
}

func (c *InstrumentedCollection[T]) record(op string, start time.Time, success bool) {
	if c.metrics != nil {
		c.metrics.RecordOperation(op, time.Since(start).Seconds(), success)
	}
}
