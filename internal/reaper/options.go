package reaper

import (
	"context"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

// Reaper names used in logs and metric labels.
const (
	NameStories  = "stories"
	NameAccounts = "accounts"
)

// DefaultOpTimeout bounds each store and notifier call.
const DefaultOpTimeout = 30 * time.Second

// MetricsRecorder receives tick outcomes. The metrics package implements it.
type MetricsRecorder interface {
	RecordTick(reaper string, durationSeconds float64, success bool)
	SetCandidates(reaper string, n int)
	AddDeleted(reaper string, n int)
	RecordItemFailure(reaper string, kind string)
	RecordNotification(success bool)
	SetEligible(reaper string, n int64)
}

type options struct {
	logger  *logging.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// Option customises a reaper.
type Option func(*options)

// WithLogger sets the base logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(component string, opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = logging.Global()
	}
	o.logger = o.logger.WithComponent(component)
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	return o
}

// withTimeout bounds a single call. A non-positive timeout only inherits ctx.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string, float64, bool) {}
func (nopMetrics) SetCandidates(string, int) {}
func (nopMetrics) AddDeleted(string, int) {}
func (nopMetrics) RecordItemFailure(string, string) {}
func (nopMetrics) RecordNotification(bool) {}
func (nopMetrics) SetEligible(string, int64) {}
