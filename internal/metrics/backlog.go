package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

// BacklogSource reports how many records a reaper would process now.
type BacklogSource interface {
	Name() string
	EligibleCount(ctx context.Context) (int64, error)
}

// BacklogScanner periodically refreshes the eligible gauge for each source.
type BacklogScanner struct {
	metrics  *ReaperMetrics
	sources  []BacklogSource
	interval time.Duration
	timeout  time.Duration
	logger   *logging.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewBacklogScanner creates a scanner that updates backlog metrics every interval.
func NewBacklogScanner(metrics *ReaperMetrics, interval time.Duration, logger *logging.Logger, sources ...BacklogSource) *BacklogScanner {
	if logger == nil {
		logger = logging.Global()
	}
	return &BacklogScanner{
		metrics:  metrics,
		sources:  sources,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logger.WithComponent("backlog-scanner"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins periodic scanning.
func (s *BacklogScanner) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop halts periodic scanning.
func (s *BacklogScanner) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *BacklogScanner) loop() {
	defer s.wg.Done()

	s.ScanOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.ScanOnce()
		}
	}
}

// ScanOnce refreshes every source once.
func (s *BacklogScanner) ScanOnce() {
	for _, src := range s.sources {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		n, err := src.EligibleCount(ctx)
		cancel()
		if err != nil {
			s.logger.Warnf("backlog scan failed", map[string]any{
				"reaper": src.Name(),
				"error":  err.Error(),
			})
			continue
		}
		s.metrics.SetEligible(src.Name(), n)
	}
}
