package reaper

import (
	"sync"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testOptions(m MetricsRecorder) []Option {
	opts := []Option{WithLogger(logging.Discard()), WithClock(fixedClock(testNow))}
	if m != nil {
		opts = append(opts, WithMetrics(m))
	}
	return opts
}

type tickRecord struct {
	reaper  string
	success bool
}

type fakeMetrics struct {
	mu            sync.Mutex
	ticks         []tickRecord
	candidates    map[string]int
	deleted       map[string]int
	failures      map[string]int
	notifications []bool
	eligible      map[string]int64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		candidates: make(map[string]int),
		deleted:    make(map[string]int),
		failures:   make(map[string]int),
		eligible:   make(map[string]int64),
	}
}

func (m *fakeMetrics) RecordTick(reaper string, _ float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, tickRecord{reaper, success})
}

func (m *fakeMetrics) SetCandidates(reaper string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[reaper] = n
}

func (m *fakeMetrics) AddDeleted(reaper string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[reaper] += n
}

func (m *fakeMetrics) RecordItemFailure(reaper, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reaper+"/"+kind]++
}

func (m *fakeMetrics) RecordNotification(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, success)
}

func (m *fakeMetrics) SetEligible(reaper string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eligible[reaper] = n
}
