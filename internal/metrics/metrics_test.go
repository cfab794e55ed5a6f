package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore"
	"github.com/makwanagautam41/SnapLink-sub001/internal/reaper"
	"github.com/makwanagautam41/SnapLink-sub001/internal/schedule"
	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

var (
	_ reaper.MetricsRecorder      = (*ReaperMetrics)(nil)
	_ schedule.MetricsRecorder    = (*ReaperMetrics)(nil)
	_ recordstore.MetricsRecorder = (*StoreMetrics)(nil)
	_ mediastore.MetricsRecorder  = (*StoreMetrics)(nil)
	_ BacklogSource               = (*reaper.StoryReaper)(nil)
	_ BacklogSource               = (*reaper.AccountReaper)(nil)
)

func findMetricFamily(mfs []*io_prometheus_client.MetricFamily, name string) *io_prometheus_client.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchLabels(m *io_prometheus_client.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func getCounterValue(mf *io_prometheus_client.MetricFamily, labels map[string]string) float64 {
	for _, m := range mf.GetMetric() {
		if matchLabels(m, labels) {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func getGaugeValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	mf := findMetricFamily(families, name)
	if mf == nil {
		t.Fatalf("metric %s not found", name)
	}
	for _, m := range mf.GetMetric() {
		if matchLabels(m, labels) {
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func gather(t *testing.T, reg *prometheus.Registry) []*io_prometheus_client.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	return mfs
}

func TestReaperMetrics_RecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReaperMetricsWithRegistry(reg)

	m.RecordTick(reaper.NameStories, 0.2, true)
	m.RecordTick(reaper.NameStories, 0.1, false)
	m.RecordTick(reaper.NameAccounts, 0.3, true)

	mfs := gather(t, reg)
	ticks := findMetricFamily(mfs, "snaplink_reaper_ticks_total")
	if ticks == nil {
		t.Fatal("snaplink_reaper_ticks_total not found")
	}
	if got := getCounterValue(ticks, map[string]string{"reaper": "stories", "status": StatusSuccess}); got != 1 {
		t.Errorf("expected 1 successful story tick, got %v", got)
	}
	if got := getCounterValue(ticks, map[string]string{"reaper": "stories", "status": StatusFailure}); got != 1 {
		t.Errorf("expected 1 failed story tick, got %v", got)
	}

	hist := findMetricFamily(mfs, "snaplink_reaper_tick_duration_seconds")
	if hist == nil {
		t.Fatal("snaplink_reaper_tick_duration_seconds not found")
	}
	if len(hist.GetMetric()) != 3 {
		t.Errorf("expected 3 duration series, got %d", len(hist.GetMetric()))
	}
}

func TestReaperMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReaperMetricsWithRegistry(reg)

	m.AddDeleted(reaper.NameStories, 3)
	m.AddDeleted(reaper.NameStories, 0)
	m.AddDeleted(reaper.NameStories, 2)
	m.RecordItemFailure(reaper.NameStories, reaper.FailureExternalDelete.String())
	m.RecordItemFailure(reaper.NameAccounts, reaper.FailureRecordDelete.String())
	m.RecordNotification(true)
	m.RecordNotification(false)
	m.RecordSkipped(reaper.NameAccounts)
	m.RecordPanic(reaper.NameAccounts)

	mfs := gather(t, reg)
	cases := []struct {
		family string
		labels map[string]string
		want   float64
	}{
		{"snaplink_reaper_deleted_total", map[string]string{"reaper": "stories"}, 5},
		{"snaplink_reaper_item_failures_total", map[string]string{"reaper": "stories", "kind": "external_delete"}, 1},
		{"snaplink_reaper_item_failures_total", map[string]string{"reaper": "accounts", "kind": "record_delete"}, 1},
		{"snaplink_reaper_notifications_total", map[string]string{"status": StatusSuccess}, 1},
		{"snaplink_reaper_notifications_total", map[string]string{"status": StatusFailure}, 1},
		{"snaplink_reaper_skipped_ticks_total", map[string]string{"reaper": "accounts"}, 1},
		{"snaplink_reaper_tick_panics_total", map[string]string{"reaper": "accounts"}, 1},
	}
	for _, tc := range cases {
		mf := findMetricFamily(mfs, tc.family)
		if mf == nil {
			t.Errorf("%s not found", tc.family)
			continue
		}
		if got := getCounterValue(mf, tc.labels); got != tc.want {
			t.Errorf("%s%v = %v, want %v", tc.family, tc.labels, got, tc.want)
		}
	}
}

func TestReaperMetrics_Gauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReaperMetricsWithRegistry(reg)

	m.SetCandidates(reaper.NameStories, 12)
	m.SetCandidates(reaper.NameStories, 4)
	m.SetEligible(reaper.NameAccounts, 7)

	if v := getGaugeValue(t, reg, "snaplink_reaper_candidates", map[string]string{"reaper": "stories"}); v != 4 {
		t.Errorf("expected 4 candidates, got %v", v)
	}
	if v := getGaugeValue(t, reg, "snaplink_reaper_eligible", map[string]string{"reaper": "accounts"}); v != 7 {
		t.Errorf("expected 7 eligible, got %v", v)
	}
}

func TestStoreMetrics_SharedFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	db := NewStoreMetricsWithRegistry(reg, StoreRecord)
	media := NewStoreMetricsWithRegistry(reg, StoreMedia)

	db.RecordOperation(recordstore.OpFind, 0.01, true)
	db.RecordOperation(recordstore.OpDelete, 0.02, false)
	media.RecordOperation("delete", 0.2, true)

	mfs := gather(t, reg)
	ops := findMetricFamily(mfs, "snaplink_store_operations_total")
	if ops == nil {
		t.Fatal("snaplink_store_operations_total not found")
	}
	if got := getCounterValue(ops, map[string]string{"store": StoreRecord, "operation": "delete", "status": StatusFailure}); got != 1 {
		t.Errorf("expected 1 failed record delete, got %v", got)
	}
	if got := getCounterValue(ops, map[string]string{"store": StoreMedia, "operation": "delete", "status": StatusSuccess}); got != 1 {
		t.Errorf("expected 1 media delete, got %v", got)
	}
	if got := getCounterValue(ops, map[string]string{"store": StoreMedia, "operation": "delete", "status": StatusFailure}); got != 0 {
		t.Errorf("expected 0 failed media deletes, got %v", got)
	}

	if findMetricFamily(mfs, "snaplink_store_operation_latency_seconds") == nil {
		t.Error("snaplink_store_operation_latency_seconds not found")
	}
}

type fakeSource struct {
	name  string
	n     int64
	err   error
	calls atomic.Int64
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) EligibleCount(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestBacklogScanner_ScanOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReaperMetricsWithRegistry(reg)
	ok := &fakeSource{name: "stories", n: 9}
	bad := &fakeSource{name: "accounts", err: errors.New("db down")}

	s := NewBacklogScanner(m, time.Hour, logging.Discard(), ok, bad)
	s.ScanOnce()

	if v := getGaugeValue(t, reg, "snaplink_reaper_eligible", map[string]string{"reaper": "stories"}); v != 9 {
		t.Errorf("expected 9 eligible stories, got %v", v)
	}
	if bad.calls.Load() != 1 {
		t.Errorf("expected failing source to be queried once, got %d", bad.calls.Load())
	}
}

func TestBacklogScanner_StartStop(t *testing.T) {
	m := NewReaperMetricsWithRegistry(prometheus.NewRegistry())
	src := &fakeSource{name: "stories", n: 1}

	s := NewBacklogScanner(m, 5*time.Millisecond, logging.Discard(), src)
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if src.calls.Load() < 3 {
		t.Fatalf("expected at least 3 scans, got %d", src.calls.Load())
	}
}

func TestServer_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReaperMetricsWithRegistry(reg)
	m.RecordTick(reaper.NameStories, 0.1, true)

	srv := NewServerWithRegistry("127.0.0.1:0", reg)
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("failed to GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "snaplink_reaper_ticks_total") {
		t.Error("expected snaplink_reaper_ticks_total in output")
	}
}

func TestServer_CloseBeforeStart(t *testing.T) {
	if err := NewServer(":0").Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestServer_StartTwice(t *testing.T) {
	srv := NewServerWithRegistry("127.0.0.1:0", prometheus.NewRegistry())
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Close()

	if err := srv.Start(); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestHandler_CountsScrapes(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := Handler(reg)
	Handler(reg)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `promhttp_metric_handler_requests_total{code="200"} 2`) {
		t.Errorf("expected two counted scrapes, got:\n%s", w.Body.String())
	}
}
