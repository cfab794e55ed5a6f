package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

func newTestServer(cfg Config) *HealthServer {
	return NewHealthServer(cfg, logging.Discard())
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return status
}

func TestHealthz_OK(t *testing.T) {
	h := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.handleHealthz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
	if status := decodeStatus(t, w); status.Status != StatusOK {
		t.Errorf("expected status %q, got %q", StatusOK, status.Status)
	}
}

func TestHealthz_ShuttingDown(t *testing.T) {
	h := newTestServer(Config{})
	h.SetShuttingDown()

	if !h.IsShuttingDown() {
		t.Fatal("expected IsShuttingDown after SetShuttingDown")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.handleHealthz(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	status := decodeStatus(t, w)
	if status.Status != StatusShuttingDown {
		t.Errorf("expected status %q, got %q", StatusShuttingDown, status.Status)
	}
	if check, ok := status.Checks["shutdown"]; !ok || check.Healthy {
		t.Error("expected shutdown check to be unhealthy")
	}
}

func TestHealthz_LoopsRunning(t *testing.T) {
	h := newTestServer(Config{})
	h.RegisterLoop("scheduler/stories")
	h.RegisterLoop("scheduler/accounts")

	status := h.CheckHealth()
	if status.Status != StatusOK {
		t.Errorf("expected status %q, got %q", StatusOK, status.Status)
	}
	if len(status.Loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(status.Loops))
	}
	for name, alive := range status.Loops {
		if !alive {
			t.Errorf("loop %s should be alive", name)
		}
	}
}

func TestHealthz_LoopStopped(t *testing.T) {
	h := newTestServer(Config{})
	h.RegisterLoop("scheduler/stories")
	h.UnregisterLoop("scheduler/stories")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.handleHealthz(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	status := decodeStatus(t, w)
	if status.Status != StatusDegraded {
		t.Errorf("expected status %q, got %q", StatusDegraded, status.Status)
	}
	if status.Loops["scheduler/stories"] {
		t.Error("stopped loop should not report alive")
	}
	if !strings.Contains(status.Checks["loops"].Message, "scheduler/stories") {
		t.Errorf("expected loops message to name the stopped loop, got %q", status.Checks["loops"].Message)
	}
}

func TestHealthz_StaleLoop(t *testing.T) {
	h := newTestServer(Config{StaleAfter: time.Minute})
	h.RegisterLoop("scheduler/accounts")

	h.mu.Lock()
	h.loops["scheduler/accounts"].lastBeat = time.Now().Add(-59 * time.Second)
	h.mu.Unlock()
	if status := h.CheckHealth(); status.Status != StatusOK {
		t.Fatalf("loop inside the window should be healthy, got %q", status.Status)
	}

	h.mu.Lock()
	h.loops["scheduler/accounts"].lastBeat = time.Now().Add(-61 * time.Second)
	h.mu.Unlock()
	if status := h.CheckHealth(); status.Status != StatusDegraded {
		t.Fatalf("loop past the window should be degraded, got %q", status.Status)
	}

	h.Heartbeat("scheduler/accounts")
	if status := h.CheckHealth(); status.Status != StatusOK {
		t.Fatalf("heartbeat should restore health, got %q", status.Status)
	}
}

func TestHealthz_DefaultStaleWindow(t *testing.T) {
	h := newTestServer(Config{})
	h.RegisterLoop("worker")

	h.mu.Lock()
	h.loops["worker"].lastBeat = time.Now().Add(-DefaultStaleAfter - time.Second)
	h.mu.Unlock()

	if status := h.CheckHealth(); status.Loops["worker"] {
		t.Error("loop past the default window should not report alive")
	}
}

func TestHealthz_HeartbeatUnknownLoop(t *testing.T) {
	h := newTestServer(Config{})
	h.Heartbeat("never-registered")
	h.UnregisterLoop("never-registered")

	if status := h.CheckHealth(); len(status.Loops) != 0 {
		t.Errorf("unknown loops should not be tracked, got %v", status.Loops)
	}
}

func TestProbes_MethodNotAllowed(t *testing.T) {
	h := newTestServer(Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		h.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusMethodNotAllowed, w.Code)
		}
	}
}

func TestProbes_HeadHasNoBody(t *testing.T) {
	h := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	w := httptest.NewRecorder()
	h.handleHealthz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.Len() > 0 {
		t.Error("HEAD response should not have a body")
	}
}

func TestRegisterHandler(t *testing.T) {
	h := newTestServer(Config{})
	h.RegisterHandler("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "snaplink_reaper_ticks_total 1\n")
	}))
	h.RegisterHandler("", http.NotFoundHandler())
	h.RegisterHandler("/nil", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "snaplink_reaper_ticks_total") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestProfilingDisabledByDefault(t *testing.T) {
	h := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	w := httptest.NewRecorder()
	h.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected pprof to be unmounted, got status %d", w.Code)
	}

	h = newTestServer(Config{Profiling: true})
	w = httptest.NewRecorder()
	h.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected pprof index, got status %d", w.Code)
	}
}

func TestStartAndClose(t *testing.T) {
	h := newTestServer(Config{Addr: "127.0.0.1:0"})

	if err := h.Start(); err != nil {
		t.Fatalf("failed to start health server: %v", err)
	}
	defer h.Close()

	resp, err := http.Get("http://" + h.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("failed to make request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if err := h.Close(); err != nil {
		t.Errorf("failed to close health server: %v", err)
	}
}

func TestStart_BadAddress(t *testing.T) {
	h := newTestServer(Config{Addr: "256.0.0.1:99999"})
	if err := h.Start(); err == nil {
		h.Close()
		t.Fatal("expected listen error")
	}
}

func TestCloseWithoutStart(t *testing.T) {
	h := newTestServer(Config{Addr: ":0"})
	if err := h.Close(); err != nil {
		t.Errorf("Close() without Start() should not error: %v", err)
	}
	if h.Addr() != ":0" {
		t.Errorf("expected configured address before Start, got %q", h.Addr())
	}
}
