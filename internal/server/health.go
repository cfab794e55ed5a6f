// Package server exposes the reaper process's HTTP endpoints: liveness,
// readiness, metrics and profiling.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
)

// ReadinessChecker is implemented by dependencies that must be reachable
// before a tick can do useful work.
type ReadinessChecker interface {
	// Name identifies the dependency in the /readyz response.
	Name() string

	// CheckReady returns nil if the dependency is usable.
	CheckReady(ctx context.Context) error
}

const (
	// DefaultReadinessTimeout bounds each readiness check.
	DefaultReadinessTimeout = 5 * time.Second

	// DefaultStaleAfter is how long a registered loop may go without a
	// heartbeat before /healthz reports it unhealthy.
	DefaultStaleAfter = 30 * time.Second
)

// Status values reported by /healthz and /readyz.
const (
	StatusOK           = "ok"
	StatusDegraded     = "degraded"
	StatusNotReady     = "not_ready"
	StatusShuttingDown = "shutting_down"
)

// Config configures a HealthServer.
type Config struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string
	// StaleAfter is the loop heartbeat window. Default: 30s.
	StaleAfter time.Duration
	// ReadinessTimeout bounds each readiness check. Default: 5s.
	ReadinessTimeout time.Duration
	// Profiling mounts net/http/pprof under /debug/pprof/.
	Profiling bool
}

// HealthServer serves /healthz and /readyz plus any extra handlers such
// as /metrics. It also implements the scheduler's loop monitor.
type HealthServer struct {
	config Config
	logger *logging.Logger

	mu        sync.RWMutex
	boundAddr string
	server    *http.Server
	loops     map[string]*loopStatus
	checks    []ReadinessChecker
	handlers  map[string]http.Handler

	shuttingDown atomic.Bool
}

type loopStatus struct {
	running  bool
	lastBeat time.Time
}

// HealthStatus is the JSON body of /healthz and /readyz.
type HealthStatus struct {
	Status string                 `json:"status"`
	Loops  map[string]bool        `json:"loops,omitempty"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewHealthServer creates a HealthServer. Call Start to begin serving.
func NewHealthServer(cfg Config, logger *logging.Logger) *HealthServer {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = DefaultReadinessTimeout
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &HealthServer{
		config:   cfg,
		logger:   logger.WithComponent("health"),
		loops:    make(map[string]*loopStatus),
		handlers: make(map[string]http.Handler),
	}
}

// RegisterHandler mounts an extra handler. Call before Start.
func (h *HealthServer) RegisterHandler(pattern string, handler http.Handler) {
	if pattern == "" || handler == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[pattern] = handler
}

// RegisterReadinessCheck adds a dependency to /readyz.
func (h *HealthServer) RegisterReadinessCheck(checker ReadinessChecker) {
	if checker == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, checker)
}

// RegisterLoop marks a loop as running.
func (h *HealthServer) RegisterLoop(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loops[name] = &loopStatus{running: true, lastBeat: time.Now()}
}

// Heartbeat records that a loop is still alive.
func (h *HealthServer) Heartbeat(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ls, ok := h.loops[name]; ok {
		ls.lastBeat = time.Now()
	}
}

// UnregisterLoop marks a loop as stopped. It stays in the status output
// so an unexpected exit shows up as degraded.
func (h *HealthServer) UnregisterLoop(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ls, ok := h.loops[name]; ok {
		ls.running = false
	}
}

// SetShuttingDown makes both probes return 503.
func (h *HealthServer) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// IsShuttingDown reports whether SetShuttingDown was called.
func (h *HealthServer) IsShuttingDown() bool {
	return h.shuttingDown.Load()
}

// Handler returns the mux serving every endpoint.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/readyz", h.handleReadyz)

	h.mu.RLock()
	for pattern, handler := range h.handlers {
		mux.Handle(pattern, handler)
	}
	h.mu.RUnlock()

	if h.config.Profiling {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// Start listens on the configured address and serves in the background.
func (h *HealthServer) Start() error {
	ln, err := net.Listen("tcp", h.config.Addr)
	if err != nil {
		return fmt.Errorf("health server: listen on %s: %w", h.config.Addr, err)
	}

	srv := &http.Server{
		Handler:     h.Handler(),
		ReadTimeout: 5 * time.Second,
		// Readiness checks run inside the write window.
		WriteTimeout: h.config.ReadinessTimeout + 5*time.Second,
	}

	h.mu.Lock()
	h.server = srv
	h.boundAddr = ln.Addr().String()
	h.mu.Unlock()

	h.logger.Infof("health server listening", map[string]any{"addr": ln.Addr().String()})

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Errorf("health server error", map[string]any{"error": err.Error()})
		}
	}()
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (h *HealthServer) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.boundAddr != "" {
		return h.boundAddr
	}
	return h.config.Addr
}

// Close shuts the server down. Safe to call without Start.
func (h *HealthServer) Close() error {
	h.mu.RLock()
	srv := h.server
	h.mu.RUnlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// CheckHealth evaluates liveness.
func (h *HealthServer) CheckHealth() HealthStatus {
	status := HealthStatus{
		Status: StatusOK,
		Loops:  make(map[string]bool),
		Checks: make(map[string]CheckResult),
	}
	if h.shutdownResult(&status) {
		return status
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	stale := make([]string, 0)
	for name, ls := range h.loops {
		alive := ls.running && time.Since(ls.lastBeat) < h.config.StaleAfter
		status.Loops[name] = alive
		if !alive {
			stale = append(stale, name)
		}
	}

	switch {
	case len(stale) > 0:
		sort.Strings(stale)
		status.Status = StatusDegraded
		status.Checks["loops"] = CheckResult{
			Healthy: false,
			Message: fmt.Sprintf("loops not running: %v", stale),
		}
	case len(h.loops) > 0:
		status.Checks["loops"] = CheckResult{Healthy: true, Message: "all loops running"}
	}
	return status
}

// CheckReadiness runs every registered readiness check.
func (h *HealthServer) CheckReadiness(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status: StatusOK,
		Checks: make(map[string]CheckResult),
	}
	if h.shutdownResult(&status) {
		return status
	}

	h.mu.RLock()
	checks := make([]ReadinessChecker, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.config.ReadinessTimeout)
		err := c.CheckReady(checkCtx)
		cancel()

		if err != nil {
			status.Status = StatusNotReady
			status.Checks[c.Name()] = CheckResult{Healthy: false, Message: err.Error()}
			continue
		}
		status.Checks[c.Name()] = CheckResult{Healthy: true, Message: "ready"}
	}
	return status
}

func (h *HealthServer) shutdownResult(status *HealthStatus) bool {
	if h.shuttingDown.Load() {
		status.Status = StatusShuttingDown
		status.Checks["shutdown"] = CheckResult{Healthy: false, Message: "reaper is shutting down"}
		return true
	}
	status.Checks["shutdown"] = CheckResult{Healthy: true, Message: "reaper is running"}
	return false
}

func (h *HealthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !probeMethod(w, r) {
		return
	}
	writeStatus(w, r, h.CheckHealth())
}

func (h *HealthServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !probeMethod(w, r) {
		return
	}
	writeStatus(w, r, h.CheckReadiness(r.Context()))
}

func probeMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeStatus(w http.ResponseWriter, r *http.Request, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(status)
	}
}
