package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/makwanagautam41/SnapLink-sub001/internal/config"
	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore"
	"github.com/makwanagautam41/SnapLink-sub001/internal/mediastore/s3"
	"github.com/makwanagautam41/SnapLink-sub001/internal/metrics"
	"github.com/makwanagautam41/SnapLink-sub001/internal/model"
	"github.com/makwanagautam41/SnapLink-sub001/internal/notify"
	"github.com/makwanagautam41/SnapLink-sub001/internal/reaper"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore"
	"github.com/makwanagautam41/SnapLink-sub001/internal/recordstore/postgres"
	"github.com/makwanagautam41/SnapLink-sub001/internal/schedule"
	"github.com/makwanagautam41/SnapLink-sub001/internal/server"
)

// Deps are the external services the reapers act on. Leave DaemonOptions.Deps
// nil to open them from configuration.
type Deps struct {
	Stories  recordstore.Collection[model.Story]
	Accounts recordstore.Collection[model.Account]
	Media    mediastore.Store
	Notifier notify.Notifier
	// DB backs the database readiness check. Optional.
	DB server.Pinger

	closers []io.Closer
}

// Close releases every opened service.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenDeps connects to the database, the media bucket and the notifier
// backend named in cfg.
func OpenDeps(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Deps, error) {
	deps := &Deps{}

	db, err := postgres.Open(ctx, cfg.Database.Postgres())
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	deps.closers = append(deps.closers, db)
	deps.DB = db
	deps.Stories = postgres.NewCollection[model.Story](db, "stories")
	deps.Accounts = postgres.NewCollection[model.Account](db, "accounts")

	media, err := s3.New(ctx, cfg.MediaStore.S3())
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}
	deps.closers = append(deps.closers, media)
	deps.Media = media

	notifier, err := notify.New(cfg.Notifier.Notify(), logger)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	deps.closers = append(deps.closers, notifier)
	deps.Notifier = notifier

	return deps, nil
}

// DaemonOptions contains the configuration for creating a daemon.
type DaemonOptions struct {
	Config    *config.Config
	Logger    *logging.Logger
	Deps      *Deps
	Registry  *prometheus.Registry
	Now       func() time.Time
	Version   string
	GitCommit string
	BuildTime string
}

// Daemon owns both reapers and everything that drives and observes them.
type Daemon struct {
	opts     DaemonOptions
	logger   *logging.Logger
	deps     *Deps
	ownsDeps bool

	registry      *prometheus.Registry
	reaperMetrics *metrics.ReaperMetrics
	stories       *reaper.StoryReaper
	accounts      *reaper.AccountReaper
	scheduler     *schedule.Scheduler
	healthServer  *server.HealthServer
	metricsServer *metrics.Server
	backlog       *metrics.BacklogScanner

	mu        sync.Mutex
	started   bool
	stopped   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewDaemon builds the reapers and registers enabled ones with the
// scheduler. Nothing runs until Start.
func NewDaemon(ctx context.Context, opts DaemonOptions) (*Daemon, error) {
	if opts.Config == nil {
		return nil, errors.New("daemon: config is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Global()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	cfg := opts.Config

	d := &Daemon{
		opts:      opts,
		logger:    opts.Logger,
		deps:      opts.Deps,
		registry:  opts.Registry,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}

	if d.deps == nil {
		deps, err := OpenDeps(ctx, cfg, d.logger)
		if err != nil {
			return nil, err
		}
		d.deps = deps
		d.ownsDeps = true
	}

	d.reaperMetrics = metrics.NewReaperMetricsWithRegistry(d.registry)
	stories := recordstore.NewInstrumentedCollection(d.deps.Stories,
		metrics.NewStoreMetricsWithRegistry(d.registry, metrics.StoreRecord))
	accounts := recordstore.NewInstrumentedCollection(d.deps.Accounts,
		metrics.NewStoreMetricsWithRegistry(d.registry, metrics.StoreRecord))
	media := mediastore.NewInstrumentedStore(d.deps.Media,
		metrics.NewStoreMetricsWithRegistry(d.registry, metrics.StoreMedia))

	reaperOpts := []reaper.Option{
		reaper.WithLogger(d.logger),
		reaper.WithMetrics(d.reaperMetrics),
	}
	if opts.Now != nil {
		reaperOpts = append(reaperOpts, reaper.WithClock(opts.Now))
	}
	d.stories = reaper.NewStoryReaper(stories, media, cfg.Reaper.Stories.StoryReaper(), reaperOpts...)
	d.accounts = reaper.NewAccountReaper(accounts, d.deps.Notifier, cfg.Reaper.Accounts.AccountReaper(), reaperOpts...)

	d.healthServer = server.NewHealthServer(server.Config{
		Addr:       cfg.Observability.HealthAddr,
		StaleAfter: cfg.Observability.StaleAfter,
		Profiling:  cfg.Observability.Profiling,
	}, d.logger)
	if d.deps.DB != nil {
		d.healthServer.RegisterReadinessCheck(server.NewDatabaseChecker(d.deps.DB))
	}
	d.healthServer.RegisterReadinessCheck(server.NewMediaStoreChecker(media))
	if cfg.Observability.MetricsAddr != "" {
		d.metricsServer = metrics.NewServerWithRegistry(cfg.Observability.MetricsAddr, d.registry)
	} else {
		d.healthServer.RegisterHandler("/metrics", metrics.Handler(d.registry))
	}

	d.scheduler = schedule.New(schedule.Config{
		Logger:            d.logger,
		Metrics:           d.reaperMetrics,
		Monitor:           d.healthServer,
		HeartbeatInterval: heartbeatInterval(cfg.Observability.StaleAfter),
	})
	if cfg.Reaper.Stories.Enabled {
		if err := d.scheduler.Add(reaper.NameStories, cfg.Reaper.Stories.Schedule,
			cfg.Reaper.Stories.TickTimeout, d.storyTick); err != nil {
			d.closeDeps()
			return nil, err
		}
	}
	if cfg.Reaper.Accounts.Enabled {
		if err := d.scheduler.Add(reaper.NameAccounts, cfg.Reaper.Accounts.Schedule,
			cfg.Reaper.Accounts.TickTimeout, d.accountTick); err != nil {
			d.closeDeps()
			return nil, err
		}
	}

	d.backlog = metrics.NewBacklogScanner(d.reaperMetrics, cfg.Observability.BacklogInterval, d.logger,
		d.enabledSources()...)

	return d, nil
}

func heartbeatInterval(staleAfter time.Duration) time.Duration {
	if staleAfter <= 0 {
		return 10 * time.Second
	}
	return min(staleAfter/3, 10*time.Second)
}

func (d *Daemon) storyTick(ctx context.Context) error {
	_, err := d.stories.RunTick(ctx)
	return err
}

func (d *Daemon) accountTick(ctx context.Context) error {
	_, err := d.accounts.RunTick(ctx)
	return err
}

func (d *Daemon) enabledSources() []metrics.BacklogSource {
	var sources []metrics.BacklogSource
	if d.opts.Config.Reaper.Stories.Enabled {
		sources = append(sources, d.stories)
	}
	if d.opts.Config.Reaper.Accounts.Enabled {
		sources = append(sources, d.accounts)
	}
	return sources
}

// Start logs the startup backlog, starts the HTTP endpoints and the
// scheduler, and blocks until Shutdown.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("daemon already started")
	}
	d.started = true
	d.mu.Unlock()
	defer close(d.stoppedCh)

	d.logger.Infof("starting reaper", map[string]any{
		"version": d.opts.Version,
		"jobs":    d.scheduler.Jobs(),
	})

	d.logEligible(ctx)

	if err := d.healthServer.Start(); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	if d.metricsServer != nil {
		if err := d.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	d.scheduler.Start()
	if d.opts.Config.Observability.BacklogInterval > 0 {
		d.backlog.Start()
	}

	for _, name := range d.scheduler.Jobs() {
		next, _ := d.scheduler.Next(name, time.Now())
		d.logger.Infof("reaper scheduled", map[string]any{"reaper": name, "next": next.Format(time.RFC3339)})
	}

	<-d.stopCh
	return nil
}

// logEligible reports how many records each enabled reaper would process
// right now. Failures are logged and do not block startup.
func (d *Daemon) logEligible(ctx context.Context) {
	for _, src := range d.enabledSources() {
		n, err := src.EligibleCount(ctx)
		if err != nil {
			d.logger.Warnf("startup eligible count failed", map[string]any{
				"reaper": src.Name(),
				"error":  err.Error(),
			})
			continue
		}
		d.logger.Infof("startup eligible count", map[string]any{"reaper": src.Name(), "eligible": n})
	}
}

// RunOnce runs one tick of the named reaper under the scheduler's
// in-flight guard.
func (d *Daemon) RunOnce(ctx context.Context, name string) error {
	if !d.isEnabled(name) {
		return fmt.Errorf("reaper %q is not enabled", name)
	}
	return d.scheduler.Trigger(ctx, name)
}

func (d *Daemon) isEnabled(name string) bool {
	for _, job := range d.scheduler.Jobs() {
		if job == name {
			return true
		}
	}
	return false
}

// Status is the eligible backlog of one reaper.
type Status struct {
	Reaper   string
	Enabled  bool
	Eligible int64
	Next     time.Time
	Err      error
}

// Status reports the eligible count of both reapers.
func (d *Daemon) Status(ctx context.Context) []Status {
	out := make([]Status, 0, 2)
	for _, src := range []metrics.BacklogSource{d.stories, d.accounts} {
		st := Status{Reaper: src.Name(), Enabled: d.isEnabled(src.Name())}
		st.Eligible, st.Err = src.EligibleCount(ctx)
		if st.Enabled {
			st.Next, _ = d.scheduler.Next(src.Name(), time.Now())
		}
		out = append(out, st)
	}
	return out
}

// HealthServerAddr returns the health server's bound address.
func (d *Daemon) HealthServerAddr() string {
	return d.healthServer.Addr()
}

// Shutdown stops new ticks, waits for in-flight ones until ctx expires,
// then releases resources.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	if !started {
		d.closeDeps()
		return nil
	}

	d.logger.Info("shutting down reaper")
	d.healthServer.SetShuttingDown()

	var shutdownErr error
	if err := d.scheduler.Stop(ctx); err != nil {
		d.logger.Warnf("in-flight ticks did not finish before the shutdown deadline", map[string]any{
			"error": err.Error(),
		})
		shutdownErr = err
	}
	if d.opts.Config.Observability.BacklogInterval > 0 {
		d.backlog.Stop()
	}

	close(d.stopCh)
	select {
	case <-d.stoppedCh:
	case <-ctx.Done():
	}

	if err := d.healthServer.Close(); err != nil {
		d.logger.Warnf("error closing health server", map[string]any{"error": err.Error()})
	}
	if d.metricsServer != nil {
		if err := d.metricsServer.Close(); err != nil {
			d.logger.Warnf("error closing metrics server", map[string]any{"error": err.Error()})
		}
	}
	d.closeDeps()

	d.logger.Info("reaper shutdown complete")
	return shutdownErr
}

// Close releases resources of a daemon that was never started.
func (d *Daemon) Close() error {
	return d.Shutdown(context.Background())
}

func (d *Daemon) closeDeps() {
	if !d.ownsDeps {
		return
	}
	if err := d.deps.Close(); err != nil {
		d.logger.Warnf("error closing dependencies", map[string]any{"error": err.Error()})
	}
}
