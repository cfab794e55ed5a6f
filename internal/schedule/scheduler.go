// Package schedule runs named jobs on cron schedules with at most one
// in-flight run per job.
//
// Jobs are driven by a robfig/cron runner. A fire that lands while the
// previous run of the same job is still going is skipped and logged, never
// queued. Each run gets its own cancellable context, and a panic inside a
// run is recovered so the job stays armed.
//
//	s := schedule.New(schedule.Config{Logger: logger})
//	_ = s.Add("stories", "0 * * * *", 10*time.Minute, storyTick)
//	s.Start()
//	defer s.Stop(ctx)
package schedule

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/makwanagautam41/SnapLink-sub001/internal/logging"
	"github.com/robfig/cron/v3"
)

var (
	// ErrTickInFlight is returned by Trigger when the job is already running.
	ErrTickInFlight = errors.New("schedule: tick already in flight")

	// ErrUnknownJob is returned for a job name that was never added.
	ErrUnknownJob = errors.New("schedule: unknown job")

	// ErrStarted is returned by Add after Start.
	ErrStarted = errors.New("schedule: scheduler already started")

	// ErrTickPanicked wraps the value recovered from a panicking run.
	ErrTickPanicked = errors.New("schedule: tick panicked")
)

// TickFunc is one run of a job. It must honour ctx cancellation.
type TickFunc func(ctx context.Context) error

// MetricsRecorder receives scheduler events.
type MetricsRecorder interface {
	RecordSkipped(job string)
	RecordPanic(job string)
}

// Monitor tracks liveness of the per-job loops. The health server
// implements it.
type Monitor interface {
	RegisterLoop(name string)
	Heartbeat(name string)
	UnregisterLoop(name string)
}

// Config configures a Scheduler.
type Config struct {
	Logger  *logging.Logger
	Metrics MetricsRecorder
	Monitor Monitor
	// HeartbeatInterval is how often each loop reports to Monitor.
	// Default: 10s.
	HeartbeatInterval time.Duration
}

type job struct {
	name     string
	spec     string
	schedule cron.Schedule
	timeout  time.Duration
	fn       TickFunc
	inFlight atomic.Bool
}

// Scheduler owns the cron runner for a fixed set of jobs.
type Scheduler struct {
	config Config
	logger *logging.Logger

	mu      sync.Mutex
	jobs    map[string]*job
	order   []*job
	started bool
	running bool
	cron    *cron.Cron
	stopCh  chan struct{}
	hbDone  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler with no jobs.
func New(config Config) *Scheduler {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Global()
	}
	return &Scheduler{
		config: config,
		logger: logger.WithComponent("scheduler"),
		jobs:   make(map[string]*job),
	}
}

// Add registers a job. spec is a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 5m". timeout bounds each run;
// zero means unbounded.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, fn TickFunc) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule: job %s: invalid cron expression %q: %w", name, spec, err)
	}
	return s.add(name, spec, sched, timeout, fn)
}

// AddSchedule registers a job with an already-built schedule.
func (s *Scheduler) AddSchedule(name string, sched cron.Schedule, timeout time.Duration, fn TickFunc) error {
	if sched == nil {
		return fmt.Errorf("schedule: job %s: nil schedule", name)
	}
	return s.add(name, fmt.Sprintf("%T", sched), sched, timeout, fn)
}

func (s *Scheduler) add(name, spec string, sched cron.Schedule, timeout time.Duration, fn TickFunc) error {
	if name == "" || fn == nil {
		return errors.New("schedule: job needs a name and a function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("schedule: job %s already added", name)
	}
	j := &job{name: name, spec: spec, schedule: sched, timeout: timeout, fn: fn}
	s.jobs[name] = j
	s.order = append(s.order, j)
	return nil
}

// Jobs returns the registered job names in insertion order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.order))
	for i, j := range s.order {
		names[i] = j.name
	}
	return names
}

// Next returns when the named job fires next after t.
func (s *Scheduler) Next(name string, t time.Time) (time.Time, error) {
	j, err := s.job(name)
	if err != nil {
		return time.Time{}, err
	}
	return j.schedule.Next(t), nil
}

// Start arms every job. It is a no-op if already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.started = true
	s.running = true
	s.stopCh = make(chan struct{})
	s.hbDone = make(chan struct{})
	s.ctx, s.cancel = context.WithCancel(context.Background())

	cl := cronLogger{log: s.logger}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	for _, j := range s.order {
		j := j
		ctx := s.ctx
		run := cron.FuncJob(func() { _ = s.run(ctx, j, "cron") })
		s.cron.Schedule(j.schedule, cron.NewChain(s.skipIfInFlight(j)).Then(run))
		s.logger.Infof("job scheduled", map[string]any{
			"job":  j.name,
			"cron": j.spec,
			"next": j.schedule.Next(time.Now()),
		})
	}
	s.cron.Start()
	go s.heartbeat(s.order, s.stopCh, s.hbDone)
}

// Stop disarms every job and waits for in-flight runs to return. If ctx
// ends first, in-flight runs are cancelled and ctx's error is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	hbDone := s.hbDone
	cancel := s.cancel
	drained := s.cron.Stop()
	s.mu.Unlock()

	<-hbDone
	defer cancel()
	select {
	case <-drained.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out, cancelling in-flight ticks")
		return ctx.Err()
	}
}

// Running reports whether a run of the named job is in flight.
func (s *Scheduler) Running(name string) bool {
	j, err := s.job(name)
	if err != nil {
		return false
	}
	return j.inFlight.Load()
}

// Trigger runs the named job once, synchronously, under the same in-flight
// guard as scheduled fires. It works whether or not the scheduler is started.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	j, err := s.job(name)
	if err != nil {
		return err
	}
	if !j.inFlight.CompareAndSwap(false, true) {
		return ErrTickInFlight
	}
	return s.run(ctx, j, "manual")
}

func (s *Scheduler) job(name string) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j, nil
}

// skipIfInFlight drops a cron fire while a run of j is going. The guard is
// the job's own flag, so manual triggers and cron fires exclude each other.
func (s *Scheduler) skipIfInFlight(j *job) cron.JobWrapper {
	return func(next cron.Job) cron.Job {
		return cron.FuncJob(func() {
			if !j.inFlight.CompareAndSwap(false, true) {
				s.logger.Warnf("tick skipped, previous tick still running", map[string]any{"job": j.name})
				if s.config.Metrics != nil {
					s.config.Metrics.RecordSkipped(j.name)
				}
				return
			}
			next.Run()
		})
	}
}

// heartbeat reports every job loop to the monitor until stop closes.
func (s *Scheduler) heartbeat(jobs []*job, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	mon := s.config.Monitor
	if mon == nil {
		return
	}

	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = "scheduler/" + j.name
		mon.RegisterLoop(names[i])
	}
	defer func() {
		for _, name := range names {
			mon.UnregisterLoop(name)
		}
	}()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, name := range names {
				mon.Heartbeat(name)
			}
		}
	}
}

// run executes one tick. The caller must have set j.inFlight.
func (s *Scheduler) run(parent context.Context, j *job, trigger string) (err error) {
	defer j.inFlight.Store(false)

	var ctx context.Context
	var cancel context.CancelFunc
	if j.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, j.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	ctx, log := logging.StartTick(ctx, s.logger.With(map[string]any{"job": j.name, "trigger": trigger}))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanicked, r)
			log.Errorf("tick panicked", map[string]any{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			if s.config.Metrics != nil {
				s.config.Metrics.RecordPanic(j.name)
			}
		}
	}()

	log.Debug("tick started")
	err = j.fn(ctx)
	fields := map[string]any{"durationMs": time.Since(start).Milliseconds()}
	if err != nil {
		fields["error"] = err.Error()
		log.Warnf("tick finished with error", fields)
		return err
	}
	log.Debugf("tick finished", fields)
	return nil
}

// cronLogger routes the cron runner's own logging into the structured
// logger. Routine runner events go to debug.
type cronLogger struct {
	log *logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debugf("cron: "+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := kvFields(keysAndValues)
	fields["error"] = fmt.Sprint(err)
	c.log.Errorf("cron: "+msg, fields)
}

func kvFields(kv []any) map[string]any {
	fields := make(map[string]any, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		fields["extra"] = kv[len(kv)-1]
	}
	return fields
}
