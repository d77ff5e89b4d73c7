// Package scheduler runs cron jobs while an application is in its run
// phase.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoCodeAlone/appkit"
	"github.com/robfig/cron/v3"
)

var (
	ErrInvalidJobName  = errors.New("job name cannot be empty")
	ErrNilJobFunc      = errors.New("job function cannot be nil")
	ErrJobExists       = errors.New("job already exists")
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidSchedule = errors.New("invalid cron schedule")
	ErrStopTimedOut    = errors.New("timed out waiting for running jobs")
)

// JobFunc is the body of a scheduled job. ctx is cancelled when the
// scheduler stops.
type JobFunc func(ctx context.Context) error

// Entry describes a scheduled job.
type Entry struct {
	Name     string
	Schedule string
	Next     time.Time
	Prev     time.Time
	Runs     int64
	Failures int64
}

type job struct {
	name     string
	schedule string
	fn       JobFunc
	entry    cron.EntryID
	runs     atomic.Int64
	failures atomic.Int64
}

// Scheduler is an extension that starts its cron jobs before the run phase
// body and stops them before the shutdown phase body.
type Scheduler struct {
	cron        *cron.Cron
	parser      cron.Parser
	stopTimeout time.Duration

	logger atomic.Value // loggerBox

	mu      sync.Mutex
	jobs    map[string]*job
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSeconds accepts an optional leading seconds field in schedules.
func WithSeconds() Option {
	return func(s *Scheduler) {
		s.parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}
}

// WithStopTimeout bounds how long Stop waits for running jobs.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// New creates a scheduler with no jobs.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		parser:      cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		stopTimeout: 30 * time.Second,
		jobs:        make(map[string]*job),
		ctx:         context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	log := cronLogger{s}
	s.cron = cron.New(
		cron.WithParser(s.parser),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	return s
}

// Name implements appkit.Extension.
func (s *Scheduler) Name() string { return "scheduler" }

// AddJob schedules fn under name. Jobs may be added before or after the
// scheduler starts.
func (s *Scheduler) AddJob(name, schedule string, fn JobFunc) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidJobName
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilJobFunc, name)
	}
	sched, err := s.parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("%w: job %s: %w", ErrInvalidSchedule, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	j := &job{name: name, schedule: schedule, fn: fn}
	j.entry = s.cron.Schedule(sched, cron.FuncJob(func() { s.run(j) }))
	s.jobs[name] = j
	return nil
}

// RemoveJob unschedules the job registered under name.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	s.cron.Remove(j.entry)
	delete(s.jobs, name)
	return nil
}

// Entries lists the scheduled jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	slices.SortFunc(jobs, func(a, b *job) int { return strings.Compare(a.name, b.name) })

	entries := make([]Entry, 0, len(jobs))
	for _, j := range jobs {
		ce := s.cron.Entry(j.entry)
		entries = append(entries, Entry{
			Name:     j.name,
			Schedule: j.schedule,
			Next:     ce.Next,
			Prev:     ce.Prev,
			Runs:     j.runs.Load(),
			Failures: j.failures.Load(),
		})
	}
	return entries
}

// Start starts the cron runner. Job contexts derive from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	s.log().Info("Scheduler started", "jobs", len(s.jobs))
}

// Running reports whether the cron runner has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Stop cancels running jobs and waits for them to return, up to the stop
// timeout or until ctx is done. It is safe to call more than once.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	stopped := s.cron.Stop()

	timer := time.NewTimer(s.stopTimeout)
	defer timer.Stop()
	select {
	case <-stopped.Done():
		s.log().Info("Scheduler stopped")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	s.log().Warn("Scheduler stop timed out", "timeout", s.stopTimeout)
	return ErrStopTimedOut
}

func (s *Scheduler) run(j *job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	j.runs.Add(1)
	start := time.Now()
	if err := j.fn(ctx); err != nil {
		j.failures.Add(1)
		s.log().Error("Job failed", "job", j.name, "error", err)
		return
	}
	s.log().Debug("Job completed", "job", j.name, "elapsed", time.Since(start))
}

// RunPre starts the scheduler.
func (s *Scheduler) RunPre(ctx context.Context, _ appkit.Event, app *appkit.Application) error {
	s.logger.Store(loggerBox{app.Logger()})
	s.Start(ctx)
	return nil
}

// ShutdownPre stops the scheduler so no job runs during shutdown.
func (s *Scheduler) ShutdownPre(ctx context.Context, _ appkit.Event, _ *appkit.Application) error {
	return s.Stop(ctx)
}

var (
	_ appkit.RunPreHook      = (*Scheduler)(nil)
	_ appkit.ShutdownPreHook = (*Scheduler)(nil)
)
