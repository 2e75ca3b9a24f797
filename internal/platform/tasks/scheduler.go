package tasks

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/requestcontext"
)

// Job is a periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      Func
}

// Scheduler fires registered jobs on fixed intervals. A job never overlaps
// with itself: a tick that arrives while the previous run is active is skipped.
type Scheduler struct {
	logger  *slog.Logger
	metrics *Metrics

	mu     sync.Mutex
	jobs   map[string]Job
	active map[string]*sync.Mutex
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithSchedulerMetrics(m *Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
		jobs:   map[string]Job{},
		active: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job. A zero interval registers the job for RunOnce only.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "job requires a name and a function")
	}
	if job.Interval < 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "job %s has a negative interval", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "job %s already registered", job.Name)
	}
	s.jobs[job.Name] = job
	s.active[job.Name] = &sync.Mutex{}
	return nil
}

// Jobs lists registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunOnce runs the named job now.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	lock := s.active[name]
	s.mu.Unlock()
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "unknown job %q", name)
	}
	if !lock.TryLock() {
		s.metrics.skipped(name)
		return dErrors.Newf(dErrors.CodeConflict, "job %s is already running", name)
	}
	defer lock.Unlock()
	return s.execute(ctx, job)
}

// Run blocks, firing each job with a positive interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.Interval > 0 {
			jobs = append(jobs, j)
		}
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := s.RunOnce(ctx, job.Name); err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
						s.logger.ErrorContext(ctx, "scheduled job failed", "job", job.Name, "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	start := time.Now()
	ctx = requestcontext.WithTime(ctx, start.UTC())
	err := safeRun(ctx, job.Name, job.Run)
	s.metrics.observe(job.Name, start, err)
	if err == nil {
		s.logger.DebugContext(ctx, "scheduled job completed", "job", job.Name, "duration_ms", time.Since(start).Milliseconds())
	}
	return err
}
