package schedule

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/harborline/freight-notifier/pkg/observability"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_scheduler_job_runs_total",
		Help: "Scheduler job executions by job name and outcome.",
	}, []string{"job", "outcome"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notifier_scheduler_job_seconds",
		Help:    "Wall-clock duration of scheduler job runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// Job is a unit of periodic work. Run returns an error for logging only;
// a failing job never stops the loop or the jobs after it.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Scheduler runs its jobs strictly one after another, in registration
// order, once per interval. Jobs are never run concurrently with each
// other; a slow tick simply delays the next one.
type Scheduler struct {
	interval time.Duration
	jobs     []Job
	logger   *observability.Logger
}

func New(interval time.Duration, logger *observability.Logger) *Scheduler {
	return &Scheduler{interval: interval, logger: logger}
}

// Register appends a job to the run order. Not safe to call after Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start runs the first tick immediately, then one tick per interval,
// until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String(), "jobs", len(s.jobs))

	s.runAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, job)
	}
}

func (s *Scheduler) runOne(ctx context.Context, job Job) {
	start := time.Now()
	err := s.safeRun(ctx, job)
	jobDuration.WithLabelValues(job.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		jobRuns.WithLabelValues(job.Name(), "failure").Inc()
		s.logger.Error("scheduler job failed", "job", job.Name(), "error", err)
		return
	}
	jobRuns.WithLabelValues(job.Name(), "success").Inc()
	s.logger.Debug("scheduler job finished", "job", job.Name(), "duration", time.Since(start).String())
}

// safeRun converts a job panic into an error so one bad job cannot take
// down the whole loop.
func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return job.Run(ctx)
}
