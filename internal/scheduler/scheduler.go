// Package scheduler runs the periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

type job struct {
	name    string
	spec    string
	run     JobFunc
	entryID cron.EntryID
}

// Scheduler runs named jobs on standard five-field cron specs in one timezone.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]*job
	mu     sync.RWMutex
	logger *zap.Logger
}

// New creates a scheduler evaluating specs in timezone.
func New(timezone string, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		jobs:   make(map[string]*job),
		logger: logger,
	}, nil
}

// Add registers a job. Names are unique.
func (s *Scheduler) Add(name, spec string, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}

	j := &job{name: name, spec: spec, run: run}
	entryID, err := s.cron.AddFunc(spec, func() {
		s.execute(context.Background(), j)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", spec, name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j

	s.logger.Info("Scheduled job",
		zap.String("job", name),
		zap.String("schedule", spec),
	)
	return nil
}

// Start starts the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs_count", len(s.jobs)))
}

// Stop stops scheduling; the returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// NextRun returns the next activation of a job. It is only known once the scheduler is started.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(j.entryID)
	if entry.ID == 0 || entry.Next.IsZero() {
		return time.Time{}, false
	}
	return entry.Next, true
}

// RunNow executes a job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) execute(ctx context.Context, j *job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			s.logger.Error("Job failed",
				zap.String("job", j.name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			s.logger.Info("Job completed",
				zap.String("job", j.name),
				zap.Duration("duration", time.Since(start)),
			)
		}
		metrics.JobRuns.WithLabelValues(j.name, outcome).Inc()
	}()

	return j.run(ctx)
}
