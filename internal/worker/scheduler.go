package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobScheduler submits a fixed list of payloads to a pool on every tick.
type JobScheduler struct {
	Name     string
	Interval time.Duration
	Pool     *WorkingPool

	mu   sync.RWMutex
	jobs []JobPayload
}

func NewJobScheduler(name string, interval time.Duration, pool *WorkingPool) *JobScheduler {
	return &JobScheduler{
		Name:     name,
		Interval: interval,
		Pool:     pool,
	}
}

func (s *JobScheduler) AddJob(job JobPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Run blocks until ctx is done. When runNow is set the jobs are also submitted once at start.
func (s *JobScheduler) Run(ctx context.Context, runNow bool) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	slog.Info("Scheduler running", "scheduler", s.Name, "interval", s.Interval)

	if runNow {
		s.submitJobs(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.submitJobs(ctx)
		case <-ctx.Done():
			slog.Info("Scheduler shutting down", "scheduler", s.Name)
			return
		}
	}
}

func (s *JobScheduler) submitJobs(ctx context.Context) {
	s.mu.RLock()
	jobs := make([]JobPayload, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.RUnlock()

	for _, job := range jobs {
		job.JobID = ""
		job.RetryCount = 0

		submitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.Pool.SubmitPayload(submitCtx, job); err != nil {
			slog.Error("Failed to submit scheduled job", "scheduler", s.Name, "type", job.Type, "error", err)
		}
		cancel()
	}
}
