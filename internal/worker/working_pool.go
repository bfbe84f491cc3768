package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RetryBackoff is the pause before a failed payload job is resubmitted.
var RetryBackoff = 2 * time.Second

type WorkingPool struct {
	Name       string
	NumWorkers int
	jobChan    chan Job

	mu       sync.RWMutex
	handlers map[string]JobFunc
	stopped  bool
}

func NewWorkingPool(name string, numWorkers int, queueSize int) *WorkingPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &WorkingPool{
		Name:       name,
		NumWorkers: numWorkers,
		jobChan:    make(chan Job, queueSize),
		handlers:   make(map[string]JobFunc),
	}
}

func (p *WorkingPool) RegisterJob(jobType string, fn JobFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[jobType] = fn
}

// SubmitJob queues a job, blocking while the queue is full until ctx is done.
func (p *WorkingPool) SubmitJob(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobChan <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit to pool %s: %w", p.Name, ctx.Err())
	}
}

// SubmitPayload queues a registered job type. Failed runs are retried up to MaxRetries.
func (p *WorkingPool) SubmitPayload(ctx context.Context, payload JobPayload) error {
	p.mu.RLock()
	fn, ok := p.handlers[payload.Type]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, payload.Type)
	}
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}

	return p.SubmitJob(ctx, func(jobCtx context.Context) error {
		err := fn(jobCtx, payload.Params)
		if err == nil || payload.RetryCount >= payload.MaxRetries {
			return err
		}

		retry := payload
		retry.RetryCount++
		slog.Warn("Job failed, scheduling retry",
			"pool", p.Name,
			"job_id", payload.JobID,
			"type", payload.Type,
			"retry", retry.RetryCount,
			"error", err)

		go func() {
			select {
			case <-time.After(RetryBackoff):
			case <-jobCtx.Done():
				return
			}
			if submitErr := p.SubmitPayload(jobCtx, retry); submitErr != nil {
				slog.Error("Failed to resubmit job", "job_id", retry.JobID, "error", submitErr)
			}
		}()
		return err
	})
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()

	slog.Info("Shutdown signaled, closing job channel", "pool", p.Name)
	p.mu.Lock()
	p.stopped = true
	close(p.jobChan)
	p.mu.Unlock()

	workerWg.Wait()
	slog.Info("All workers stopped", "pool", p.Name)
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	slog.Debug("Worker started", "pool", p.Name, "worker", id)

	for {
		select {
		case job, ok := <-p.jobChan:
			if !ok {
				return
			}
			p.safeExecution(ctx, job, id)
		case <-ctx.Done():
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job Job, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in job", "pool", p.Name, "worker", workerID, "panic", r)
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	start := time.Now()
	err = job(ctx)
	if err != nil {
		slog.Error("Job failed", "pool", p.Name, "worker", workerID, "error", err)
		return err
	}
	slog.Debug("Job finished", "pool", p.Name, "worker", workerID, "took", time.Since(start))
	return nil
}
