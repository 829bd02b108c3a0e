package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0ld3ull/operator/internal/telemetry"
)

// pollInterval is how often Start's background loop looks for due jobs.
// Catch-up for jobs that became due while the process was down is handled by
// the same pass: runOnce always dispatches every pending row whose
// scheduled_time has passed, not just ones ticked over since the last pass.
const pollInterval = 15 * time.Second

type Option func(*Scheduler)

// WithLogger overrides the scheduler's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler is the durable, one-shot Content Scheduler (spec §4.2). It holds
// no retry/backoff machinery: a failed execution is recorded as failed and
// never automatically retried.
type Scheduler struct {
	store  *Store
	logger *zap.Logger

	mu        sync.Mutex
	executors map[string]Executor
	cancel    context.CancelFunc
	ticker    *time.Ticker
	wg        sync.WaitGroup
}

// New creates a Scheduler over store.
func New(store *Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     store,
		logger:    zap.NewNop(),
		executors: make(map[string]Executor),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterExecutor installs the executor invoked for contentType. Exactly
// one executor may be registered per type; a later call replaces an earlier
// one.
func (s *Scheduler) RegisterExecutor(contentType string, fn Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executors[contentType] = fn
}

// Schedule persists a new pending job for dispatch at scheduledTime and
// returns its job id.
func (s *Scheduler) Schedule(ctx context.Context, jobID, contentType, contentData string, scheduledTime time.Time) (string, error) {
	job := &ScheduledJob{
		JobID:         jobID,
		ContentType:   contentType,
		ContentData:   contentData,
		ScheduledTime: scheduledTime,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, job); err != nil {
		return "", err
	}
	return jobID, nil
}

// Cancel transitions jobID out of pending, preventing future dispatch. It is
// a no-op (false, nil) if the job already fired or doesn't exist.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) (bool, error) {
	return s.store.Cancel(ctx, jobID)
}

// Reschedule moves a still-pending job to a new time. It is a no-op (false,
// nil) if the job already fired or doesn't exist — callers that need to
// replace a fired job's payload should Schedule a new jobID instead.
func (s *Scheduler) Reschedule(ctx context.Context, jobID string, newTime time.Time) (bool, error) {
	return s.store.Reschedule(ctx, jobID, newTime)
}

// GetPending returns all pending jobs ordered by scheduled_time ASC.
func (s *Scheduler) GetPending(ctx context.Context) ([]*ScheduledJob, error) {
	return s.store.ListPending(ctx)
}

// GetUpcoming returns pending jobs due within the next `hours`.
func (s *Scheduler) GetUpcoming(ctx context.Context, hours float64) ([]*ScheduledJob, error) {
	return s.store.ListUpcoming(ctx, hours)
}

// Start begins the background dispatch loop. Safe to call once; a second
// call before Stop is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.ticker = time.NewTicker(pollInterval)
	ticker := s.ticker
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.runOnce(loopCtx)
			}
		}
	}()
}

// Stop halts the dispatch loop and waits for any in-flight pass to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// runOnce dispatches every due pending job, in scheduled_time order. A job
// not yet due is skipped (ListPending returns all pending rows regardless of
// time, so we filter here rather than in SQL — GetUpcoming/GetPending expose
// the same rows to callers who want a different view).
func (s *Scheduler) runOnce(ctx context.Context) {
	jobs, err := s.store.ListPending(ctx)
	if err != nil {
		s.logger.Error("list pending scheduled jobs", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.ScheduledTime.After(now) {
			continue
		}
		s.dispatch(ctx, job)
	}
}

// dispatch claims and executes a single due job. The claim step is the
// exactly-once gate: only the caller whose UPDATE affects a row proceeds to
// invoke the executor.
func (s *Scheduler) dispatch(ctx context.Context, job *ScheduledJob) {
	claimed, err := s.store.claim(ctx, job.JobID)
	if err != nil {
		s.logger.Error("claim scheduled job", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	spanCtx, span := telemetry.StartSchedulerSpan(ctx, job.ContentType, job.JobID)
	defer span.End()

	s.mu.Lock()
	fn, ok := s.executors[job.ContentType]
	s.mu.Unlock()

	if !ok {
		s.logger.Warn("no executor registered", zap.String("job_id", job.JobID), zap.String("content_type", job.ContentType))
		if err := s.store.complete(ctx, job.JobID, StatusFailed, fmt.Sprintf("no executor registered for content_type %q", job.ContentType)); err != nil {
			s.logger.Error("record failed dispatch", zap.String("job_id", job.JobID), zap.Error(err))
		}
		telemetry.RecordScheduledJob("failed")
		telemetry.EndSchedulerSpan(span, "failed", nil)
		return
	}

	result, err := fn(spanCtx, job.ContentData)
	if err != nil {
		s.logger.Warn("scheduled job execution failed", zap.String("job_id", job.JobID), zap.Error(err))
		if cErr := s.store.complete(ctx, job.JobID, StatusFailed, err.Error()); cErr != nil {
			s.logger.Error("record failed dispatch", zap.String("job_id", job.JobID), zap.Error(cErr))
		}
		telemetry.RecordScheduledJob("failed")
		telemetry.EndSchedulerSpan(span, "failed", err)
		return
	}

	if err := s.store.complete(ctx, job.JobID, StatusExecuted, result); err != nil {
		s.logger.Error("record executed dispatch", zap.String("job_id", job.JobID), zap.Error(err))
	}
	telemetry.RecordScheduledJob("executed")
	telemetry.EndSchedulerSpan(span, "executed", nil)
}
