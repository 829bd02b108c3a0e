// Package cron is the Agent Cron (spec §4.3): periodic, in-process
// scheduling, re-derived from configuration on every boot — distinct from
// the durable internal/scheduler, which persists its jobs to SQLite.
package cron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/0ld3ull/operator/internal/telemetry"
)

// Handler performs one periodic job invocation. Each firing runs in its own
// goroutine, so a handler may run concurrently with other jobs' handlers
// and, when one run outlasts its job's interval, with an earlier run of itself.
type Handler func(ctx context.Context) error

// job is a registered periodic definition. Schedule is either a Go duration
// string ("3h") or a standard 5-field cron expression ("0 2 * * *") —
// isDue dispatches on which one parses, the same dual-mode idiom the
// content scheduler's teacher ancestor uses for its own jobs table.
type job struct {
	name     string
	schedule string
	handler  Handler
	lastRun  *time.Time
	created  time.Time
}

// onceJob is a one-shot, in-memory, time-triggered job — used for the
// boot+30s kickoff and the per-slot "generate 30 minutes before" jobs the
// Daily Plan Planner registers. Not durable: a restart loses pending onceJobs,
// which is acceptable because the owning periodic job (daily plan
// generation) re-registers them every time it runs.
type onceJob struct {
	id      string
	at      time.Time
	handler Handler
	fired   bool
}

// KillSwitch is the minimal interface Runner needs to gate every tick.
type KillSwitch interface {
	IsActive(ctx context.Context) (bool, error)
}

// Runner drives the periodic job table and the one-shot job list on a
// single ticker, invoking due handlers in their own goroutine (fire and
// forget) so one slow job never delays another's tick.
type Runner struct {
	logger     *zap.Logger
	killSwitch KillSwitch
	interval   time.Duration

	mu    sync.Mutex
	jobs  map[string]*job
	onces map[string]*onceJob

	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup
}

// New creates a Runner. pollInterval controls how often due jobs are
// checked; the teacher's own periodic scheduler polls every 30s, which is
// as fine-grained as this domain's most frequent job (the 30-second
// dashboard action poller).
func New(killSwitch KillSwitch, logger *zap.Logger, pollInterval time.Duration) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Runner{
		logger:     logger,
		killSwitch: killSwitch,
		interval:   pollInterval,
		jobs:       make(map[string]*job),
		onces:      make(map[string]*onceJob),
	}
}

// Register installs a periodic job under name. schedule is a Go duration
// ("3h") or a standard cron expression ("0 2 * * *"). Re-registering name
// replaces the prior definition and resets lastRun, matching invariant 10
// ("re-invoking the planner cancels and re-registers generation jobs under
// stable ids; no duplicate generations ever run").
func (r *Runner) Register(name, schedule string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[name] = &job{name: name, schedule: schedule, handler: handler, created: time.Now().UTC()}
}

// Unregister removes a periodic job.
func (r *Runner) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, name)
}

// ScheduleOnce installs (or replaces) a one-shot job firing at `at`. Used
// for the boot+30s kickoff and per-slot generation triggers.
func (r *Runner) ScheduleOnce(id string, at time.Time, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onces[id] = &onceJob{id: id, at: at, handler: handler}
}

// CancelOnce removes a pending one-shot job, a no-op if it already fired or
// doesn't exist.
func (r *Runner) CancelOnce(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.onces, id)
}

// Start begins the poll loop. Safe to call once; a second call before Stop
// is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.ticker != nil {
		r.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.ticker = time.NewTicker(r.interval)
	ticker := r.ticker
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.tick(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				r.tick(loopCtx)
			}
		}
	}()
}

// Stop halts the poll loop and waits for the current tick to finish
// dispatching (not for in-flight handlers, which run fire-and-forget).
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.ticker == nil {
		r.mu.Unlock()
		return
	}
	r.ticker.Stop()
	r.ticker = nil
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) tick(ctx context.Context) {
	if r.killSwitch != nil {
		active, err := r.killSwitch.IsActive(ctx)
		if err != nil {
			r.logger.Error("check kill switch", zap.Error(err))
		} else if active {
			return
		}
	}

	now := time.Now().UTC()
	r.mu.Lock()
	var dueJobs []*job
	for _, j := range r.jobs {
		due, err := isDue(j.schedule, j.lastRun, j.created, now)
		if err != nil {
			r.logger.Error("evaluate schedule", zap.String("job", j.name), zap.Error(err))
			continue
		}
		if due {
			j.lastRun = &now
			dueJobs = append(dueJobs, j)
		}
	}
	var dueOnces []*onceJob
	for id, o := range r.onces {
		if o.fired {
			continue
		}
		if !o.at.After(now) {
			o.fired = true
			dueOnces = append(dueOnces, o)
			delete(r.onces, id)
		}
	}
	r.mu.Unlock()

	for _, j := range dueJobs {
		r.dispatch(ctx, j.name, j.handler)
	}
	for _, o := range dueOnces {
		r.dispatch(ctx, o.id, o.handler)
	}
}

func (r *Runner) dispatch(ctx context.Context, name string, handler Handler) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		spanCtx, span := telemetry.StartJobSpan(ctx, name, "ticker")
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("periodic job panicked", zap.String("job", name), zap.Any("recover", rec))
				telemetry.EndJobSpan(span, "panic", fmt.Errorf("%v", rec))
			}
		}()
		if err := handler(spanCtx); err != nil {
			r.logger.Error("periodic job failed", zap.String("job", name), zap.Error(err))
			telemetry.EndJobSpan(span, "error", err)
			return
		}
		telemetry.EndJobSpan(span, "ok", nil)
	}()
}

// isDue is the dual-mode schedule check: schedule parses first as a Go
// duration (interval-style jobs, e.g. every 3 hours), falling back to a
// standard 5-field cron expression.
func isDue(schedule string, lastRun *time.Time, createdAt, now time.Time) (bool, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return false, fmt.Errorf("schedule is required")
	}

	anchor := createdAt.UTC()
	if lastRun != nil {
		anchor = lastRun.UTC()
	}

	if interval, err := time.ParseDuration(schedule); err == nil {
		if interval <= 0 {
			return false, fmt.Errorf("interval must be > 0")
		}
		return !anchor.Add(interval).After(now), nil
	}

	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return false, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	next := spec.Next(anchor)
	return !next.After(now), nil
}
