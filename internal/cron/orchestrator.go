package cron

import (
	"context"
	"time"
)

// Orchestrator binds the periodic job Runner to the process lifecycle
// contract of spec §4.3 step 6: announce READY once, emit WATCHDOG pings
// on an interval, and write a final offline heartbeat on shutdown. It is
// the boot/shutdown glue cmd/operator/main.go calls into, kept out of
// main so the READY/watchdog/heartbeat sequencing has its own tested unit
// rather than living inline in the entrypoint.
type Orchestrator struct {
	runner           *Runner
	supervisor       *Supervisor
	watchdogInterval time.Duration

	cancelWatchdog context.CancelFunc
}

// NewOrchestrator binds runner to supervisor. watchdogInterval should be
// comfortably shorter than the systemd unit's WatchdogSec (half is the
// usual convention).
func NewOrchestrator(runner *Runner, supervisor *Supervisor, watchdogInterval time.Duration) *Orchestrator {
	if watchdogInterval <= 0 {
		watchdogInterval = 15 * time.Second
	}
	return &Orchestrator{runner: runner, supervisor: supervisor, watchdogInterval: watchdogInterval}
}

// Start begins the Runner's dispatch loop, announces READY=1, and starts
// the watchdog ping loop. status is recorded in the heartbeat file.
func (o *Orchestrator) Start(ctx context.Context, status string) error {
	o.runner.Start(ctx)
	if err := o.supervisor.Ready(ctx, status); err != nil {
		return err
	}
	o.cancelWatchdog = o.supervisor.StartWatchdog(ctx, o.watchdogInterval, status)
	return nil
}

// Stop halts the watchdog loop and the Runner's dispatch loop (waiting for
// in-flight jobs to finish firing their goroutines), then writes a final
// offline heartbeat.
func (o *Orchestrator) Stop(status string) {
	if o.cancelWatchdog != nil {
		o.cancelWatchdog()
	}
	o.runner.Stop()
	_ = o.supervisor.Offline(status)
}
