// Package scheduler is the durable, one-shot, time-triggered Content
// Scheduler (spec §4.2) — distinct from the periodic Agent Cron in
// internal/cron, which re-derives its jobs from configuration on every boot.
package scheduler

import (
	"context"
	"time"
)

// Status is the lifecycle state of a ScheduledJob.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ScheduledJob is a future execution of a typed content payload.
type ScheduledJob struct {
	JobID         string     `json:"job_id"`
	ContentType   string     `json:"content_type"`
	ContentData   string     `json:"content_data"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	Status        Status     `json:"status"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	Result        string     `json:"result,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Executor turns a content_data payload into a result, or an error.
// Installed per content_type via RegisterExecutor; exactly one may be
// registered per type.
type Executor func(ctx context.Context, contentData string) (string, error)
