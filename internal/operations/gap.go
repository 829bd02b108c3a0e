/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/0ld3ull/operator/internal/approval"
	"github.com/0ld3ull/operator/internal/audit"
)

// operatorApprovalsURL is the dashboard link included in content-gap
// reminders and generation notifications.
const operatorApprovalsURL = "http://127.0.0.1:5000/approvals"

// CheckContentGaps keeps David posting: if there's been no tweet in
// tweetGapHours (or ever) and nothing is already pending review, it
// generates fillerCount tweets for operator approval. Called once at boot
// and safe to call periodically (spec §4.8).
func (a *Agent) CheckContentGaps(ctx context.Context) error {
	if a.killSwitch != nil {
		active, err := a.killSwitch.IsActive(ctx)
		if err != nil {
			return fmt.Errorf("check kill switch: %w", err)
		}
		if active {
			return nil
		}
	}
	if a.queue == nil {
		return nil
	}

	last, err := a.queue.GetLastExecuted(ctx, "tweet")
	if err != nil {
		return fmt.Errorf("get last executed tweet: %w", err)
	}
	hoursSince, hasLast := hoursSinceExecuted(last)

	pending, err := a.queue.GetPending(ctx, "")
	if err != nil {
		return fmt.Errorf("get pending approvals: %w", err)
	}
	pendingTweets := 0
	for _, p := range pending {
		if p.ActionType == "tweet" {
			pendingTweets++
		}
	}

	if pendingTweets > 0 {
		a.notify(ctx, "content_gap", "reminder", fmt.Sprintf(
			"%d tweets waiting for your review!\n\nOpen Mission Control to approve:\n%s",
			pendingTweets, operatorApprovalsURL))
		return nil
	}

	if hasLast && hoursSince < tweetGapHours {
		return nil
	}

	gapMsg := "No tweets posted yet"
	if hasLast {
		gapMsg = fmt.Sprintf("No tweets posted in %.0fh", hoursSince)
	}

	if a.generator == nil {
		a.notify(ctx, "content_gap", "failed", fmt.Sprintf("%s, but no tweet generator is configured.", gapMsg))
		return nil
	}
	if err := a.generator.GenerateTweets(ctx, fillerCount); err != nil {
		a.notify(ctx, "content_gap", "failed", fmt.Sprintf("Tried to generate tweets but failed: %v", err))
		return nil
	}

	a.notify(ctx, "content_gap", "content_generated", fmt.Sprintf(
		"%s.\n\nGenerated %d tweets for review.\nOpen Mission Control to approve:\n%s",
		gapMsg, fillerCount, operatorApprovalsURL))
	a.auditLog(ctx, audit.SeverityInfo, "content_gap", fmt.Sprintf("%s — generated %d tweets", gapMsg, fillerCount), true)
	return nil
}

func hoursSinceExecuted(a *approval.Approval) (float64, bool) {
	if a == nil || a.ExecutedAt == nil {
		return 0, false
	}
	return time.Since(*a.ExecutedAt).Hours(), true
}

// PipelineStatus summarizes pipeline depth for /status-style reporting.
type PipelineStatus struct {
	PendingApprovals          int
	ApprovedAwaitingExecution int
	ScheduledJobs             int
}

// GetPipelineStatus returns pending/approved/scheduled counts (spec §4.8
// get_pipeline_status).
func (a *Agent) GetPipelineStatus(ctx context.Context) (PipelineStatus, error) {
	var status PipelineStatus
	if a.queue != nil {
		pending, err := a.queue.GetPending(ctx, "")
		if err != nil {
			return status, fmt.Errorf("get pending: %w", err)
		}
		status.PendingApprovals = len(pending)

		approved, err := a.queue.GetApprovedUnexecuted(ctx)
		if err != nil {
			return status, fmt.Errorf("get approved unexecuted: %w", err)
		}
		status.ApprovedAwaitingExecution = len(approved)
	}
	if a.scheduler != nil {
		pendingJobs, err := a.scheduler.GetPending(ctx)
		if err == nil {
			status.ScheduledJobs = len(pendingJobs)
		}
	}
	return status, nil
}
