/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package growth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// TrackPerformance pulls recent tweet metrics and upserts them into
// growth.db, updating counters for already-tracked tweets as engagement
// accumulates (spec §4.7, grounded on growth_agent.py's
// track_performance).
func (a *Agent) TrackPerformance(ctx context.Context) error {
	active, err := a.killSwitch.IsActive(ctx)
	if err != nil {
		return fmt.Errorf("kill switch check: %w", err)
	}
	if active {
		return nil
	}

	metrics, err := a.twitter.GetMyTweetMetrics(ctx, 20)
	if err != nil {
		a.log.Warn("performance tracking failed", zap.Error(err))
		return nil
	}
	if len(metrics) == 0 {
		return nil
	}

	tracked := 0
	for _, m := range metrics {
		if err := a.store.SaveTweetMetrics(ctx, m); err != nil {
			a.log.Warn("failed to save tweet metrics", zap.String("tweet_id", m.TweetID), zap.Error(err))
			continue
		}
		tracked++
	}

	if a.audit != nil {
		a.audit.Emit(ctx, "growth", auditSeverityInfo, "performance",
			fmt.Sprintf("Tracked %d tweet metrics", tracked), true)
	}
	return nil
}
