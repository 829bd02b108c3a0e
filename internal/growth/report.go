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
	"time"
)

// GenerateDailyReport aggregates the last 24h of tracked metrics, finds
// the best/worst performing tweet by impressions, stores the report, and
// sends a summary notification (spec §4.7, grounded on
// growth_agent.py's generate_daily_report).
func (a *Agent) GenerateDailyReport(ctx context.Context) error {
	active, err := a.killSwitch.IsActive(ctx)
	if err != nil {
		return fmt.Errorf("kill switch check: %w", err)
	}
	if active {
		return nil
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	agg, err := a.store.aggregateMetricsSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("aggregate metrics: %w", err)
	}
	if agg.TotalTweets == 0 {
		return nil
	}

	best, err := a.store.bestTweetSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("best tweet: %w", err)
	}
	worst, err := a.store.worstTweetSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("worst tweet: %w", err)
	}

	report := DailyReport{
		ReportDate:       time.Now().UTC().Format("2006-01-02"),
		TotalTweets:      agg.TotalTweets,
		TotalImpressions: agg.TotalImpressions,
		TotalLikes:       agg.TotalLikes,
		TotalReplies:     agg.TotalReplies,
		TotalRetweets:    agg.TotalRetweets,
	}
	if agg.TotalImpressions > 0 {
		report.EngagementRate = float64(agg.TotalLikes+agg.TotalReplies+agg.TotalRetweets) / float64(agg.TotalImpressions) * 100
	}

	bestText, worstText := "", ""
	if best != nil {
		report.BestTweetID = best.TweetID
		bestText = fmt.Sprintf("%s... (%d imp, %d likes)", truncate(best.Text, 80), best.Impressions, best.Likes)
	}
	if worst != nil {
		report.WorstTweetID = worst.TweetID
		worstText = fmt.Sprintf("%s... (%d imp, %d likes)", truncate(worst.Text, 80), worst.Impressions, worst.Likes)
	}

	report.ReportText = formatDailyReport(report, bestText, worstText)

	if err := a.store.StoreDailyReport(ctx, report); err != nil {
		return fmt.Errorf("store daily report: %w", err)
	}
	a.notify(ctx, "Daily growth report", report.ReportText, "info")

	if a.audit != nil {
		a.audit.Emit(ctx, "growth", auditSeverityInfo, "daily_report",
			fmt.Sprintf("Daily report: %d tweets, %d impressions", agg.TotalTweets, agg.TotalImpressions), true)
	}
	return nil
}

func formatDailyReport(r DailyReport, bestText, worstText string) string {
	body := fmt.Sprintf(
		"Tweets: %d | Impressions: %d | Likes: %d | Replies: %d | Retweets: %d | Engagement: %.1f%%",
		r.TotalTweets, r.TotalImpressions, r.TotalLikes, r.TotalReplies, r.TotalRetweets, r.EngagementRate)
	if bestText != "" {
		body += fmt.Sprintf("\nBest: %s", bestText)
	}
	if worstText != "" {
		body += fmt.Sprintf("\nWorst: %s", worstText)
	}
	return body
}
