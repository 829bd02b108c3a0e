/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package growth implements the periodic Twitter-facing growth pipeline
// (spec §4.7): reply-target discovery, mention monitoring, performance
// tracking, daily analytics reporting, thread formatting, and the
// daily-plan posting-time planner. Grounded on
// original_source/agents/growth_agent.py.
//
// Growth does not run its own timer — the cron orchestrator calls
// FindReplyTargets, CheckMentions, TrackPerformance, and
// GenerateDailyReport on their respective schedules, same division of
// responsibility the Python source documents in its module docstring.
package growth

import "time"

// Minimum engagement thresholds for a tweet to become a reply target.
const (
	minLikes   = 50
	minReplies = 10
)

// Tweet is a single tweet as returned by the Twitter collaborator, used
// both for search results and for David's own timeline.
type Tweet struct {
	ID              string
	AuthorUsername  string
	AuthorFollowers int
	Text            string
	Likes           int
	Replies         int
	Retweets        int
	ReplyCount      int
	CreatedAt       time.Time
}

// Mention is an incoming mention or reply, as returned by the Twitter
// collaborator.
type Mention struct {
	ID                   string
	AuthorUsername       string
	Text                 string
	ConversationContext  string
}

// ReplyTarget is a scored conversation worth joining, persisted in
// reply_targets.
type ReplyTarget struct {
	ID              int64
	TweetID         string
	AuthorUsername  string
	AuthorFollowers int
	TweetText       string
	Likes           int
	Replies         int
	Retweets        int
	Score           float64
	DraftReply      string
	ApprovalID      int64
	Status          string
	FoundAt         time.Time
	SearchQuery     string
}

// TweetMetrics is one tracked tweet's engagement snapshot, persisted in
// tweet_metrics. Re-tracking the same TweetID updates the row in place.
type TweetMetrics struct {
	TweetID     string
	Text        string
	Impressions int
	Likes       int
	Retweets    int
	Replies     int
	Quotes      int
	Bookmarks   int
	CreatedAt   time.Time
	TrackedAt   time.Time
}

// DailyReport is one day's aggregated analytics, persisted in
// daily_reports.
type DailyReport struct {
	ReportDate        string
	TotalTweets       int
	TotalImpressions  int
	TotalLikes        int
	TotalReplies      int
	TotalRetweets     int
	EngagementRate    float64
	BestTweetID       string
	WorstTweetID      string
	ReportText        string
	CreatedAt         time.Time
}

// Plan is one day's organic posting-time schedule, persisted in
// daily_tweet_schedule.
type Plan struct {
	ScheduleDate string
	PlannedCount int
	SlotTimes    []time.Time
}
