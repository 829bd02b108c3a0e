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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/0ld3ull/operator/internal/migration"
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// sqliteTimeLayout is SQLite's native datetime format, required so
// strftime() in bestPerformingHours can parse created_at directly —
// unlike internal/research, this store's timestamps are queried by the
// database itself, not just round-tripped through Go.
const sqliteTimeLayout = "2006-01-02 15:04:05"

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS tweet_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tweet_id TEXT UNIQUE NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		impressions INTEGER NOT NULL DEFAULT 0,
		likes INTEGER NOT NULL DEFAULT 0,
		retweets INTEGER NOT NULL DEFAULT 0,
		replies INTEGER NOT NULL DEFAULT 0,
		quotes INTEGER NOT NULL DEFAULT 0,
		bookmarks INTEGER NOT NULL DEFAULT 0,
		created_at TEXT,
		tracked_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reply_targets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tweet_id TEXT NOT NULL,
		author_username TEXT NOT NULL DEFAULT '',
		author_followers INTEGER NOT NULL DEFAULT 0,
		tweet_text TEXT NOT NULL DEFAULT '',
		likes INTEGER NOT NULL DEFAULT 0,
		replies INTEGER NOT NULL DEFAULT 0,
		retweets INTEGER NOT NULL DEFAULT 0,
		score REAL NOT NULL DEFAULT 0,
		draft_reply TEXT NOT NULL DEFAULT '',
		approval_id INTEGER,
		status TEXT NOT NULL DEFAULT 'found',
		found_at TEXT NOT NULL,
		search_query TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reply_targets_tweet_id ON reply_targets(tweet_id)`,
	`CREATE TABLE IF NOT EXISTS daily_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_date TEXT NOT NULL,
		total_tweets INTEGER NOT NULL DEFAULT 0,
		total_impressions INTEGER NOT NULL DEFAULT 0,
		total_likes INTEGER NOT NULL DEFAULT 0,
		total_replies INTEGER NOT NULL DEFAULT 0,
		total_retweets INTEGER NOT NULL DEFAULT 0,
		engagement_rate REAL NOT NULL DEFAULT 0,
		best_tweet_id TEXT,
		worst_tweet_id TEXT,
		report_text TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS seen_mentions (
		tweet_id TEXT PRIMARY KEY,
		author_username TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		is_reply_to_david INTEGER NOT NULL DEFAULT 0,
		reply_drafted INTEGER NOT NULL DEFAULT 0,
		approval_id INTEGER,
		seen_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS daily_tweet_schedule (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_date TEXT NOT NULL,
		planned_count INTEGER NOT NULL,
		slot_times TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_tweet_schedule_date ON daily_tweet_schedule(schedule_date)`,
}

// Store is the growth.db SQLite store (spec §4.7), same WAL/single
// connection/migration shape as every other store in this repo.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the growth database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := migration.EnsureVersion(db, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema version: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// AlreadyTargeted reports whether a reply_targets row already exists for
// tweetID (invariant: never double-draft the same tweet).
func (s *Store) AlreadyTargeted(ctx context.Context, tweetID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM reply_targets WHERE tweet_id = ? LIMIT 1`, tweetID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("already targeted %s: %w", tweetID, err)
	}
	return true, nil
}

// StoreReplyTarget persists a scored reply target after its draft has
// been submitted to the approval queue.
func (s *Store) StoreReplyTarget(ctx context.Context, t ReplyTarget) error {
	var approvalID any
	if t.ApprovalID != 0 {
		approvalID = t.ApprovalID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO reply_targets
			(tweet_id, author_username, author_followers, tweet_text, likes, replies,
			 retweets, score, draft_reply, approval_id, status, found_at, search_query)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TweetID, t.AuthorUsername, t.AuthorFollowers, t.TweetText, t.Likes, t.Replies,
		t.Retweets, t.Score, t.DraftReply, approvalID, orDefault(t.Status, "submitted"),
		nowStamp(), t.SearchQuery)
	if err != nil {
		return fmt.Errorf("store reply target %s: %w", t.TweetID, err)
	}
	return nil
}

// ReplyTargetsSince counts reply targets found after since.
func (s *Store) ReplyTargetsSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reply_targets WHERE found_at > ?`, since.UTC().Format(sqliteTimeLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reply targets since: %w", err)
	}
	return count, nil
}

// MentionSeen reports whether tweetID has already been recorded in
// seen_mentions.
func (s *Store) MentionSeen(ctx context.Context, tweetID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM seen_mentions WHERE tweet_id = ? LIMIT 1`, tweetID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mention seen %s: %w", tweetID, err)
	}
	return true, nil
}

// StoreSeenMention marks a mention as seen so a later poll does not
// re-process it.
func (s *Store) StoreSeenMention(ctx context.Context, m Mention, isReplyToDavid bool) error {
	flag := 0
	if isReplyToDavid {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO seen_mentions (tweet_id, author_username, text, is_reply_to_david, seen_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.AuthorUsername, m.Text, flag, nowStamp())
	if err != nil {
		return fmt.Errorf("store seen mention %s: %w", m.ID, err)
	}
	return nil
}

// MarkMentionDrafted records which approval a seen mention's reply draft
// landed as.
func (s *Store) MarkMentionDrafted(ctx context.Context, tweetID string, approvalID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE seen_mentions SET reply_drafted = 1, approval_id = ? WHERE tweet_id = ?`,
		approvalID, tweetID)
	if err != nil {
		return fmt.Errorf("mark mention drafted %s: %w", tweetID, err)
	}
	return nil
}

// SaveTweetMetrics upserts one tweet's engagement snapshot; re-tracking
// an already-tracked tweet updates its counters in place.
func (s *Store) SaveTweetMetrics(ctx context.Context, m TweetMetrics) error {
	var createdAt any
	if !m.CreatedAt.IsZero() {
		createdAt = m.CreatedAt.UTC().Format(sqliteTimeLayout)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tweet_metrics
			(tweet_id, text, impressions, likes, retweets, replies, quotes, bookmarks, created_at, tracked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tweet_id) DO UPDATE SET
			impressions = excluded.impressions,
			likes = excluded.likes,
			retweets = excluded.retweets,
			replies = excluded.replies,
			quotes = excluded.quotes,
			bookmarks = excluded.bookmarks,
			tracked_at = excluded.tracked_at`,
		m.TweetID, m.Text, m.Impressions, m.Likes, m.Retweets, m.Replies, m.Quotes, m.Bookmarks,
		createdAt, nowStamp())
	if err != nil {
		return fmt.Errorf("save tweet metrics %s: %w", m.TweetID, err)
	}
	return nil
}

// metricsAggregate is the last-24h summary used by GenerateDailyReport.
type metricsAggregate struct {
	TotalTweets      int
	TotalImpressions int
	TotalLikes       int
	TotalReplies     int
	TotalRetweets    int
}

func (s *Store) aggregateMetricsSince(ctx context.Context, cutoff time.Time) (metricsAggregate, error) {
	var agg metricsAggregate
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(impressions), 0), COALESCE(SUM(likes), 0),
		       COALESCE(SUM(replies), 0), COALESCE(SUM(retweets), 0)
		FROM tweet_metrics WHERE tracked_at > ?`, cutoff.UTC().Format(sqliteTimeLayout)).
		Scan(&agg.TotalTweets, &agg.TotalImpressions, &agg.TotalLikes, &agg.TotalReplies, &agg.TotalRetweets)
	if err != nil {
		return metricsAggregate{}, fmt.Errorf("aggregate metrics: %w", err)
	}
	return agg, nil
}

type rankedTweet struct {
	TweetID     string
	Text        string
	Impressions int
	Likes       int
}

func (s *Store) bestTweetSince(ctx context.Context, cutoff time.Time) (*rankedTweet, error) {
	return s.rankedTweetSince(ctx, cutoff, "DESC")
}

func (s *Store) worstTweetSince(ctx context.Context, cutoff time.Time) (*rankedTweet, error) {
	return s.rankedTweetSince(ctx, cutoff, "ASC")
}

func (s *Store) rankedTweetSince(ctx context.Context, cutoff time.Time, order string) (*rankedTweet, error) {
	query := fmt.Sprintf(`
		SELECT tweet_id, text, impressions, likes FROM tweet_metrics
		WHERE tracked_at > ? ORDER BY impressions %s LIMIT 1`, order)
	var t rankedTweet
	err := s.db.QueryRowContext(ctx, query, cutoff.UTC().Format(sqliteTimeLayout)).
		Scan(&t.TweetID, &t.Text, &t.Impressions, &t.Likes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ranked tweet: %w", err)
	}
	return &t, nil
}

// StoreDailyReport persists a generated daily report.
func (s *Store) StoreDailyReport(ctx context.Context, r DailyReport) error {
	var best, worst any
	if r.BestTweetID != "" {
		best = r.BestTweetID
	}
	if r.WorstTweetID != "" {
		worst = r.WorstTweetID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_reports
			(report_date, total_tweets, total_impressions, total_likes, total_replies,
			 total_retweets, engagement_rate, best_tweet_id, worst_tweet_id, report_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportDate, r.TotalTweets, r.TotalImpressions, r.TotalLikes, r.TotalReplies,
		r.TotalRetweets, r.EngagementRate, best, worst, r.ReportText, nowStamp())
	if err != nil {
		return fmt.Errorf("store daily report: %w", err)
	}
	return nil
}

// ReportsGenerated counts all daily reports ever generated.
func (s *Store) ReportsGenerated(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("reports generated: %w", err)
	}
	return count, nil
}

// bestPerformingHours returns the UTC hours (0-23) with the highest
// average engagement, requiring at least 20 tracked tweets and 3 samples
// per hour before trusting the signal — otherwise the planner falls back
// to pure random spacing.
func (s *Store) bestPerformingHours(ctx context.Context) ([]int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweet_metrics`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count tweet metrics: %w", err)
	}
	if total < 20 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(strftime('%H', created_at) AS INTEGER) AS hour,
		       AVG(likes + retweets + replies) AS avg_engagement,
		       COUNT(*) AS sample_size
		FROM tweet_metrics
		WHERE created_at IS NOT NULL AND created_at != ''
		GROUP BY hour
		HAVING sample_size >= 3
		ORDER BY avg_engagement DESC
		LIMIT 6`)
	if err != nil {
		return nil, fmt.Errorf("best performing hours: %w", err)
	}
	defer rows.Close()

	var hours []int
	for rows.Next() {
		var hour int
		var avgEngagement float64
		var sampleSize int
		if err := rows.Scan(&hour, &avgEngagement, &sampleSize); err != nil {
			return nil, fmt.Errorf("scan best hour: %w", err)
		}
		hours = append(hours, hour)
	}
	return hours, rows.Err()
}

// GetDailyPlan reads the most recent schedule row for dateStr, or nil if
// none exists yet.
func (s *Store) GetDailyPlan(ctx context.Context, dateStr string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT schedule_date, planned_count, slot_times FROM daily_tweet_schedule
		WHERE schedule_date = ? ORDER BY id DESC LIMIT 1`, dateStr)

	var p Plan
	var slotJSON string
	err := row.Scan(&p.ScheduleDate, &p.PlannedCount, &slotJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily plan: %w", err)
	}
	var raw []string
	if err := json.Unmarshal([]byte(slotJSON), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal slot times: %w", err)
	}
	for _, s := range raw {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parse slot time %s: %w", s, err)
		}
		p.SlotTimes = append(p.SlotTimes, t)
	}
	return &p, nil
}

// StoreDailyPlan persists a freshly generated plan.
func (s *Store) StoreDailyPlan(ctx context.Context, p Plan) error {
	slots := make([]string, len(p.SlotTimes))
	for i, t := range p.SlotTimes {
		slots[i] = t.UTC().Format(time.RFC3339)
	}
	slotJSON, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("marshal slot times: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_tweet_schedule (schedule_date, planned_count, slot_times, created_at)
		VALUES (?, ?, ?, ?)`,
		p.ScheduleDate, p.PlannedCount, string(slotJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store daily plan: %w", err)
	}
	return nil
}

// TweetsTracked counts all rows ever written to tweet_metrics.
func (s *Store) TweetsTracked(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweet_metrics`).Scan(&count); err != nil {
		return 0, fmt.Errorf("tweets tracked: %w", err)
	}
	return count, nil
}

func nowStamp() string { return time.Now().UTC().Format(sqliteTimeLayout) }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
