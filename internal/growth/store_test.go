package growth_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/0ld3ull/operator/internal/growth"
)

func newTestStore(t *testing.T) *growth.Store {
	t.Helper()
	store, err := growth.NewStore(filepath.Join(t.TempDir(), "growth.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreReplyTargetThenAlreadyTargeted_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	already, err := store.AlreadyTargeted(ctx, "tweet-1")
	if err != nil || already {
		t.Fatalf("want not-yet-targeted, got already=%v err=%v", already, err)
	}

	if err := store.StoreReplyTarget(ctx, growth.ReplyTarget{TweetID: "tweet-1", AuthorUsername: "alice", Score: 12}); err != nil {
		t.Fatalf("StoreReplyTarget: %v", err)
	}

	already, err = store.AlreadyTargeted(ctx, "tweet-1")
	if err != nil || !already {
		t.Fatalf("want already-targeted after storing, got already=%v err=%v", already, err)
	}
}

func TestStoreSeenMentionThenMentionSeen_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seen, err := store.MentionSeen(ctx, "m-1")
	if err != nil || seen {
		t.Fatalf("want not-yet-seen, got seen=%v err=%v", seen, err)
	}

	if err := store.StoreSeenMention(ctx, growth.Mention{ID: "m-1", AuthorUsername: "bob"}, false); err != nil {
		t.Fatalf("StoreSeenMention: %v", err)
	}

	seen, err = store.MentionSeen(ctx, "m-1")
	if err != nil || !seen {
		t.Fatalf("want seen after storing, got seen=%v err=%v", seen, err)
	}
}

func TestSaveTweetMetrics_UpsertsCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := growth.TweetMetrics{TweetID: "t-1", Text: "hello", Impressions: 100, Likes: 5}
	if err := store.SaveTweetMetrics(ctx, m); err != nil {
		t.Fatalf("SaveTweetMetrics: %v", err)
	}
	m.Impressions = 500
	m.Likes = 50
	if err := store.SaveTweetMetrics(ctx, m); err != nil {
		t.Fatalf("SaveTweetMetrics (update): %v", err)
	}

	tracked, err := store.TweetsTracked(ctx)
	if err != nil {
		t.Fatalf("TweetsTracked: %v", err)
	}
	if tracked != 1 {
		t.Fatalf("want re-tracking the same tweet_id to update in place, got %d rows", tracked)
	}
}

func TestGetDailyPlan_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	plan, err := store.GetDailyPlan(context.Background(), "2026-07-30")
	if err != nil {
		t.Fatalf("GetDailyPlan: %v", err)
	}
	if plan != nil {
		t.Fatalf("want nil for an unplanned date, got %+v", plan)
	}
}

func TestStoreDailyPlanThenGetDailyPlan_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	slot := time.Date(2026, 7, 30, 10, 15, 0, 0, time.UTC)
	plan := growth.Plan{ScheduleDate: "2026-07-30", PlannedCount: 1, SlotTimes: []time.Time{slot}}
	if err := store.StoreDailyPlan(ctx, plan); err != nil {
		t.Fatalf("StoreDailyPlan: %v", err)
	}

	got, err := store.GetDailyPlan(ctx, "2026-07-30")
	if err != nil {
		t.Fatalf("GetDailyPlan: %v", err)
	}
	if got == nil || got.PlannedCount != 1 || len(got.SlotTimes) != 1 || !got.SlotTimes[0].Equal(slot) {
		t.Fatalf("want the stored plan round-tripped, got %+v", got)
	}
}
