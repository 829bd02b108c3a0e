package growth_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/approval"
	"github.com/0ld3ull/operator/internal/growth"
)

func newTestGrowthQueue(t *testing.T) *approval.Queue {
	t.Helper()
	store, err := approval.NewStore(filepath.Join(t.TempDir(), "approval.db"))
	if err != nil {
		t.Fatalf("approval.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return approval.NewQueue(store)
}

func TestFindReplyTargets_FiltersScoresAndCapsAtFive(t *testing.T) {
	twitter := &fakeTwitter{conversations: map[string][]growth.Tweet{}}
	for i := 0; i < 7; i++ {
		twitter.conversations["query"] = append(twitter.conversations["query"], growth.Tweet{
			ID: "t" + string(rune('a'+i)), AuthorUsername: "user", Likes: 100 + i, Replies: 20, AuthorFollowers: 1000,
		})
	}
	// One low-engagement tweet that should be filtered out entirely.
	twitter.conversations["query"] = append(twitter.conversations["query"], growth.Tweet{ID: "low", Likes: 1, Replies: 1})

	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	router := &fakeGrowthRouter{response: "a reply"}
	agent := growth.NewAgent(store, twitter, queue, nil, nil, router, fakeGrowthKillSwitch{}, []string{"query"},
		growth.WithRand(rand.New(rand.NewSource(1))))

	if err := agent.FindReplyTargets(context.Background()); err != nil {
		t.Fatalf("FindReplyTargets: %v", err)
	}

	count, err := store.ReplyTargetsSince(context.Background(), epoch())
	if err != nil {
		t.Fatalf("ReplyTargetsSince: %v", err)
	}
	if count != 5 {
		t.Fatalf("want at most 5 reply targets submitted, got %d", count)
	}
}

func TestFindReplyTargets_AlreadyTargetedTweetIsSkipped(t *testing.T) {
	twitter := &fakeTwitter{conversations: map[string][]growth.Tweet{
		"query": {{ID: "dup", AuthorUsername: "user", Likes: 200, Replies: 40}},
	}}
	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	router := &fakeGrowthRouter{response: "a reply"}
	agent := growth.NewAgent(store, twitter, queue, nil, nil, router, fakeGrowthKillSwitch{}, []string{"query"},
		growth.WithRand(rand.New(rand.NewSource(1))))
	ctx := context.Background()

	if err := agent.FindReplyTargets(ctx); err != nil {
		t.Fatalf("FindReplyTargets (first): %v", err)
	}
	if err := agent.FindReplyTargets(ctx); err != nil {
		t.Fatalf("FindReplyTargets (second): %v", err)
	}

	count, err := store.ReplyTargetsSince(ctx, epoch())
	if err != nil {
		t.Fatalf("ReplyTargetsSince: %v", err)
	}
	if count != 1 {
		t.Fatalf("want the already-targeted tweet not re-submitted, got %d reply targets", count)
	}
}

func TestFindReplyTargets_KillSwitchSkipsCycle(t *testing.T) {
	twitter := &fakeTwitter{conversations: map[string][]growth.Tweet{
		"query": {{ID: "t1", Likes: 200, Replies: 40}},
	}}
	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	agent := growth.NewAgent(store, twitter, queue, nil, nil, &fakeGrowthRouter{}, fakeGrowthKillSwitch{active: true}, []string{"query"})

	if err := agent.FindReplyTargets(context.Background()); err != nil {
		t.Fatalf("FindReplyTargets: %v", err)
	}
	count, err := store.ReplyTargetsSince(context.Background(), epoch())
	if err != nil {
		t.Fatalf("ReplyTargetsSince: %v", err)
	}
	if count != 0 {
		t.Fatalf("want no reply targets while the kill switch is active, got %d", count)
	}
}
