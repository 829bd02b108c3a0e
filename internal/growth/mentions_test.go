package growth_test

import (
	"context"
	"testing"

	"github.com/0ld3ull/operator/internal/growth"
)

func TestCheckMentions_DedupsAlreadySeenMentions(t *testing.T) {
	twitter := &fakeTwitter{mentions: []growth.Mention{{ID: "m1", AuthorUsername: "alice", Text: "hello there"}}}
	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	router := &fakeGrowthRouter{response: "thanks!"}
	agent := growth.NewAgent(store, twitter, queue, nil, nil, router, fakeGrowthKillSwitch{}, nil)
	ctx := context.Background()

	if err := agent.CheckMentions(ctx); err != nil {
		t.Fatalf("CheckMentions (first): %v", err)
	}
	seen, err := store.MentionSeen(ctx, "m1")
	if err != nil || !seen {
		t.Fatalf("want mention marked seen, got seen=%v err=%v", seen, err)
	}

	// Second pass should find nothing new since it's already seen — no
	// panics, no duplicate drafts. We can't directly assert "drafted
	// count" from outside, so just assert it doesn't error.
	if err := agent.CheckMentions(ctx); err != nil {
		t.Fatalf("CheckMentions (second): %v", err)
	}
}

func TestCheckMentions_ConversationRepliesAreTaggedWithContext(t *testing.T) {
	twitter := &fakeTwitter{
		myTweets: []growth.Tweet{{ID: "d1", Text: "original tweet text", ReplyCount: 1}},
		repliesByID: map[string][]growth.Mention{
			"d1": {{ID: "r1", AuthorUsername: "bob", Text: "nice point"}},
		},
	}
	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	router := &fakeGrowthRouter{response: "thanks!"}
	agent := growth.NewAgent(store, twitter, queue, nil, nil, router, fakeGrowthKillSwitch{}, nil)
	ctx := context.Background()

	if err := agent.CheckMentions(ctx); err != nil {
		t.Fatalf("CheckMentions: %v", err)
	}
	seen, err := store.MentionSeen(ctx, "r1")
	if err != nil || !seen {
		t.Fatalf("want the conversation reply recorded as seen, got seen=%v err=%v", seen, err)
	}
}

func TestCheckMentions_KillSwitchSkipsCycle(t *testing.T) {
	twitter := &fakeTwitter{mentions: []growth.Mention{{ID: "m1", Text: "hi"}}}
	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	agent := growth.NewAgent(store, twitter, queue, nil, nil, &fakeGrowthRouter{}, fakeGrowthKillSwitch{active: true}, nil)
	ctx := context.Background()

	if err := agent.CheckMentions(ctx); err != nil {
		t.Fatalf("CheckMentions: %v", err)
	}
	seen, err := store.MentionSeen(ctx, "m1")
	if err != nil || seen {
		t.Fatalf("want nothing processed while the kill switch is active, got seen=%v err=%v", seen, err)
	}
}
