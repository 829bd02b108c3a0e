package growth_test

import (
	"context"
	"testing"

	"github.com/0ld3ull/operator/internal/growth"
)

func TestTrackPerformance_SavesAllReturnedMetrics(t *testing.T) {
	twitter := &fakeTwitter{metrics: []growth.TweetMetrics{
		{TweetID: "t1", Text: "one", Impressions: 10},
		{TweetID: "t2", Text: "two", Impressions: 20},
	}}
	store := newTestStore(t)
	agent := growth.NewAgent(store, twitter, nil, nil, nil, nil, fakeGrowthKillSwitch{}, nil)
	ctx := context.Background()

	if err := agent.TrackPerformance(ctx); err != nil {
		t.Fatalf("TrackPerformance: %v", err)
	}
	tracked, err := store.TweetsTracked(ctx)
	if err != nil {
		t.Fatalf("TweetsTracked: %v", err)
	}
	if tracked != 2 {
		t.Fatalf("want both tweets tracked, got %d", tracked)
	}
}

func TestTrackPerformance_KillSwitchSkipsCycle(t *testing.T) {
	twitter := &fakeTwitter{metrics: []growth.TweetMetrics{{TweetID: "t1"}}}
	store := newTestStore(t)
	agent := growth.NewAgent(store, twitter, nil, nil, nil, nil, fakeGrowthKillSwitch{active: true}, nil)

	if err := agent.TrackPerformance(context.Background()); err != nil {
		t.Fatalf("TrackPerformance: %v", err)
	}
	tracked, err := store.TweetsTracked(context.Background())
	if err != nil {
		t.Fatalf("TweetsTracked: %v", err)
	}
	if tracked != 0 {
		t.Fatalf("want nothing tracked while the kill switch is active, got %d", tracked)
	}
}
