package growth_test

import (
	"context"
	"testing"

	"github.com/0ld3ull/operator/internal/growth"
)

func TestFormatAsThread_SplitsOnSeparatorAndCapsAtFive(t *testing.T) {
	store := newTestStore(t)
	queue := newTestGrowthQueue(t)
	router := &fakeGrowthRouter{response: "one---two---three---four---five---six---seven"}
	agent := growth.NewAgent(store, &fakeTwitter{}, queue, nil, nil, router, fakeGrowthKillSwitch{}, nil)

	tweets, err := agent.FormatAsThread(context.Background(), "an idea")
	if err != nil {
		t.Fatalf("FormatAsThread: %v", err)
	}
	if len(tweets) != 5 {
		t.Fatalf("want at most 5 tweets in a thread, got %d", len(tweets))
	}
	if tweets[0] != "one" {
		t.Fatalf("want the first segment preserved, got %q", tweets[0])
	}
}

func TestFormatAsThread_NoRouterReturnsError(t *testing.T) {
	store := newTestStore(t)
	agent := growth.NewAgent(store, &fakeTwitter{}, nil, nil, nil, nil, fakeGrowthKillSwitch{}, nil)

	if _, err := agent.FormatAsThread(context.Background(), "an idea"); err == nil {
		t.Fatalf("want an error when no model router is configured")
	}
}
