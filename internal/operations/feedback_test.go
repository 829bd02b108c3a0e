package operations_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/memory"
	"github.com/0ld3ull/operator/internal/operations"
)

func newTestFeedbackMemory(t *testing.T) *memory.Manager {
	t.Helper()
	events, err := memory.NewEventStore(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewEventStore: %v", err)
	}
	t.Cleanup(func() { events.Close() })
	return memory.NewManager(nil, nil, events, nil, nil)
}

func TestPollDashboardActions_FeedbackRecordsHighSignificanceEvent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	queue := newTestQueue(t)
	mem := newTestFeedbackMemory(t)

	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{}, dir, operations.WithMemory(mem))
	writeInboxFile(t, dir, "feedback_1.json",
		`{"approval_id":1,"reason":"too salesy","content_context":{"theme_title":"Launch","category":"promo"}}`)

	if err := agent.PollDashboardActions(ctx); err != nil {
		t.Fatalf("PollDashboardActions: %v", err)
	}

	recalled, state, err := mem.WhatHappened(ctx, "salesy")
	if err != nil {
		t.Fatalf("WhatHappened: %v", err)
	}
	if state == memory.StateBlank {
		t.Fatalf("want the feedback recalled as a stored event, got blank recall")
	}
	if recalled == "" {
		t.Fatalf("want non-empty recalled feedback context")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("want the feedback file removed after processing, got %d remaining", len(entries))
	}
}

func TestPollDashboardActions_FeedbackWithoutReasonIsNoop(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	queue := newTestQueue(t)
	mem := newTestFeedbackMemory(t)

	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{}, dir, operations.WithMemory(mem))
	writeInboxFile(t, dir, "feedback_2.json", `{"approval_id":2}`)

	if err := agent.PollDashboardActions(ctx); err != nil {
		t.Fatalf("PollDashboardActions: %v", err)
	}

	stats, err := mem.Events.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats["total_events"] != 0 {
		t.Fatalf("want no event stored for a feedback file missing a reason, got %+v", stats)
	}
}
