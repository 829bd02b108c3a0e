package operations_test

import (
	"context"
	"testing"

	"github.com/0ld3ull/operator/internal/operations"
)

func TestCheckContentGaps_GeneratesFillerTweetsWhenNeverPosted(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	generator := &fakeGenerator{}
	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{}, t.TempDir(),
		operations.WithTweetGenerator(generator))

	if err := agent.CheckContentGaps(ctx); err != nil {
		t.Fatalf("CheckContentGaps: %v", err)
	}
	if generator.calls != 1 {
		t.Fatalf("want one gap-fill generation when no tweet has ever posted, got %d", generator.calls)
	}
}

func TestCheckContentGaps_SkipsGenerationWhenTweetsAlreadyPending(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	if _, err := queue.Submit(ctx, "p", "a", "tweet", []byte(`{}`), "ctx", 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	generator := &fakeGenerator{}
	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{}, t.TempDir(),
		operations.WithTweetGenerator(generator))

	if err := agent.CheckContentGaps(ctx); err != nil {
		t.Fatalf("CheckContentGaps: %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("want no generation while tweets are already pending review, got %d calls", generator.calls)
	}
}

func TestCheckContentGaps_RecentTweetSkipsGeneration(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	id, err := queue.Submit(ctx, "p", "a", "tweet", []byte(`{}`), "ctx", 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := queue.Approve(ctx, id, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := queue.MarkExecuted(ctx, id); err != nil {
		t.Fatalf("MarkExecuted: %v", err)
	}

	generator := &fakeGenerator{}
	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{}, t.TempDir(),
		operations.WithTweetGenerator(generator))

	if err := agent.CheckContentGaps(ctx); err != nil {
		t.Fatalf("CheckContentGaps: %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("want no generation right after a tweet just posted, got %d calls", generator.calls)
	}
}

func TestCheckContentGaps_KillSwitchSkipsEntirely(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	generator := &fakeGenerator{}
	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{active: true}, t.TempDir(),
		operations.WithTweetGenerator(generator))

	if err := agent.CheckContentGaps(ctx); err != nil {
		t.Fatalf("CheckContentGaps: %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("want zero generation calls while the kill switch is active, got %d", generator.calls)
	}
}

func TestGetPipelineStatus_CountsPendingAndApproved(t *testing.T) {
	ctx := context.Background()
	queue := newTestQueue(t)
	if _, err := queue.Submit(ctx, "p", "a", "tweet", []byte(`{}`), "ctx", 0); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	id2, err := queue.Submit(ctx, "p", "a", "tweet", []byte(`{}`), "ctx", 0)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := queue.Approve(ctx, id2, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	agent := operations.NewAgent(queue, nil, nil, nil, nil, fakeKillSwitch{}, t.TempDir())
	status, err := agent.GetPipelineStatus(ctx)
	if err != nil {
		t.Fatalf("GetPipelineStatus: %v", err)
	}
	if status.PendingApprovals != 1 {
		t.Fatalf("want 1 pending approval, got %d", status.PendingApprovals)
	}
	if status.ApprovedAwaitingExecution != 1 {
		t.Fatalf("want 1 approved-unexecuted approval, got %d", status.ApprovedAwaitingExecution)
	}
}
