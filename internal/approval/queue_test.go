package approval_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/0ld3ull/operator/internal/approval"
)

func newTestQueue(t *testing.T) *approval.Queue {
	t.Helper()
	dir := t.TempDir()
	store, err := approval.NewStore(filepath.Join(dir, "approval_queue.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return approval.NewQueue(store)
}

func TestSubmitThenGetByID_RoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{"text":"hello"}`), "ctx", 0.001)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := q.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("want row, got nil")
	}
	if got.Status != approval.StatusPending || got.ExecutedAt != nil {
		t.Errorf("want pending/unexecuted, got status=%s executed_at=%v", got.Status, got.ExecutedAt)
	}
	if string(got.ActionData) != `{"text":"hello"}` {
		t.Errorf("action_data mismatch: %s", got.ActionData)
	}
}

func TestApprove_IdempotentOnSecondCall(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	id, _ := q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{}`), "", 0)

	first, err := q.Approve(ctx, id, "ok")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if first.Status != approval.StatusApproved {
		t.Fatalf("want approved, got %s", first.Status)
	}

	second, err := q.Approve(ctx, id, "ok again")
	if err != nil {
		t.Fatalf("Approve (second): %v", err)
	}
	if second.Status != approval.StatusApproved {
		t.Fatalf("second approve must leave status approved, got %s", second.Status)
	}
	if second.OperatorNotes != first.OperatorNotes {
		t.Fatalf("second approve must not mutate notes, want %q got %q", first.OperatorNotes, second.OperatorNotes)
	}
}

func TestMarkExecuted_IdempotentOnSecondCall(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	id, _ := q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{}`), "", 0)
	if _, err := q.Approve(ctx, id, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if err := q.MarkExecuted(ctx, id); err != nil {
		t.Fatalf("MarkExecuted: %v", err)
	}
	row, _ := q.GetByID(ctx, id)
	firstExecutedAt := *row.ExecutedAt

	if err := q.MarkExecuted(ctx, id); err != nil {
		t.Fatalf("MarkExecuted (second): %v", err)
	}
	row2, _ := q.GetByID(ctx, id)
	if !row2.ExecutedAt.Equal(firstExecutedAt) {
		t.Fatalf("executed_at must not change on repeat call: first=%v second=%v", firstExecutedAt, *row2.ExecutedAt)
	}
}

func TestConcurrentApproveAndReject_ExactlyOneWins(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	id, _ := q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{}`), "", 0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); q.Approve(ctx, id, "") }()
	go func() { defer wg.Done(); q.Reject(ctx, id, "no") }()
	wg.Wait()

	row, err := q.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.Status != approval.StatusApproved && row.Status != approval.StatusRejected {
		t.Fatalf("want a single terminal decision, got %s", row.Status)
	}
}

func TestExpireOld_NoEligibleRowsMutatesNothing(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{}`), "", 0)

	n, err := q.ExpireOld(ctx, 48)
	if err != nil {
		t.Fatalf("ExpireOld: %v", err)
	}
	if n != 0 {
		t.Fatalf("want 0 expired (fresh row), got %d", n)
	}
}

func TestGetApprovedUnexecuted_UsedForCrashRecovery(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	id, _ := q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{}`), "", 0)
	q.Approve(ctx, id, "")

	rows, err := q.GetApprovedUnexecuted(ctx)
	if err != nil {
		t.Fatalf("GetApprovedUnexecuted: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != id {
		t.Fatalf("want one unexecuted approved row, got %v", rows)
	}

	q.MarkExecuted(ctx, id)
	rows, err = q.GetApprovedUnexecuted(ctx)
	if err != nil {
		t.Fatalf("GetApprovedUnexecuted (after exec): %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("want no unexecuted rows after mark_executed, got %v", rows)
	}
}

func TestFormatPreview_Tweet(t *testing.T) {
	a := &approval.Approval{ActionType: "tweet", ActionData: json.RawMessage(`{"text":"hi there"}`)}
	preview := approval.FormatPreview(a)
	if preview != "[tweet] hi there" {
		t.Fatalf("unexpected preview: %q", preview)
	}
}

func TestExpireOld_MarksOldPendingRows(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	id, _ := q.Submit(ctx, "p", "a", "tweet", json.RawMessage(`{}`), "", 0)

	// Backdate created_at directly via the store's db is not exposed, so we
	// instead exercise expire_old's zero-day boundary: an expiryHours of 0
	// means "now" is the cutoff, so the just-submitted row is eligible.
	time.Sleep(10 * time.Millisecond)
	n, err := q.ExpireOld(ctx, 0)
	if err != nil {
		t.Fatalf("ExpireOld: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 expired row, got %d", n)
	}
	row, _ := q.GetByID(ctx, id)
	if row.Status != approval.StatusExpired {
		t.Fatalf("want expired, got %s", row.Status)
	}
}
