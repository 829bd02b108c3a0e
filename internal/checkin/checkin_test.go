package checkin_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/0ld3ull/operator/internal/checkin"
)

func newTestStore(t *testing.T) *checkin.Store {
	t.Helper()
	store, err := checkin.NewStore(filepath.Join(t.TempDir(), "checkin.db"), 4*time.Hour)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestShouldSend_DuplicateWithinWindowDropsSilently(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	send, urgency, hash, err := store.ShouldSend(ctx, "schedule", "tweet posted", "executed")
	if err != nil {
		t.Fatalf("ShouldSend: %v", err)
	}
	if !send {
		t.Fatal("want first send to proceed")
	}
	if err := store.RecordSent(ctx, "schedule", hash, "tweet posted", "executed"); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}

	send2, _, _, err := store.ShouldSend(ctx, "schedule", "tweet posted", "executed")
	if err != nil {
		t.Fatalf("ShouldSend (2nd): %v", err)
	}
	if send2 {
		t.Fatal("want duplicate message within dedup window to be dropped")
	}
	_ = urgency
}

func TestClassifyUrgency_KeywordTriggersUrgent(t *testing.T) {
	u := checkin.ClassifyUrgency("executed", "API down, please check credentials")
	if u != checkin.UrgencyUrgent {
		t.Fatalf("want urgent for keyword match, got %s", u)
	}
}

func TestClassifyUrgency_ProgressIsSkipped(t *testing.T) {
	u := checkin.ClassifyUrgency("rendering", "rendering frame 12/30")
	if u != checkin.UrgencySkip {
		t.Fatalf("want skip for progress action type, got %s", u)
	}
}

func TestClassifyUrgency_PlainMessageIsNotify(t *testing.T) {
	u := checkin.ClassifyUrgency("executed", "tweet posted successfully")
	if u != checkin.UrgencyNotify {
		t.Fatalf("want notify for plain message, got %s", u)
	}
}

func TestShouldSend_DifferentMessagesBothSend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	send1, _, h1, _ := store.ShouldSend(ctx, "t", "message A", "executed")
	store.RecordSent(ctx, "t", h1, "message A", "executed")

	send2, _, _, _ := store.ShouldSend(ctx, "t", "message B", "executed")
	if !send1 || !send2 {
		t.Fatal("want two distinct messages to both be sendable")
	}
}
