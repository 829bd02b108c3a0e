package audit_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0ld3ull/operator/internal/audit"
)

func TestRecord_CriticalInvokesAlertSynchronously(t *testing.T) {
	var invoked int32
	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"), 100, func(evt audit.Event) {
		atomic.StoreInt32(&invoked, 1)
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	err = store.Record(context.Background(), audit.Event{
		Severity: audit.SeverityCritical,
		Topic:    "kill_switch",
		Message:  "kill switch activated",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	// No goroutine scheduling involved: the callback fires on this
	// goroutine before Record returns.
	if atomic.LoadInt32(&invoked) != 1 {
		t.Fatal("want alert callback invoked synchronously for severity=critical")
	}
}

func TestRecord_NonCriticalDoesNotInvokeAlert(t *testing.T) {
	var invoked int32
	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"), 100, func(evt audit.Event) {
		atomic.AddInt32(&invoked, 1)
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	for _, sev := range []audit.Severity{audit.SeverityInfo, audit.SeverityWarn, audit.SeverityReject} {
		if err := store.Emit(context.Background(), "p", sev, "topic", "msg", true); err != nil {
			t.Fatalf("Emit(%s): %v", sev, err)
		}
	}
	if atomic.LoadInt32(&invoked) != 0 {
		t.Fatalf("want no alert for non-critical severities, got %d invocations", invoked)
	}
}

func TestQueryPersisted_FiltersBySeverityAndProject(t *testing.T) {
	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"), 100, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	store.Emit(ctx, "p1", audit.SeverityInfo, "a", "one", true)
	store.Emit(ctx, "p2", audit.SeverityWarn, "a", "two", true)
	store.Emit(ctx, "p1", audit.SeverityCritical, "b", "three", false)

	rows, err := store.QueryPersisted(ctx, audit.Filter{Project: "p1"})
	if err != nil {
		t.Fatalf("QueryPersisted: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows for project p1, got %d", len(rows))
	}

	rows, err = store.QueryPersisted(ctx, audit.Filter{Project: "p1", Severity: audit.SeverityCritical})
	if err != nil {
		t.Fatalf("QueryPersisted (severity): %v", err)
	}
	if len(rows) != 1 || rows[0].Message != "three" {
		t.Fatalf("want only the critical p1 row, got %+v", rows)
	}
}

func TestPurge_RemovesOnlyOlderThanCutoff(t *testing.T) {
	store, err := audit.NewStore(filepath.Join(t.TempDir(), "audit.db"), 100, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	store.Emit(ctx, "p", audit.SeverityInfo, "a", "fresh", true)

	deleted, err := store.Purge(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("want 0 deleted (fresh row within retention), got %d", deleted)
	}

	deleted, err = store.Purge(ctx, 0)
	if err != nil {
		t.Fatalf("Purge (cutoff=now): %v", err)
	}
	if deleted != 1 {
		t.Fatalf("want 1 deleted with zero retention, got %d", deleted)
	}
}
