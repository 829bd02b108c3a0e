package killswitch_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/killswitch"
	_ "modernc.org/sqlite"
)

func newTestSwitch(t *testing.T) *killswitch.Switch {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ks.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sw, err := killswitch.New(db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sw
}

func TestIsActive_DefaultsFalse(t *testing.T) {
	sw := newTestSwitch(t)
	active, err := sw.IsActive(context.Background())
	if err != nil {
		t.Fatalf("IsActive: %v", err)
	}
	if active {
		t.Fatal("want inactive by default")
	}
}

func TestActivateThenDeactivate_RoundTrip(t *testing.T) {
	sw := newTestSwitch(t)
	ctx := context.Background()

	if err := sw.Activate(ctx, "operator requested pause"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	state, err := sw.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !state.Active || state.Reason != "operator requested pause" || state.Since == nil {
		t.Fatalf("want active with reason and timestamp, got %+v", state)
	}

	if err := sw.Deactivate(ctx, "resuming"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	active, err := sw.IsActive(ctx)
	if err != nil {
		t.Fatalf("IsActive: %v", err)
	}
	if active {
		t.Fatal("want inactive after Deactivate")
	}
}
