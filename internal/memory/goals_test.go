package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/memory"
)

func newTestGoalStore(t *testing.T) *memory.GoalStore {
	t.Helper()
	store, err := memory.NewGoalStore(filepath.Join(t.TempDir(), "goals.db"))
	if err != nil {
		t.Fatalf("NewGoalStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAdd_ClampsPriorityToValidRange(t *testing.T) {
	store := newTestGoalStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Too high", "", 99, "conversation", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	goals, err := store.GetActive(ctx, 10)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	var found *memory.Goal
	for i := range goals {
		if goals[i].ID == id {
			found = &goals[i]
		}
	}
	if found == nil || found.Priority != 10 {
		t.Fatalf("want priority clamped to 10, got %+v", found)
	}
}

func TestComplete_RemovesFromActiveList(t *testing.T) {
	store := newTestGoalStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Ship v2", "", 8, "conversation", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Complete(ctx, id); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	active, err := store.GetActive(ctx, 10)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	for _, g := range active {
		if g.ID == id {
			t.Fatal("want completed goal removed from active list")
		}
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats["completed"] != 1 {
		t.Fatalf("want 1 completed goal, got %v", stats["completed"])
	}
}

func TestGetActive_OrderedByPriorityDescending(t *testing.T) {
	store := newTestGoalStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "Low", "", 2, "conversation", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, "High", "", 9, "conversation", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	active, err := store.GetActive(ctx, 10)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if len(active) != 2 || active[0].Title != "High" {
		t.Fatalf("want highest-priority goal first, got %+v", active)
	}
}
