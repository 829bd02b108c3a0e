package memory_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/memory"
)

func newTestKnowledgeStore(t *testing.T) *memory.KnowledgeStore {
	t.Helper()
	store, err := memory.NewKnowledgeStore(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatalf("NewKnowledgeStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLearnThenSearch_FindsByTopic(t *testing.T) {
	store := newTestKnowledgeStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "lesson", "pricing model", "FLIPT charges per seat", "experience"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := store.Search(ctx, "pricing", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Topic != "pricing model" {
		t.Fatalf("want to find the added knowledge item, got %+v", results)
	}
}

func TestGetContext_FormatsMatchingEntries(t *testing.T) {
	store := newTestKnowledgeStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "lesson", "onboarding flow", "Takes 3 steps", "experience"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	context, err := store.GetContext(ctx, "onboarding")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if context == "" {
		t.Fatal("want non-empty context for a matching topic")
	}
}

func TestGetContext_EmptyWhenNoMatch(t *testing.T) {
	store := newTestKnowledgeStore(t)
	ctx := context.Background()

	context, err := store.GetContext(ctx, "completely unrelated topic")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if context != "" {
		t.Fatalf("want empty context for no match, got %q", context)
	}
}
