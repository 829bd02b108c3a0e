package research_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/0ld3ull/operator/internal/research"
)

var testGoals = []research.Goal{
	{ID: "control-grid", Name: "Control infrastructure", Keywords: []string{"CBDC", "digital ID"}},
}

type fakeRouter struct {
	response string
	err      error
}

func (f *fakeRouter) InvokeCheap(ctx context.Context, messages []research.ChatMessage, maxTokens int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeRouter) InvokeMid(ctx context.Context, messages []research.ChatMessage, maxTokens int) (string, error) {
	return f.InvokeCheap(ctx, messages, maxTokens)
}

func TestEvaluate_NoKeywordMatchSkipsLLMCall(t *testing.T) {
	router := &fakeRouter{err: fmt.Errorf("should not be called")}
	eval := research.NewGoalEvaluator(router, testGoals, nil)

	item := research.ResearchItem{Title: "Celebrity gossip", Content: "nothing relevant here"}
	out := eval.EvaluateBatch(context.Background(), []research.ResearchItem{item})

	if len(out) != 1 || out[0].SuggestedAction != research.ActionIgnore || out[0].RelevanceScore != 0 {
		t.Fatalf("want the item short-circuited to ignore without an LLM call, got %+v", out[0])
	}
}

func TestEvaluate_KeywordMatchParsesLLMScore(t *testing.T) {
	router := &fakeRouter{response: "```json\n{\"summary\": \"CBDC rollout\", \"relevance_score\": 9, \"priority\": \"high\", \"suggested_action\": \"content\", \"matched_goals\": [\"control-grid\"], \"reasoning\": \"surveillance angle\"}\n```"}
	eval := research.NewGoalEvaluator(router, testGoals, nil)

	item := research.ResearchItem{Title: "Central bank announces CBDC", Content: "digital ID required"}
	out := eval.EvaluateBatch(context.Background(), []research.ResearchItem{item})

	if len(out) != 1 || out[0].RelevanceScore != 9 || out[0].SuggestedAction != "content" {
		t.Fatalf("want the fenced JSON response parsed into the item, got %+v", out[0])
	}
}

func TestEvaluate_UnparsableLLMResponseLeavesItemUnscored(t *testing.T) {
	router := &fakeRouter{response: "not json at all"}
	eval := research.NewGoalEvaluator(router, testGoals, nil)

	item := research.ResearchItem{Title: "CBDC news", Content: "digital ID mandate"}
	out := eval.EvaluateBatch(context.Background(), []research.ResearchItem{item})

	if len(out) != 1 || out[0].RelevanceScore != 0 {
		t.Fatalf("want an unparsable response to leave the item at its zero score, got %+v", out[0])
	}
}
