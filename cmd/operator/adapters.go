package main

import (
	"context"

	"github.com/0ld3ull/operator/internal/growth"
	"github.com/0ld3ull/operator/internal/llmrouter"
	"github.com/0ld3ull/operator/internal/memory"
	"github.com/0ld3ull/operator/internal/research"
)

// memory, research, and growth each declare their own local ModelRouter
// interface and ChatMessage type rather than importing internal/llmrouter
// directly (so each stays independently compilable). That means a
// *llmrouter.Router satisfies none of them as-is: []growth.ChatMessage and
// []llmrouter.ChatMessage are distinct types even though identical in
// shape. These three adapters do the conversion at the one place that is
// allowed to know about all four packages.

type memoryRouterAdapter struct{ r *llmrouter.Router }

func (a memoryRouterAdapter) InvokeCheap(ctx context.Context, messages []memory.ChatMessage, maxTokens int) (string, error) {
	return a.r.InvokeCheap(ctx, toLLMMessages(messages), maxTokens)
}

type researchRouterAdapter struct{ r *llmrouter.Router }

func (a researchRouterAdapter) InvokeCheap(ctx context.Context, messages []research.ChatMessage, maxTokens int) (string, error) {
	return a.r.InvokeCheap(ctx, toLLMMessagesR(messages), maxTokens)
}

func (a researchRouterAdapter) InvokeMid(ctx context.Context, messages []research.ChatMessage, maxTokens int) (string, error) {
	return a.r.InvokeMid(ctx, toLLMMessagesR(messages), maxTokens)
}

type growthRouterAdapter struct{ r *llmrouter.Router }

func (a growthRouterAdapter) InvokeCheap(ctx context.Context, messages []growth.ChatMessage, maxTokens int) (string, error) {
	return a.r.InvokeCheap(ctx, toLLMMessagesG(messages), maxTokens)
}

func toLLMMessages(messages []memory.ChatMessage) []llmrouter.ChatMessage {
	out := make([]llmrouter.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = llmrouter.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func toLLMMessagesR(messages []research.ChatMessage) []llmrouter.ChatMessage {
	out := make([]llmrouter.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = llmrouter.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func toLLMMessagesG(messages []growth.ChatMessage) []llmrouter.ChatMessage {
	out := make([]llmrouter.ChatMessage, len(messages))
	for i, m := range messages {
		out[i] = llmrouter.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
