package llmrouter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/0ld3ull/operator/internal/llmrouter"
)

type fakeProvider struct {
	lastModel    string
	lastMessages []llmrouter.Message
	content      string
	err          error
	calls        int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req *llmrouter.CompletionRequest) (*llmrouter.CompletionResponse, error) {
	f.calls++
	f.lastModel = req.Model
	f.lastMessages = req.Messages
	if f.err != nil {
		return nil, f.err
	}
	return &llmrouter.CompletionResponse{Content: f.content, Model: req.Model}, nil
}

func TestInvokeCheap_UsesCheapModel(t *testing.T) {
	provider := &fakeProvider{content: "hi"}
	router := llmrouter.New(provider, llmrouter.Tiers{Cheap: "gpt-4o-mini", Mid: "gpt-4o", High: "gpt-4o"}, nil)

	out, err := router.InvokeCheap(context.Background(), []llmrouter.ChatMessage{{Role: "user", Content: "ping"}}, 100)
	if err != nil {
		t.Fatalf("InvokeCheap: %v", err)
	}
	if out != "hi" {
		t.Fatalf("want content %q, got %q", "hi", out)
	}
	if provider.lastModel != "gpt-4o-mini" {
		t.Fatalf("want cheap model selected, got %q", provider.lastModel)
	}
	if len(provider.lastMessages) != 1 || provider.lastMessages[0].Content != "ping" {
		t.Fatalf("want the message forwarded unchanged, got %+v", provider.lastMessages)
	}
}

func TestInvokeMid_FallsBackToCheapWhenUnconfigured(t *testing.T) {
	provider := &fakeProvider{content: "ok"}
	router := llmrouter.New(provider, llmrouter.Tiers{Cheap: "gpt-4o-mini"}, nil)

	if _, err := router.InvokeMid(context.Background(), []llmrouter.ChatMessage{{Role: "user", Content: "x"}}, 50); err != nil {
		t.Fatalf("InvokeMid: %v", err)
	}
	if provider.lastModel != "gpt-4o-mini" {
		t.Fatalf("want mid tier to fall back to cheap model, got %q", provider.lastModel)
	}
}

func TestInvokeHigh_FallsBackThroughMidToCheap(t *testing.T) {
	provider := &fakeProvider{content: "ok"}
	router := llmrouter.New(provider, llmrouter.Tiers{Cheap: "gpt-4o-mini"}, nil)

	if _, err := router.InvokeHigh(context.Background(), []llmrouter.ChatMessage{{Role: "user", Content: "x"}}, 50); err != nil {
		t.Fatalf("InvokeHigh: %v", err)
	}
	if provider.lastModel != "gpt-4o-mini" {
		t.Fatalf("want high tier to fall back to cheap model when mid and high are unset, got %q", provider.lastModel)
	}
}

func TestInvokeHigh_UsesHighModelWhenConfigured(t *testing.T) {
	provider := &fakeProvider{content: "ok"}
	router := llmrouter.New(provider, llmrouter.Tiers{Cheap: "gpt-4o-mini", Mid: "gpt-4o", High: "o1"}, nil)

	if _, err := router.InvokeHigh(context.Background(), []llmrouter.ChatMessage{{Role: "user", Content: "x"}}, 50); err != nil {
		t.Fatalf("InvokeHigh: %v", err)
	}
	if provider.lastModel != "o1" {
		t.Fatalf("want high tier model, got %q", provider.lastModel)
	}
}

func TestInvoke_ProviderErrorWrapsWithTierAndModel(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	router := llmrouter.New(provider, llmrouter.Tiers{Cheap: "gpt-4o-mini"}, nil)

	_, err := router.InvokeCheap(context.Background(), []llmrouter.ChatMessage{{Role: "user", Content: "x"}}, 50)
	if err == nil {
		t.Fatalf("want an error when the provider fails")
	}
}

func TestInvoke_NoProviderConfigured(t *testing.T) {
	router := llmrouter.New(nil, llmrouter.Tiers{Cheap: "gpt-4o-mini"}, nil)

	_, err := router.InvokeCheap(context.Background(), []llmrouter.ChatMessage{{Role: "user", Content: "x"}}, 50)
	if err == nil {
		t.Fatalf("want an error when no provider is configured")
	}
}
