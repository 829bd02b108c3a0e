package llmrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0ld3ull/operator/internal/llmrouter"
)

func TestOpenAIProvider_CompleteParsesChoice(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := json.Marshal(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"message":       map[string]string{"content": "hello there"},
				"finish_reason": "stop",
			}},
		})
		gotBody = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer server.Close()

	provider := llmrouter.NewOpenAIProvider("openai", server.URL, "sk-test")
	resp, err := provider.Complete(context.Background(), &llmrouter.CompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []llmrouter.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello there" {
		t.Fatalf("want parsed content, got %q", resp.Content)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("want bearer auth header forwarded, got %q", gotAuth)
	}
	if gotBody != "/chat/completions" {
		t.Fatalf("want the OpenAI-compatible completions path, got %q", gotBody)
	}
}

func TestOpenAIProvider_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	provider := llmrouter.NewOpenAIProvider("openai", server.URL, "")
	_, err := provider.Complete(context.Background(), &llmrouter.CompletionRequest{
		Messages: []llmrouter.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("want an error on non-200 response")
	}
}

func TestOpenAIProvider_NoChoicesIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"x","choices":[]}`))
	}))
	defer server.Close()

	provider := llmrouter.NewOpenAIProvider("openai", server.URL, "")
	_, err := provider.Complete(context.Background(), &llmrouter.CompletionRequest{
		Messages: []llmrouter.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("want an error when the provider returns zero choices")
	}
}
