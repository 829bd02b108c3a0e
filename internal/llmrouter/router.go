// Package llmrouter adapts a chat-completion Provider into the narrow,
// tier-selecting InvokeCheap/InvokeMid/InvokeHigh collaborator consumed by
// internal/memory, internal/research, and internal/growth. Each of those
// packages defines its own minimal ModelRouter interface and ChatMessage
// type rather than importing this package directly. Because those
// ChatMessage types are distinct Go types, Router satisfies none of the
// interfaces as-is; cmd/operator wraps it in one small adapter per package.
package llmrouter

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ChatMessage mirrors the small, duplicated ChatMessage type each calling
// package declares locally to avoid depending on this package's types.
type ChatMessage struct {
	Role    string
	Content string
}

// Provider is the chat-completion collaborator Router wraps, shaped so any
// OpenAI-compatible client works unmodified.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is the request Router sends to a Provider.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message is a single chat message sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is a Provider's reply to a CompletionRequest.
type CompletionResponse struct {
	Content      string
	Model        string
	FinishReason string
}

// Tiers maps a model tier to a concrete model name, mirroring
// internal/config.Tiers.
type Tiers struct {
	Cheap string
	Mid   string
	High  string
}

// Router selects a model by tier and invokes the underlying provider.
// CHEAP is used for bulk scoring, summarization, and classification; MID
// for content drafting and decision-making; HIGH for the rare task that
// needs the strongest available model. A tier with no model name
// configured falls back to the next cheaper configured tier, and
// ultimately to whatever model the provider defaults to when none of the
// tiers are set.
type Router struct {
	provider Provider
	tiers    Tiers
	log      *zap.Logger
}

// New creates a Router wrapping provider with the given tier->model mapping.
func New(provider Provider, tiers Tiers, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{provider: provider, tiers: tiers, log: log}
}

// InvokeCheap runs messages against the CHEAP tier model.
func (r *Router) InvokeCheap(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	return r.invoke(ctx, "cheap", r.resolveCheap(), messages, maxTokens)
}

// InvokeMid runs messages against the MID tier model, falling back to
// CHEAP when no mid-tier model is configured.
func (r *Router) InvokeMid(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	return r.invoke(ctx, "mid", r.resolveMid(), messages, maxTokens)
}

// InvokeHigh runs messages against the HIGH tier model, falling back
// through MID then CHEAP when no high-tier model is configured.
func (r *Router) InvokeHigh(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	return r.invoke(ctx, "high", r.resolveHigh(), messages, maxTokens)
}

func (r *Router) resolveCheap() string {
	return r.tiers.Cheap
}

func (r *Router) resolveMid() string {
	if r.tiers.Mid != "" {
		return r.tiers.Mid
	}
	return r.resolveCheap()
}

func (r *Router) resolveHigh() string {
	if r.tiers.High != "" {
		return r.tiers.High
	}
	return r.resolveMid()
}

func (r *Router) invoke(ctx context.Context, tier, model string, messages []ChatMessage, maxTokens int) (string, error) {
	if r.provider == nil {
		return "", fmt.Errorf("llmrouter: no provider configured")
	}

	req := &CompletionRequest{
		Model:       model,
		Messages:    toProviderMessages(messages),
		Temperature: 0.2,
		MaxTokens:   maxTokens,
	}

	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		r.log.Warn("model invoke failed",
			zap.String("tier", tier),
			zap.String("model", model),
			zap.Error(err),
		)
		return "", fmt.Errorf("invoke %s tier (%s): %w", tier, model, err)
	}

	r.log.Debug("model invoke ok",
		zap.String("tier", tier),
		zap.String("model", model),
		zap.Int("messages", len(messages)),
	)
	return resp.Content, nil
}

func toProviderMessages(messages []ChatMessage) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}
