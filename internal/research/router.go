/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/0ld3ull/operator/internal/approval"
	"github.com/0ld3ull/operator/internal/memory"
	"github.com/0ld3ull/operator/internal/notify"
	"go.uber.org/zap"
)

const contentDraftPrompt = `Draft a short post (max 280 chars) about this news item, in a dry, observational voice that connects it back to the configured research goals. No hashtags, no emojis.

Title: %s
Summary: %s
URL: %s

Return ONLY the post text.`

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9 _-]`)

// RouteStats tallies the actions taken across one routeBatch call,
// matching the cycle output shape spec §4.6 describes.
type RouteStats struct {
	AlertSent     int
	TaskCreated   int
	ContentQueued int
	KnowledgeAdded int
	WatchAdded    int
	Ignored       int
}

// ActionRouter dispatches evaluated items to their suggested action
// (spec §4.6 Stage R), grounded on
// original_source/agents/research_agent/action_router.py.
type ActionRouter struct {
	queue    *approval.Queue
	notifier *notify.Router
	mem      *memory.Manager
	router   ModelRouter
	baseDir  string
	log      *zap.Logger
}

// NewActionRouter builds a router. notifier and mem may be nil (no
// Telegram bot / no memory manager configured, matching the Python
// constructor's optional collaborators).
func NewActionRouter(queue *approval.Queue, router ModelRouter, notifier *notify.Router, mem *memory.Manager, baseDir string, log *zap.Logger) *ActionRouter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionRouter{queue: queue, notifier: notifier, mem: mem, router: router, baseDir: baseDir, log: log}
}

// RouteBatch routes every item, downgrading content drafts beyond
// maxDrafts (default callers pass 5) per the score-8+ rate control rule.
func (r *ActionRouter) RouteBatch(ctx context.Context, items []ResearchItem, maxDrafts int) ([]ResearchItem, RouteStats) {
	contentCandidates := make([]int, 0, len(items))
	for i, item := range items {
		if item.SuggestedAction == ActionContent && item.RelevanceScore >= 8 {
			contentCandidates = append(contentCandidates, i)
		}
	}
	sort.Slice(contentCandidates, func(a, b int) bool {
		return items[contentCandidates[a]].RelevanceScore > items[contentCandidates[b]].RelevanceScore
	})
	allowed := map[int]bool{}
	for _, idx := range contentCandidates {
		if len(allowed) >= maxDrafts {
			break
		}
		allowed[idx] = true
	}

	var stats RouteStats
	out := make([]ResearchItem, len(items))
	for i, item := range items {
		if item.SuggestedAction == ActionContent && !allowed[i] {
			item.SuggestedAction = ActionKnowledge
		}
		action := r.route(ctx, item)
		out[i] = item
		switch action {
		case ActionAlert:
			stats.AlertSent++
		case ActionTask:
			stats.TaskCreated++
		case ActionContent:
			stats.ContentQueued++
		case ActionKnowledge:
			stats.KnowledgeAdded++
		case ActionWatch:
			stats.WatchAdded++
		default:
			stats.Ignored++
		}
	}
	return out, stats
}

func (r *ActionRouter) route(ctx context.Context, item ResearchItem) string {
	if r.mem != nil && item.RelevanceScore >= 6 {
		summary := item.Summary
		if summary == "" {
			summary = truncate(item.Content, 200)
		}
		significance := int(item.RelevanceScore)
		if significance > 10 {
			significance = 10
		}
		if _, err := r.mem.RememberEvent(ctx, item.Title, summary, significance, "research", item.Source, item.URL); err != nil {
			r.log.Warn("failed to remember research item", zap.Error(err))
		}
	}

	switch item.SuggestedAction {
	case ActionAlert:
		r.sendAlert(ctx, item)
		return ActionAlert
	case ActionTask:
		r.addTask(item)
		return ActionTask
	case ActionContent:
		r.draftContent(ctx, item)
		return ActionContent
	case ActionKnowledge:
		r.writeKnowledge(item)
		return ActionKnowledge
	case ActionWatch:
		r.writeWatch(item)
		return ActionWatch
	default:
		return ActionIgnore
	}
}

// SendDigest delivers the cycle summary through the notifier, or just
// logs it when no notifier is configured (spec §4.6 "send one summary
// notification"; Python falls back to a log line when no Telegram bot
// is wired).
func (r *ActionRouter) SendDigest(ctx context.Context, d Digest) {
	body := FormatDigest(d)
	if r.notifier == nil {
		r.log.Info("research digest", zap.String("summary", body))
		return
	}
	r.notifier.Notify(ctx, notify.Message{
		AgentName: "research-agent",
		Severity:  "info",
		Title:     "Research digest",
		Body:      body,
		Timestamp: time.Now().UTC(),
	})
}

func (r *ActionRouter) sendAlert(ctx context.Context, item ResearchItem) {
	body := fmt.Sprintf("%s\n\nGoals: %s\nSource: %s", item.Summary, strings.Join(item.MatchedGoals, ", "), item.URL)
	if r.notifier == nil {
		r.log.Warn("no notifier configured, dropping research alert", zap.String("title", item.Title))
		return
	}
	r.notifier.Notify(ctx, notify.Message{
		AgentName: "research-agent",
		Severity:  "critical",
		Title:     fmt.Sprintf("RESEARCH ALERT [%s]: %s", strings.ToUpper(item.Priority), item.Title),
		Body:      body,
		Timestamp: time.Now().UTC(),
	})
}

func (r *ActionRouter) addTask(item ResearchItem) {
	if r.baseDir == "" {
		return
	}
	path := filepath.Join(r.baseDir, "todo.md")
	line := fmt.Sprintf("- [ ] Review: %s\n  - Source: %s\n  - Summary: %s\n  - Added: %s\n\n",
		item.Title, item.URL, item.Summary, time.Now().UTC().Format("2006-01-02"))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.log.Warn("failed to add task", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		r.log.Warn("failed to write task", zap.Error(err))
	}
}

func (r *ActionRouter) draftContent(ctx context.Context, item ResearchItem) {
	if r.router == nil || r.queue == nil {
		r.log.Warn("no model router or approval queue configured for content drafting")
		return
	}
	prompt := fmt.Sprintf(contentDraftPrompt, item.Title, orDefault(item.Summary, truncate(item.Content, 500)), item.URL)

	response, err := r.router.InvokeMid(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 150)
	if err != nil {
		r.log.Warn("content drafting failed", zap.Error(err))
		return
	}
	draft := strings.TrimSpace(response)
	if draft == "" {
		return
	}

	actionData, _ := json.Marshal(map[string]string{"text": draft})
	contextSummary := fmt.Sprintf("Research-triggered: %s\nSource: %s", item.Title, item.URL)
	if _, err := r.queue.Submit(ctx, "research", "research-agent", "tweet", actionData, contextSummary, 0); err != nil {
		r.log.Warn("failed to queue content draft", zap.Error(err))
	}
}

func (r *ActionRouter) writeKnowledge(item ResearchItem) {
	if r.baseDir == "" {
		return
	}
	dir := filepath.Join(r.baseDir, "knowledge", item.Source)
	body := fmt.Sprintf("# %s\n\n**Source:** %s\n**URL:** %s\n**Relevance:** %.0f/10\n**Priority:** %s\n\n## Summary\n\n%s\n\n## Analysis\n\n%s\n",
		item.Title, item.Source, item.URL, item.RelevanceScore, item.Priority, item.Summary, item.Reasoning)
	r.writeDocFile(dir, item.Title, body)
}

func (r *ActionRouter) writeWatch(item ResearchItem) {
	if r.baseDir == "" {
		return
	}
	dir := filepath.Join(r.baseDir, "knowledge", "watchlist")
	body := fmt.Sprintf("# [WATCH] %s\n\n**Source:** %s\n**URL:** %s\n**Score:** %.0f/10\n\n## Why Watch\n\n%s\n\n## Summary\n\n%s\n",
		item.Title, item.Source, item.URL, item.RelevanceScore, item.Reasoning, item.Summary)
	r.writeDocFile(dir, item.Title, body)
}

func (r *ActionRouter) writeDocFile(dir, title, body string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.log.Warn("failed to create knowledge dir", zap.Error(err))
		return
	}
	safeTitle := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(truncate(title, 50), ""))
	filename := fmt.Sprintf("%s_%s.md", time.Now().UTC().Format("20060102"), safeTitle)
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(body), 0o644); err != nil {
		r.log.Warn("failed to write doc file", zap.Error(err))
	}
}
