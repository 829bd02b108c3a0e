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
	"strings"

	"go.uber.org/zap"
)

// ChatMessage is the minimal LLM turn this package needs; kept local so
// internal/research stays independently compilable against any router
// implementation rather than importing a concrete LLM client package.
type ChatMessage struct {
	Role    string
	Content string
}

// ModelRouter is the narrow collaborator interface Stage E and the action
// router need from the model-router subsystem. InvokeCheap
// is used for bulk scoring/summarization; InvokeMid for content drafting,
// falling back to InvokeCheap when no mid-tier model is configured.
type ModelRouter interface {
	InvokeCheap(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error)
	InvokeMid(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error)
}

const evaluationPrompt = `You are scoring news items against a configured set of research goals.

## Goals:
%s
## Item to Evaluate:
Source: %s
Title: %s
URL: %s
Content: %s

## Instructions:
1. Decide which (if any) goals this item advances.
2. Score relevance 0-10 against the goals above.
3. Only suggest "content" action for score 8+.

Return ONLY valid JSON:
{
    "summary": "2-3 sentence summary",
    "relevance_score": 8,
    "priority": "high",
    "suggested_action": "content",
    "matched_goals": ["goal-id"],
    "reasoning": "why this item matters against the configured goals"
}

Actions: content (8+), knowledge (5-7), watch (adjacent), ignore (1-4)`

const transcriptSummaryPrompt = `You are analyzing a video transcript for actionable insights.

The video is: %s
URL: %s

## TRANSCRIPT:
%s

## INSTRUCTIONS:
Extract the KEY INSIGHTS from this transcript in a structured summary
(max 500 words): topic, key insights, tools/tech mentioned, and what is
actionable for our projects.`

// GoalEvaluator scores research items against a configured goal rubric
// (spec §4.6 Stage E), grounded on
// original_source/agents/research_agent/evaluator.py's GoalEvaluator.
type GoalEvaluator struct {
	router ModelRouter
	goals  []Goal
	log    *zap.Logger
}

// NewGoalEvaluator builds an evaluator over a fixed goal set. router may
// be nil in tests exercising only the keyword pre-filter path.
func NewGoalEvaluator(router ModelRouter, goals []Goal, log *zap.Logger) *GoalEvaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &GoalEvaluator{router: router, goals: goals, log: log}
}

// EvaluateBatch scores every item, logging (not failing) on a per-item error.
func (e *GoalEvaluator) EvaluateBatch(ctx context.Context, items []ResearchItem) []ResearchItem {
	evaluated := make([]ResearchItem, 0, len(items))
	for _, item := range items {
		evaluated = append(evaluated, e.evaluate(ctx, item))
	}
	return evaluated
}

func (e *GoalEvaluator) evaluate(ctx context.Context, item ResearchItem) ResearchItem {
	if !e.keywordMatch(item) {
		item.RelevanceScore = 0
		item.Priority = PriorityNone
		item.SuggestedAction = ActionIgnore
		item.Reasoning = "No keyword matches"
		return item
	}

	evalContent := item.Content
	if item.Source == "transcript" && len(item.Content) > 2000 {
		evalContent = e.summarizeTranscript(ctx, item)
		item.Summary = evalContent
	}

	if e.router == nil {
		item.Reasoning = "No model router configured"
		return item
	}

	prompt := fmt.Sprintf(evaluationPrompt, formatGoalsDescription(e.goals),
		item.Source, item.Title, item.URL, truncate(evalContent, 1500))

	response, err := e.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 500)
	if err != nil {
		e.log.Warn("evaluation failed", zap.String("title", item.Title), zap.Error(err))
		item.Reasoning = fmt.Sprintf("Evaluation error: %v", err)
		return item
	}

	result, ok := parseEvaluation(response)
	if !ok {
		e.log.Warn("could not parse evaluation response", zap.String("title", item.Title))
		return item
	}

	item.Summary = result.Summary
	item.MatchedGoals = result.MatchedGoals
	item.RelevanceScore = result.RelevanceScore
	item.Priority = orDefault(result.Priority, PriorityNone)
	item.SuggestedAction = orDefault(result.SuggestedAction, ActionIgnore)
	item.Reasoning = result.Reasoning
	return item
}

func (e *GoalEvaluator) summarizeTranscript(ctx context.Context, item ResearchItem) string {
	if e.router == nil {
		return truncate(item.Content, 1500)
	}
	prompt := fmt.Sprintf(transcriptSummaryPrompt, item.Title, item.URL, truncate(item.Content, 15000))
	response, err := e.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 800)
	if err != nil || strings.TrimSpace(response) == "" {
		return truncate(item.Content, 1500)
	}
	return strings.TrimSpace(response)
}

func (e *GoalEvaluator) keywordMatch(item ResearchItem) bool {
	text := strings.ToLower(item.Title + " " + item.Content)
	for _, goal := range e.goals {
		for _, kw := range goal.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

type evaluationResult struct {
	Summary         string   `json:"summary"`
	RelevanceScore  float64  `json:"relevance_score"`
	Priority        string   `json:"priority"`
	SuggestedAction string   `json:"suggested_action"`
	MatchedGoals    []string `json:"matched_goals"`
	Reasoning       string   `json:"reasoning"`
}

// parseEvaluation tolerantly extracts a JSON object from an LLM response
// that may be wrapped in markdown code fences (spec §4.6 Stage E.3).
func parseEvaluation(content string) (evaluationResult, bool) {
	var result evaluationResult
	stripped := stripCodeFences(content)
	if err := json.Unmarshal([]byte(strings.TrimSpace(stripped)), &result); err != nil {
		return result, false
	}
	return result, true
}

func stripCodeFences(s string) string {
	if strings.Contains(s, "```json") {
		parts := strings.SplitN(s, "```json", 2)
		if len(parts) == 2 {
			return strings.SplitN(parts[1], "```", 2)[0]
		}
	}
	if strings.Contains(s, "```") {
		parts := strings.SplitN(s, "```", 3)
		if len(parts) >= 2 {
			return parts[1]
		}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
