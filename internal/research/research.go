/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package research implements the Research Agent ingest pipeline (spec
// §3.5/§4.6): scrape external sources, dedup against a durable
// source_id table, score each new item with an LLM against a goal
// rubric, and route the result to an alert, a task, a content draft,
// a knowledge file, a watch file, or nowhere at all.
package research

import "time"

// Priority values an evaluated item may carry.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
	PriorityNone     = "none"
)

// Suggested actions the router dispatches on.
const (
	ActionAlert     = "alert"
	ActionTask      = "task"
	ActionContent   = "content"
	ActionKnowledge = "knowledge"
	ActionWatch     = "watch"
	ActionIgnore    = "ignore"
)

// ResearchItem is an ingested external document plus its evaluation
// annotations (spec §3.5). SourceID is the global dedup key across all
// scrape runs: once an item with a given SourceID has been saved, a
// later scrape that reproduces it is filtered out in Stage D and never
// re-evaluated.
type ResearchItem struct {
	ID          int64
	Source      string
	SourceID    string
	URL         string
	Title       string
	Content     string
	PublishedAt time.Time

	RelevanceScore  float64
	Priority        string
	SuggestedAction string
	MatchedGoals    []string
	Reasoning       string
	Summary         string

	CreatedAt time.Time
}

// Digest is the output of one research cycle (spec §4.6 "Output of a
// cycle"), persisted for history.
type Digest struct {
	RunAt     time.Time
	Scraped   int
	New       int
	Relevant  int
	Alerts    int
	Tasks     int
	Content   int
	Knowledge int
	Watch     int
	Ignored   int
	Errors    []string
}
