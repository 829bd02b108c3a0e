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
	"fmt"
	"time"

	"go.uber.org/zap"
)

// KillSwitch is the narrow collaborator interface the pipeline needs,
// mirroring internal/cron.KillSwitch: every pipeline action must
// short-circuit before any side effect while the switch is active.
type KillSwitch interface {
	IsActive(ctx context.Context) (bool, error)
}

// MaxContentDrafts bounds how many score>=8 items become content drafts
// per cycle (spec §4.6 rate control); overflow downgrades to knowledge.
const MaxContentDrafts = 5

// Agent wires the four pipeline stages together (spec §4.6), grounded on
// original_source/agents/research_agent/agent.py's ResearchAgent.
type Agent struct {
	store      *Store
	scrapers   []TieredScraper
	evaluator  *GoalEvaluator
	router     *ActionRouter
	killSwitch KillSwitch
	log        *zap.Logger
}

// NewAgent builds the pipeline. killSwitch may be nil (always runs).
func NewAgent(store *Store, scrapers []TieredScraper, evaluator *GoalEvaluator, router *ActionRouter, killSwitch KillSwitch, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{store: store, scrapers: scrapers, evaluator: evaluator, router: router, killSwitch: killSwitch, log: log}
}

// RunDailyResearch drives one full cycle over every configured scraper:
// scrape -> dedup -> evaluate -> filter relevant + route -> persist ->
// record digest stats.
func (a *Agent) RunDailyResearch(ctx context.Context) (Digest, error) {
	return a.runCycle(ctx, a.scrapers)
}

// RunTier drives the same cycle restricted to scrapers classified under
// tier ("hot" or "warm"), used by the every-3h/every-10h tier jobs that
// run in addition to the full daily digest (spec §4.3, glossary), grounded
// on main.py's _run_tier / ResearchAgent.run_tier.
func (a *Agent) RunTier(ctx context.Context, tier string) (Digest, error) {
	var tiered []TieredScraper
	for _, s := range a.scrapers {
		if string(s.Tier) == tier {
			tiered = append(tiered, s)
		}
	}
	return a.runCycle(ctx, tiered)
}

func (a *Agent) runCycle(ctx context.Context, scrapers []TieredScraper) (Digest, error) {
	digest := Digest{RunAt: time.Now().UTC()}

	if a.killSwitch != nil {
		active, err := a.killSwitch.IsActive(ctx)
		if err != nil {
			return digest, fmt.Errorf("check kill switch: %w", err)
		}
		if active {
			digest.Errors = append(digest.Errors, "kill switch active: cycle skipped")
			return digest, nil
		}
	}

	scraped := a.scrape(ctx, scrapers, &digest)
	digest.Scraped = len(scraped)

	fresh, err := a.store.FilterNew(ctx, scraped)
	if err != nil {
		return digest, fmt.Errorf("dedup: %w", err)
	}
	digest.New = len(fresh)
	if len(fresh) == 0 {
		if err := a.store.RecordDigest(ctx, digest); err != nil {
			a.log.Warn("failed to record digest", zap.Error(err))
		}
		a.router.SendDigest(ctx, digest)
		return digest, nil
	}

	evaluated := a.evaluator.EvaluateBatch(ctx, fresh)

	var relevant []ResearchItem
	for _, item := range evaluated {
		if item.RelevanceScore > 3 {
			relevant = append(relevant, item)
		}
	}
	digest.Relevant = len(relevant)

	routed, stats := a.router.RouteBatch(ctx, relevant, MaxContentDrafts)
	digest.Alerts = stats.AlertSent
	digest.Tasks = stats.TaskCreated
	digest.Content = stats.ContentQueued
	digest.Knowledge = stats.KnowledgeAdded
	digest.Watch = stats.WatchAdded
	digest.Ignored = stats.Ignored + (len(evaluated) - len(relevant))

	if err := a.store.SaveBatch(ctx, evaluated); err != nil {
		return digest, fmt.Errorf("save batch: %w", err)
	}
	_ = routed

	if err := a.store.RecordDigest(ctx, digest); err != nil {
		a.log.Warn("failed to record digest", zap.Error(err))
	}
	a.router.SendDigest(ctx, digest)
	return digest, nil
}

func (a *Agent) scrape(ctx context.Context, scrapers []TieredScraper, digest *Digest) []ResearchItem {
	var items []ResearchItem
	for _, scraper := range scrapers {
		found, err := scraper.Scrape(ctx)
		if err != nil {
			msg := fmt.Sprintf("%s: %v", scraper.Name(), err)
			a.log.Warn("scraper error", zap.String("scraper", scraper.Name()), zap.Error(err))
			digest.Errors = append(digest.Errors, msg)
			continue
		}
		items = append(items, found...)
	}
	return items
}

// RecentFindings exposes the store's highest-scoring recent items.
func (a *Agent) RecentFindings(ctx context.Context, since time.Time, limit int) ([]ResearchItem, error) {
	return a.store.RecentFindings(ctx, since, limit)
}

// DigestHistory exposes the store's cycle history.
func (a *Agent) DigestHistory(ctx context.Context, limit int) ([]Digest, error) {
	return a.store.DigestHistory(ctx, limit)
}
