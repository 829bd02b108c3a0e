/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package growth

import (
	"context"
	"math/rand"
	"time"

	"github.com/0ld3ull/operator/internal/approval"
	"github.com/0ld3ull/operator/internal/audit"
	"github.com/0ld3ull/operator/internal/notify"
	"go.uber.org/zap"
)

const auditSeverityInfo = audit.SeverityInfo

// Agent wires the growth pipeline's collaborators (spec §4.7), grounded
// on GrowthAgent.__init__. audit, notifier, and router may be nil — the
// Python constructor treats telegram_bot/model_router as optional too.
type Agent struct {
	store         *Store
	twitter       Twitter
	queue         *approval.Queue
	audit         *audit.Store
	notifier      *notify.Router
	router        ModelRouter
	killSwitch    KillSwitch
	searchQueries []string
	rng           *rand.Rand
	log           *zap.Logger
}

// Option configures optional Agent fields at construction time (the same
// functional-options pattern internal/scheduler.Scheduler uses).
type Option func(*Agent)

// WithRand overrides the planner's random source. Tests inject a seeded
// *rand.Rand for deterministic slot generation (spec §4.7, spec.md §9).
func WithRand(r *rand.Rand) Option {
	return func(a *Agent) {
		if r != nil {
			a.rng = r
		}
	}
}

// WithSearchQueries overrides the reply-target search-query list loaded
// at construction time.
func WithSearchQueries(queries []string) Option {
	return func(a *Agent) { a.searchQueries = queries }
}

// WithLogger overrides the agent's logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAgent builds a growth Agent. auditStore, notifier, and router may be
// nil.
func NewAgent(store *Store, twitter Twitter, queue *approval.Queue, auditStore *audit.Store,
	notifier *notify.Router, router ModelRouter, killSwitch KillSwitch, searchQueries []string, opts ...Option) *Agent {
	a := &Agent{
		store: store, twitter: twitter, queue: queue, audit: auditStore, notifier: notifier,
		router: router, killSwitch: killSwitch, searchQueries: searchQueries,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// notify delivers a message through the notifier, or just logs it when
// no notifier is configured (same fallback internal/research.ActionRouter
// uses for its digest).
func (a *Agent) notify(ctx context.Context, title, body, severity string) {
	if a.notifier == nil {
		a.log.Info("growth notification", zap.String("title", title), zap.String("body", body))
		return
	}
	a.notifier.Notify(ctx, notify.Message{
		AgentName: "growth-agent",
		Severity:  severity,
		Title:     title,
		Body:      body,
		Timestamp: time.Now().UTC(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
