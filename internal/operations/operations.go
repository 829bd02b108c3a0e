/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package operations is the sole bridge between the operator's
// out-of-process UI and the in-process executors (spec §4.8), grounded on
// original_source/agents/operations_agent.py. It owns the post-approval
// pipeline: polling the file inbox, scheduling approved content, triggering
// renders, routing rejection feedback into memory, and executing approved
// actions immediately.
package operations

import (
	"context"
	"time"

	"github.com/0ld3ull/operator/internal/approval"
	"github.com/0ld3ull/operator/internal/audit"
	"github.com/0ld3ull/operator/internal/checkin"
	"github.com/0ld3ull/operator/internal/memory"
	"github.com/0ld3ull/operator/internal/notify"
	"github.com/0ld3ull/operator/internal/scheduler"
	"go.uber.org/zap"
)

// tweetGapHours is how long David can go without a posted tweet before
// Agent triggers gap-fill content generation.
const tweetGapHours = 12

// fillerCount is how many tweets a gap-fill cycle requests.
const fillerCount = 5

// KillSwitch is the minimal interface Agent needs to gate its periodic
// content-gap check.
type KillSwitch interface {
	IsActive(ctx context.Context) (bool, error)
}

// VideoDistributor posts a rendered video to one or more platforms.
type VideoDistributor interface {
	Distribute(ctx context.Context, req DistributeRequest) (DistributeResult, error)
}

// DistributeRequest is the payload handed to a VideoDistributor.
type DistributeRequest struct {
	VideoPath   string
	Script      string
	Platforms   []string
	Title       string
	Description string
	ThemeTitle  string
}

// DistributeResult is a VideoDistributor's report of per-platform outcomes.
type DistributeResult struct {
	Distributed []string
	Failed      []string
	URLs        map[string]string // platform -> url
}

// ContentRenderer turns an approved script into a rendered video, handing
// back a new approval id for the rendered result.
type ContentRenderer interface {
	CreateVideoForApproval(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// RenderRequest is the payload handed to a ContentRenderer.
type RenderRequest struct {
	Script     string
	Pillar     int
	Mood       string
	ThemeTitle string
	Category   string
}

// RenderResult is a ContentRenderer's report of a completed render.
type RenderResult struct {
	VideoPath  string
	ApprovalID int64
}

// TwitterExecutor posts a tweet/thread/reply action and returns the posted
// URL, or an error.
type TwitterExecutor interface {
	Execute(ctx context.Context, actionData map[string]any) (string, error)
}

// TweetGenerator fills a content gap by generating count tweets into the
// approval queue for operator review.
type TweetGenerator interface {
	GenerateTweets(ctx context.Context, count int) error
}

// Agent is the post-approval pipeline handler (spec §4.8). It runs no
// timer of its own — the Agent Cron calls PollDashboardActions every 30
// seconds and CheckContentGaps once at boot.
type Agent struct {
	queue       *approval.Queue
	scheduler   *scheduler.Scheduler
	audit       *audit.Store
	checkin     *checkin.Store
	notifier    *notify.Router
	mem         *memory.Manager
	killSwitch  KillSwitch
	distributor VideoDistributor
	renderer    ContentRenderer
	twitter     TwitterExecutor
	generator   TweetGenerator
	inboxDir    string
	personaName string
	personaDesc string
	log         *zap.Logger
}

// Option configures optional Agent fields at construction time.
type Option func(*Agent)

// WithVideoDistributor installs the video-distribution collaborator.
func WithVideoDistributor(d VideoDistributor) Option {
	return func(a *Agent) { a.distributor = d }
}

// WithContentRenderer installs the render collaborator.
func WithContentRenderer(r ContentRenderer) Option {
	return func(a *Agent) { a.renderer = r }
}

// WithTwitterExecutor installs the tweet/thread/reply execution collaborator.
func WithTwitterExecutor(t TwitterExecutor) Option {
	return func(a *Agent) { a.twitter = t }
}

// WithTweetGenerator installs the content-gap filler collaborator.
func WithTweetGenerator(g TweetGenerator) Option {
	return func(a *Agent) { a.generator = g }
}

// WithMemory installs the memory manager used to record rejection feedback
// and posted tweets.
func WithMemory(m *memory.Manager) Option {
	return func(a *Agent) { a.mem = m }
}

// WithPersona installs the principal name/description video distribution
// falls back to when a request doesn't carry its own theme title (spec:
// core execution logic does not hardcode a principal).
func WithPersona(name, description string) Option {
	return func(a *Agent) {
		a.personaName = name
		a.personaDesc = description
	}
}

// WithLogger overrides the agent's logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAgent builds an operations Agent over inboxDir (spec §6
// data/content_feedback/). sched, auditStore, checkinStore, and notifier
// may be nil; video/render/twitter/generator collaborators are supplied
// via options and default to "not configured" errors when absent.
func NewAgent(queue *approval.Queue, sched *scheduler.Scheduler, auditStore *audit.Store,
	checkinStore *checkin.Store, notifier *notify.Router, killSwitch KillSwitch, inboxDir string, opts ...Option) *Agent {
	a := &Agent{
		queue: queue, scheduler: sched, audit: auditStore, checkin: checkinStore,
		notifier: notifier, killSwitch: killSwitch, inboxDir: inboxDir, log: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if sched != nil {
		sched.RegisterExecutor("video_distribute", a.executeScheduledVideo)
		sched.RegisterExecutor("tweet", a.executeScheduledTweet)
		sched.RegisterExecutor("thread", a.executeScheduledTweet)
		sched.RegisterExecutor("reply", a.executeScheduledTweet)
	}
	return a
}

// notify routes a message through the dedup+urgency layer (spec §4.4,
// §4.8 _notify) before handing it to the configured notifier. Messages
// are dropped silently on dedup-hit or skip-urgency classification.
func (a *Agent) notify(ctx context.Context, topic, actionType, message string) {
	urgency := checkin.UrgencyNotify
	var hash string
	if a.checkin != nil {
		send, urgencyLevel, h, err := a.checkin.ShouldSend(ctx, topic, message, actionType)
		if err != nil {
			a.log.Warn("checkin ShouldSend failed, notifying anyway", zap.Error(err))
		} else if !send {
			return
		} else {
			urgency = urgencyLevel
		}
		hash = h
	}

	severity := "info"
	if urgency == checkin.UrgencyUrgent {
		severity = "critical"
	}

	if a.notifier == nil {
		a.log.Info("operations notification", zap.String("topic", topic), zap.String("message", message))
	} else {
		a.notifier.Notify(ctx, notify.Message{
			AgentName: "operations-agent",
			Severity:  severity,
			Title:     topic,
			Body:      message,
			Timestamp: time.Now().UTC(),
		})
	}

	if a.checkin != nil && hash != "" {
		if err := a.checkin.RecordSent(ctx, topic, hash, message, actionType); err != nil {
			a.log.Warn("checkin RecordSent failed", zap.Error(err))
		}
	}
}

func (a *Agent) auditLog(ctx context.Context, severity audit.Severity, topic, message string, success bool) {
	if a.audit == nil {
		return
	}
	if err := a.audit.Emit(ctx, "operations", severity, topic, message, success); err != nil {
		a.log.Warn("audit emit failed", zap.Error(err))
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
