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
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const slotTweetPrompt = `Write a single tweet for %s.

Rules:
- Max 280 characters
- One clear idea, no hashtags, no emoji spam
- Sound like a person thinking out loud, not a brand

Return ONLY the tweet text, nothing else.`

// GenerateSlotTweet drafts one tweet for a planned posting slot and
// submits it to the approval queue for operator review. Invoked 30
// minutes before each slot a Plan schedules (spec §4.3, §4.7.5), grounded
// on run_daily_tweets.py's generate_tweets(count=1) call from
// main.py's _run_single_tweet.
func (a *Agent) GenerateSlotTweet(ctx context.Context, slotLabel string) error {
	active, err := a.killSwitch.IsActive(ctx)
	if err != nil {
		return fmt.Errorf("kill switch check: %w", err)
	}
	if active {
		a.log.Info("skipping tweet generation, kill switch active", zap.String("slot", slotLabel))
		return nil
	}
	if a.router == nil {
		a.log.Warn("no model router configured, skipping slot tweet generation", zap.String("slot", slotLabel))
		return nil
	}

	prompt := fmt.Sprintf(slotTweetPrompt, slotLabel)
	text, err := a.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 150)
	if err != nil {
		return fmt.Errorf("draft slot tweet: %w", err)
	}
	text = strings.Trim(strings.TrimSpace(text), `"'`)
	if text == "" {
		a.log.Warn("model returned empty tweet, nothing to submit", zap.String("slot", slotLabel))
		return nil
	}
	if len(text) > 280 {
		text = text[:277] + "..."
	}

	actionData, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal action data: %w", err)
	}
	contextSummary := fmt.Sprintf("Planned tweet for %s", slotLabel)
	approvalID, err := a.queue.Submit(ctx, "growth", "growth-slot-tweet", "tweet", actionData, contextSummary, 0.001)
	if err != nil {
		return fmt.Errorf("submit slot tweet: %w", err)
	}

	a.notify(ctx, "tweet generated", fmt.Sprintf("Tweet for %s ready for review (#%d):\n%s", slotLabel, approvalID, text), "info")
	if a.audit != nil {
		a.audit.Emit(ctx, "growth", auditSeverityInfo, "tweets",
			fmt.Sprintf("tweet generated for %s, waiting for review (#%d)", slotLabel, approvalID), true)
	}
	return nil
}
