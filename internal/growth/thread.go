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

const threadFormatPrompt = `TWEET IDEA:
%s

Reformat this into a 3-5 tweet thread, in the configured voice. Each tweet max 280 chars. Separate tweets with ---`

// FormatAsThread reformats a single tweet idea into a 3-5 tweet thread
// and submits it to the approval queue (spec §4.7, grounded on
// growth_agent.py's format_as_thread).
func (a *Agent) FormatAsThread(ctx context.Context, tweetIdea string) ([]string, error) {
	if a.router == nil {
		return nil, fmt.Errorf("no model router configured")
	}

	prompt := fmt.Sprintf(threadFormatPrompt, tweetIdea)
	response, err := a.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 600)
	if err != nil {
		a.log.Warn("thread formatting failed", zap.Error(err))
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	var tweets []string
	for _, part := range strings.Split(strings.TrimSpace(response), "---") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(part) > 280 {
			part = part[:280]
		}
		tweets = append(tweets, part)
	}
	if len(tweets) > 5 {
		tweets = tweets[:5]
	}
	if len(tweets) == 0 {
		return nil, nil
	}

	actionData, _ := json.Marshal(map[string]any{"tweets": tweets})
	contextSummary := fmt.Sprintf("Thread (%d tweets): %s", len(tweets), truncate(tweetIdea, 80))
	if _, err := a.queue.Submit(ctx, "growth", "growth-thread", "thread", actionData, contextSummary, 0.001); err != nil {
		return nil, fmt.Errorf("submit thread: %w", err)
	}
	return tweets, nil
}
