/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/0ld3ull/operator/internal/audit"
	"go.uber.org/zap"
)

// ExecuteAction dispatches an approved action through the appropriate
// collaborator and returns a human-readable result string (spec §4.8).
// It never returns an error to its own caller for expected configuration
// gaps (no twitter/distributor configured) — those come back as a result
// string, matching the Python source's string-returning execute_action.
func (a *Agent) ExecuteAction(ctx context.Context, actionType string, actionData map[string]any) (string, error) {
	switch actionType {
	case "tweet", "thread", "reply":
		if a.twitter == nil {
			return "Twitter tool not configured", nil
		}
		actionData["action"] = actionType
		url, err := a.twitter.Execute(ctx, actionData)
		if err != nil {
			a.auditLog(ctx, audit.SeverityReject, "execution", fmt.Sprintf("failed: %s", actionType), false)
			return fmt.Sprintf("Twitter error: %v", err), nil
		}
		if a.mem != nil {
			text, _ := actionData["text"].(string)
			if _, err := a.mem.RememberTweet(ctx, text, url); err != nil {
				a.log.Warn("remember tweet", zap.Error(err))
			}
		}
		return "Posted: " + url, nil

	case "video_distribute":
		if a.distributor == nil {
			return "Video distributor not configured", nil
		}
		platforms := stringSlice(actionData["platforms"])
		if len(platforms) == 0 {
			platforms = []string{"twitter", "youtube", "tiktok"}
		}
		videoPath, _ := actionData["video_path"].(string)
		script, _ := actionData["script"].(string)
		themeTitle, _ := actionData["theme_title"].(string)
		title := themeTitle
		if title == "" {
			title = a.personaName
		}

		result, err := a.distributor.Distribute(ctx, DistributeRequest{
			VideoPath: videoPath, Script: script, Platforms: platforms,
			Title: title, Description: a.personaDesc, ThemeTitle: themeTitle,
		})
		if err != nil {
			a.auditLog(ctx, audit.SeverityReject, "execution", "failed: video_distribute", false)
			return fmt.Sprintf("Execution failed: %v", err), nil
		}
		return formatDistributeResult(result), nil

	default:
		return "No executor for action type: " + actionType, nil
	}
}

// executeScheduledVideo is registered with the Content Scheduler for
// content_type=video_distribute jobs.
func (a *Agent) executeScheduledVideo(ctx context.Context, contentDataJSON string) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(contentDataJSON), &payload); err != nil {
		return "", fmt.Errorf("unmarshal scheduled video payload: %w", err)
	}
	if a.distributor == nil {
		return "", fmt.Errorf("video distributor not configured")
	}

	platforms := stringSlice(payload["platforms"])
	if len(platforms) == 0 {
		platforms = []string{"twitter", "youtube", "tiktok"}
	}
	videoPath, _ := payload["video_path"].(string)
	script, _ := payload["script"].(string)
	themeTitle, _ := payload["theme_title"].(string)
	title := themeTitle
	if title == "" {
		title = a.personaName
	}

	result, err := a.distributor.Distribute(ctx, DistributeRequest{
		VideoPath: videoPath, Script: script, Platforms: platforms,
		Title: title, Description: a.personaDesc, ThemeTitle: themeTitle,
	})
	if err != nil {
		a.notify(ctx, "distribute", "failed", fmt.Sprintf("Scheduled video distribution FAILED: %v", err))
		a.auditLog(ctx, audit.SeverityReject, "distribute", "distribution failed", false)
		return "", err
	}

	text := formatDistributeResult(result)
	a.notify(ctx, "distribute", "executed", fmt.Sprintf("Scheduled post complete!\n\n%s", text))
	a.auditLog(ctx, audit.SeverityInfo, "distribute", "video distributed", true)
	return text, nil
}

// executeScheduledTweet is registered with the Content Scheduler for
// content_type in {tweet, thread, reply} jobs.
func (a *Agent) executeScheduledTweet(ctx context.Context, contentDataJSON string) (string, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(contentDataJSON), &payload); err != nil {
		return "", fmt.Errorf("unmarshal scheduled tweet payload: %w", err)
	}
	if a.twitter == nil {
		return "", fmt.Errorf("twitter executor not configured")
	}

	action, _ := payload["action"].(string)
	if action == "" {
		action = "tweet"
	}
	payload["action"] = action

	url, err := a.twitter.Execute(ctx, payload)
	if err != nil {
		text, _ := payload["text"].(string)
		a.notify(ctx, "tweet", "failed", fmt.Sprintf("Scheduled tweet FAILED: %v\nText: %s", err, truncateRunes(text, 100)))
		return "", err
	}

	if a.mem != nil {
		text, _ := payload["text"].(string)
		if _, rErr := a.mem.RememberTweet(ctx, text, url); rErr != nil {
			a.log.Warn("remember scheduled tweet", zap.Error(rErr))
		}
	}

	if id, ok := payload["approval_id"]; ok && a.queue != nil {
		if approvalID, ok := numberToInt64(id); ok {
			if err := a.queue.MarkExecuted(ctx, approvalID); err != nil {
				a.log.Warn("mark executed for scheduled tweet", zap.Error(err))
			}
		}
	}

	text, _ := payload["text"].(string)
	a.notify(ctx, "tweet", "executed", fmt.Sprintf("Scheduled tweet posted!\n%s\n%s", truncateRunes(text, 200), url))
	return url, nil
}

func formatDistributeResult(result DistributeResult) string {
	var parts []string
	if len(result.Distributed) > 0 {
		parts = append(parts, "Posted to: "+strings.Join(result.Distributed, ", "))
		for _, platform := range result.Distributed {
			if url, ok := result.URLs[platform]; ok && url != "" {
				parts = append(parts, "  "+platform+": "+url)
			}
		}
	}
	if len(result.Failed) > 0 {
		parts = append(parts, "Failed: "+strings.Join(result.Failed, ", "))
	}
	if len(parts) == 0 {
		return "Distribution complete"
	}
	return strings.Join(parts, "\n")
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func numberToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
