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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/0ld3ull/operator/internal/audit"
	"go.uber.org/zap"
)

// inboxFile is the superset of fields any prefix's JSON payload may carry
// (spec §6). approval_id is accepted as either a JSON number or string
// (the feedback prefix allows both per spec.md).
type inboxFile struct {
	ApprovalID     json.Number     `json:"approval_id"`
	ActionData     json.RawMessage `json:"action_data"`
	Platforms      []string        `json:"platforms"`
	ScheduledTime  string          `json:"scheduled_time"`
	ContentType    string          `json:"content_type"`
	ActionType     string          `json:"action_type"`
	Script         string          `json:"script"`
	Pillar         int             `json:"pillar"`
	Mood           string          `json:"mood"`
	ThemeTitle     string          `json:"theme_title"`
	Category       string          `json:"category"`
	Reason         string          `json:"reason"`
	ContentContext map[string]any  `json:"content_context"`
}

func (f inboxFile) approvalID() (int64, bool) {
	if f.ApprovalID == "" {
		return 0, false
	}
	id, err := f.ApprovalID.Int64()
	if err != nil {
		return 0, false
	}
	return id, true
}

// PollDashboardActions scans the inbox directory for *.json files and
// routes each by filename prefix (spec §4.8). Returns nil if the kill
// switch is active or the directory doesn't yet exist — both are
// expected steady states, not errors. Never returns an error from a
// single file's processing; every per-file failure is caught, logged,
// and audited so one bad file can never wedge the poller.
func (a *Agent) PollDashboardActions(ctx context.Context) error {
	if a.killSwitch != nil {
		active, err := a.killSwitch.IsActive(ctx)
		if err != nil {
			a.log.Warn("kill switch check failed, proceeding as inactive", zap.Error(err))
		} else if active {
			return nil
		}
	}

	entries, err := os.ReadDir(a.inboxDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read inbox dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		a.processInboxFile(ctx, name)
	}
	return nil
}

// processInboxFile handles one file to completion: parse, route, then
// decide whether to remove it. Malformed JSON and any handled (non-error)
// outcome are deleted; a handler-reported error leaves the file in place
// for the next poll tick to retry, matching the reference design's
// except-Exception branch which withholds the unlink.
func (a *Agent) processInboxFile(ctx context.Context, name string) {
	path := filepath.Join(a.inboxDir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		a.log.Warn("read inbox file", zap.String("file", name), zap.Error(err))
		return
	}

	var data inboxFile
	if err := json.Unmarshal(raw, &data); err != nil {
		a.log.Error("invalid JSON in inbox file", zap.String("file", name), zap.Error(err))
		a.auditLog(ctx, audit.SeverityReject, "poll", fmt.Sprintf("invalid JSON in %s: %v", name, err), false)
		os.Remove(path)
		return
	}

	var handleErr error
	switch {
	case strings.HasPrefix(name, "schedule_"):
		handleErr = a.handleScheduleRequest(ctx, data)
	case strings.HasPrefix(name, "render_"):
		handleErr = a.handleRenderRequest(ctx, data)
	case strings.HasPrefix(name, "feedback_"):
		handleErr = a.handleContentFeedback(ctx, data)
	case strings.HasPrefix(name, "execute_"):
		handleErr = a.handleExecuteRequest(ctx, data)
	default:
		a.log.Warn("unknown action file", zap.String("file", name))
		os.Remove(path)
		return
	}

	if handleErr != nil {
		a.log.Error("error processing inbox file", zap.String("file", name), zap.Error(handleErr))
		a.auditLog(ctx, audit.SeverityReject, "poll", fmt.Sprintf("failed to process %s: %v", name, handleErr), false)
		return
	}
	os.Remove(path)
}

// handleScheduleRequest schedules approved content for distribution at
// scheduled_time and marks the originating approval executed — the
// approval is "consumed" once scheduled (spec §4.8).
func (a *Agent) handleScheduleRequest(ctx context.Context, data inboxFile) error {
	id, ok := data.approvalID()
	if !ok {
		a.auditLog(ctx, audit.SeverityReject, "schedule", "schedule request missing approval_id", false)
		return nil
	}
	if data.ScheduledTime == "" {
		a.auditLog(ctx, audit.SeverityReject, "schedule", fmt.Sprintf("no scheduled_time in schedule request for #%d", id), false)
		return nil
	}
	scheduledTime, err := time.Parse(time.RFC3339, data.ScheduledTime)
	if err != nil {
		a.auditLog(ctx, audit.SeverityReject, "schedule", fmt.Sprintf("bad scheduled_time for #%d: %v", id, err), false)
		return nil
	}

	platforms := data.Platforms
	if len(platforms) == 0 {
		platforms = []string{"twitter", "youtube", "tiktok"}
	}
	contentType := data.ContentType
	if contentType == "" {
		contentType = data.ActionType
	}
	if contentType == "" {
		contentType = "video_distribute"
	}

	actionData := map[string]any{}
	if len(data.ActionData) > 0 {
		if err := json.Unmarshal(data.ActionData, &actionData); err != nil {
			return fmt.Errorf("unmarshal action_data: %w", err)
		}
	}
	actionData["platforms"] = platforms
	if contentType == "tweet" || contentType == "thread" || contentType == "reply" {
		actionData["action"] = contentType
		actionData["approval_id"] = id
	}

	contentDataJSON, err := json.Marshal(actionData)
	if err != nil {
		return fmt.Errorf("marshal content data: %w", err)
	}

	if a.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	jobID := fmt.Sprintf("dashboard_%d_%d", id, time.Now().UnixNano())
	if _, err := a.scheduler.Schedule(ctx, jobID, contentType, string(contentDataJSON), scheduledTime); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}

	if a.queue != nil {
		if err := a.queue.MarkExecuted(ctx, id); err != nil {
			a.log.Warn("mark executed after scheduling", zap.Int64("approval_id", id), zap.Error(err))
		}
	}

	preview := previewText(actionData)
	a.notify(ctx, "schedule", "scheduled", fmt.Sprintf(
		"%s #%d scheduled via dashboard\n%s\nPosting at: %s",
		titleCase(contentType), id, preview, scheduledTime.UTC().Format("Jan 2, 15:04 MST")))
	a.auditLog(ctx, audit.SeverityInfo, "schedule", fmt.Sprintf("scheduled %s #%d", contentType, id), true)
	return nil
}

// handleRenderRequest triggers a video render for an approved script
// (Stage 1 -> Stage 2 transition).
func (a *Agent) handleRenderRequest(ctx context.Context, data inboxFile) error {
	id, _ := data.approvalID()
	if data.Script == "" {
		a.auditLog(ctx, audit.SeverityReject, "render", fmt.Sprintf("no script in render request for #%d", id), false)
		return nil
	}
	if a.renderer == nil {
		return fmt.Errorf("content renderer not configured")
	}

	pillar := data.Pillar
	if pillar == 0 {
		pillar = 1
	}
	a.notify(ctx, "render", "render", fmt.Sprintf("Rendering video for script #%d...\nThis takes ~2 minutes.", id))

	result, err := a.renderer.CreateVideoForApproval(ctx, RenderRequest{
		Script: data.Script, Pillar: pillar, Mood: data.Mood, ThemeTitle: data.ThemeTitle, Category: data.Category,
	})
	if err != nil {
		a.notify(ctx, "render", "failed", fmt.Sprintf("Video render FAILED for script #%d: %v", id, err))
		a.auditLog(ctx, audit.SeverityReject, "video_render", fmt.Sprintf("render failed for script #%d: %v", id, err), false)
		return nil
	}

	a.notify(ctx, "render", "rendered", fmt.Sprintf("Video rendered! Check dashboard to review.\nApproval #%d", result.ApprovalID))
	a.auditLog(ctx, audit.SeverityInfo, "render", fmt.Sprintf("render complete #%d -> new approval #%d", id, result.ApprovalID), true)
	return nil
}

// handleContentFeedback saves content rejection feedback into memory as a
// high-significance event.
func (a *Agent) handleContentFeedback(ctx context.Context, data inboxFile) error {
	if data.Reason == "" {
		return nil
	}
	themeTitle, _ := data.ContentContext["theme_title"].(string)
	if themeTitle == "" {
		themeTitle = "unknown"
	}
	category, _ := data.ContentContext["category"].(string)
	if category == "" {
		category = "unknown"
	}
	id, _ := data.approvalID()

	summary := fmt.Sprintf("Content rejected by operator. Theme: %s. Category: %s. Feedback: %s", themeTitle, category, data.Reason)
	if a.mem != nil {
		title := "Content feedback: " + themeTitle
		if _, err := a.mem.RememberEvent(ctx, title, summary, 7, "content_feedback", "", ""); err != nil {
			a.log.Error("store content feedback", zap.Error(err))
		}
	}

	a.notify(ctx, "feedback", "rejected", fmt.Sprintf("Feedback recorded for #%d: %s", id, truncateRunes(data.Reason, 100)))
	a.auditLog(ctx, audit.SeverityInfo, "content_feedback", fmt.Sprintf("rejection feedback #%d: %s", id, truncateRunes(data.Reason, 200)), true)
	return nil
}

// handleExecuteRequest executes an approved action immediately (tweets,
// threads, replies, video distribution).
func (a *Agent) handleExecuteRequest(ctx context.Context, data inboxFile) error {
	id, _ := data.approvalID()
	actionData := map[string]any{}
	if len(data.ActionData) > 0 {
		if err := json.Unmarshal(data.ActionData, &actionData); err != nil {
			return fmt.Errorf("unmarshal action_data: %w", err)
		}
	}

	result, execErr := a.ExecuteAction(ctx, data.ActionType, actionData)
	if execErr != nil {
		a.notify(ctx, "execute", "failed", fmt.Sprintf("Execute FAILED for %s #%d: %v", data.ActionType, id, execErr))
		a.auditLog(ctx, audit.SeverityReject, "dashboard_execute", fmt.Sprintf("failed %s #%d: %v", data.ActionType, id, execErr), false)
		return nil
	}

	if a.queue != nil {
		if err := a.queue.MarkExecuted(ctx, id); err != nil {
			a.log.Warn("mark executed after dashboard execute", zap.Int64("approval_id", id), zap.Error(err))
		}
	}
	a.notify(ctx, "execute", "executed", fmt.Sprintf("[EXECUTED] Dashboard approved %s #%d\n%s", data.ActionType, id, result))
	return nil
}

func previewText(actionData map[string]any) string {
	for _, key := range []string{"text", "theme_title"} {
		if v, ok := actionData[key].(string); ok && v != "" {
			return truncateRunes(v, 100)
		}
	}
	return ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
