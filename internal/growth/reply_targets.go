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
	"sort"
	"strings"

	"go.uber.org/zap"
)

const replyDraftPrompt = `Someone posted the following tweet, found while searching for "%s":

@%s (%d followers):
%s

Write a reply that adds value to this conversation, in a dry, observational voice. Max 280 characters. Return ONLY the reply text, nothing else.`

// FindReplyTargets searches the configured queries for active
// conversations worth joining, scores and ranks the results, drafts a
// reply for the top 5, and submits each to the approval queue (spec
// §4.7, grounded on growth_agent.py's find_reply_targets).
func (a *Agent) FindReplyTargets(ctx context.Context) error {
	active, err := a.killSwitch.IsActive(ctx)
	if err != nil {
		return fmt.Errorf("kill switch check: %w", err)
	}
	if active {
		return nil
	}

	var targets []ReplyTarget
	for _, query := range a.searchQueries {
		results, err := a.twitter.SearchConversations(ctx, query, 10)
		if err != nil {
			a.log.Warn("reply target search failed", zap.String("query", query), zap.Error(err))
			continue
		}
		for _, tweet := range results {
			if tweet.Likes < minLikes && tweet.Replies < minReplies {
				continue
			}
			already, err := a.store.AlreadyTargeted(ctx, tweet.ID)
			if err != nil {
				a.log.Warn("already-targeted check failed", zap.Error(err))
				continue
			}
			if already {
				continue
			}
			score := float64(tweet.Likes)*1.0 + float64(tweet.Replies)*2.0 +
				float64(tweet.Retweets)*1.5 + float64(tweet.AuthorFollowers)/1000*0.5
			targets = append(targets, ReplyTarget{
				TweetID: tweet.ID, AuthorUsername: tweet.AuthorUsername, AuthorFollowers: tweet.AuthorFollowers,
				TweetText: tweet.Text, Likes: tweet.Likes, Replies: tweet.Replies, Retweets: tweet.Retweets,
				Score: score, SearchQuery: query,
			})
		}
	}
	if len(targets) == 0 {
		return nil
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Score > targets[j].Score })
	if len(targets) > 5 {
		targets = targets[:5]
	}

	submitted := 0
	for i := range targets {
		t := &targets[i]
		draft := a.draftReply(ctx, *t)
		if draft == "" {
			continue
		}
		t.DraftReply = draft

		actionData, _ := json.Marshal(map[string]string{"tweet_id": t.TweetID, "text": draft})
		contextSummary := fmt.Sprintf("Reply to @%s (%d followers, %d likes) | Query: %s",
			t.AuthorUsername, t.AuthorFollowers, t.Likes, t.SearchQuery)
		approvalID, err := a.queue.Submit(ctx, "growth", "growth-reply", "reply", actionData, contextSummary, 0.001)
		if err != nil {
			a.log.Warn("failed to submit reply target", zap.Error(err))
			continue
		}
		t.ApprovalID = approvalID
		t.Status = "submitted"
		submitted++

		if err := a.store.StoreReplyTarget(ctx, *t); err != nil {
			a.log.Warn("failed to store reply target", zap.Error(err))
		}
	}

	if submitted > 0 {
		a.notifyReplyTargets(ctx, targets[:submitted])
	}
	if a.audit != nil {
		a.audit.Emit(ctx, "growth", auditSeverityInfo, "reply_targets",
			fmt.Sprintf("Found %d targets, submitted %d replies", len(targets), submitted), true)
	}
	return nil
}

func (a *Agent) draftReply(ctx context.Context, t ReplyTarget) string {
	if a.router == nil {
		return ""
	}
	prompt := fmt.Sprintf(replyDraftPrompt, t.SearchQuery, t.AuthorUsername, t.AuthorFollowers, t.TweetText)
	response, err := a.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 150)
	if err != nil {
		a.log.Warn("draft reply failed", zap.Error(err))
		return ""
	}
	reply := strings.Trim(strings.TrimSpace(response), `"'`)
	if len(reply) > 280 {
		reply = reply[:277] + "..."
	}
	return reply
}

func (a *Agent) notifyReplyTargets(ctx context.Context, targets []ReplyTarget) {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d reply targets\n\n", len(targets))
	for _, t := range targets {
		fmt.Fprintf(&b, "@%s (%d followers, %d likes, %d replies)\n%s\nDraft: %s\n\n",
			t.AuthorUsername, t.AuthorFollowers, t.Likes, t.Replies, truncate(t.TweetText, 140), t.DraftReply)
	}
	a.notify(ctx, "Reply targets found", b.String(), "info")
}
