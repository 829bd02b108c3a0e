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

const mentionReplyPrompt = `Someone mentioned you on Twitter. Write a reply.

@%s said:
%s
%s

Rules:
- Max 280 characters
- Be genuine and engaging
- If they asked a question, answer it
- If they're being positive, be warm back
- If they're being hostile, be calm and unbothered

Return ONLY the reply text, nothing else.`

// CheckMentions polls for new mentions and replies to the agent's own
// recent tweets, drafts replies for the top 3, and sends one alert listing
// the new mentions (first 5 shown) with the number of drafts queued (spec §4.7, grounded on growth_agent.py's check_mentions).
func (a *Agent) CheckMentions(ctx context.Context) error {
	active, err := a.killSwitch.IsActive(ctx)
	if err != nil {
		return fmt.Errorf("kill switch check: %w", err)
	}
	if active {
		return nil
	}

	var newMentions []Mention
	mentions, err := a.twitter.GetMentions(ctx, 20)
	if err != nil {
		a.log.Warn("mention check failed", zap.Error(err))
		return nil
	}
	for _, m := range mentions {
		seen, err := a.store.MentionSeen(ctx, m.ID)
		if err != nil {
			a.log.Warn("mention-seen check failed", zap.Error(err))
			continue
		}
		if seen {
			continue
		}
		newMentions = append(newMentions, m)
		if err := a.store.StoreSeenMention(ctx, m, false); err != nil {
			a.log.Warn("failed to store seen mention", zap.Error(err))
		}
	}

	myTweets, err := a.twitter.GetMyRecentTweets(ctx, 10)
	if err != nil {
		a.log.Warn("conversation tracking failed", zap.Error(err))
	}
	for _, tweet := range myTweets {
		if tweet.ReplyCount == 0 {
			continue
		}
		replies, err := a.twitter.GetRepliesToTweet(ctx, tweet.ID, 10)
		if err != nil {
			a.log.Debug("failed to get replies", zap.String("tweet_id", tweet.ID), zap.Error(err))
			continue
		}
		for _, reply := range replies {
			seen, err := a.store.MentionSeen(ctx, reply.ID)
			if err != nil || seen {
				continue
			}
			reply.ConversationContext = truncate(tweet.Text, 80)
			newMentions = append(newMentions, reply)
			if err := a.store.StoreSeenMention(ctx, reply, true); err != nil {
				a.log.Warn("failed to store seen reply", zap.Error(err))
			}
		}
	}

	if len(newMentions) == 0 {
		return nil
	}

	sort.SliceStable(newMentions, func(i, j int) bool {
		iReply := newMentions[i].ConversationContext != ""
		jReply := newMentions[j].ConversationContext != ""
		if iReply != jReply {
			return iReply
		}
		return len(newMentions[i].Text) > len(newMentions[j].Text)
	})

	toDraft := newMentions
	if len(toDraft) > 3 {
		toDraft = toDraft[:3]
	}

	drafted := 0
	for _, mention := range toDraft {
		draft := a.draftMentionReply(ctx, mention)
		if draft == "" {
			continue
		}
		actionData, _ := json.Marshal(map[string]string{"tweet_id": mention.ID, "text": draft})
		contextSummary := fmt.Sprintf("Reply to mention from @%s: %s", mention.AuthorUsername, truncate(mention.Text, 80))
		approvalID, err := a.queue.Submit(ctx, "growth", "growth-mention-reply", "reply", actionData, contextSummary, 0.001)
		if err != nil {
			a.log.Warn("failed to submit mention reply", zap.Error(err))
			continue
		}
		if err := a.store.MarkMentionDrafted(ctx, mention.ID, approvalID); err != nil {
			a.log.Warn("failed to mark mention drafted", zap.Error(err))
		}
		drafted++
	}

	a.alertMentions(ctx, newMentions, drafted)
	if a.audit != nil {
		a.audit.Emit(ctx, "growth", auditSeverityInfo, "mentions",
			fmt.Sprintf("%d new mentions, %d replies drafted", len(newMentions), drafted), true)
	}
	return nil
}

func (a *Agent) draftMentionReply(ctx context.Context, m Mention) string {
	if a.router == nil {
		return ""
	}
	convoContext := ""
	if m.ConversationContext != "" {
		convoContext = fmt.Sprintf("\nCONTEXT (their reply to your original tweet): %s", m.ConversationContext)
	}
	prompt := fmt.Sprintf(mentionReplyPrompt, m.AuthorUsername, m.Text, convoContext)
	response, err := a.router.InvokeCheap(ctx, []ChatMessage{{Role: "user", Content: prompt}}, 150)
	if err != nil {
		a.log.Warn("draft mention reply failed", zap.Error(err))
		return ""
	}
	reply := strings.Trim(strings.TrimSpace(response), `"'`)
	if len(reply) > 280 {
		reply = reply[:277] + "..."
	}
	return reply
}

func (a *Agent) alertMentions(ctx context.Context, mentions []Mention, drafted int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new mentions\n", len(mentions))
	shown := mentions
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, m := range shown {
		prefix := ""
		if m.ConversationContext != "" {
			prefix = "(reply to you) "
		}
		fmt.Fprintf(&b, "  %s@%s: %s\n", prefix, m.AuthorUsername, truncate(m.Text, 100))
	}
	if len(mentions) > len(shown) {
		fmt.Fprintf(&b, "  ...and %d more\n", len(mentions)-len(shown))
	}
	if drafted > 0 {
		fmt.Fprintf(&b, "\n%d reply drafts queued for review\n", drafted)
	}
	a.notify(ctx, "New mentions", b.String(), "info")
}
