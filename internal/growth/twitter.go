/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package growth

import "context"

// Twitter is the narrow network-tool collaborator this package consumes
// (spec §1 "Twitter/YouTube/TikTok network tools" — out of scope, reduced
// to an interface). Grounded on the calls growth_agent.py makes against
// its twitter_tool: search_conversations, get_mentions,
// get_my_recent_tweets, get_replies_to_tweet, get_my_tweet_metrics.
type Twitter interface {
	SearchConversations(ctx context.Context, query string, maxResults int) ([]Tweet, error)
	GetMentions(ctx context.Context, count int) ([]Mention, error)
	GetMyRecentTweets(ctx context.Context, count int) ([]Tweet, error)
	GetRepliesToTweet(ctx context.Context, tweetID string, count int) ([]Mention, error)
	GetMyTweetMetrics(ctx context.Context, count int) ([]TweetMetrics, error)
}

// ChatMessage is one turn in a model-router conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ModelRouter is the narrow LLM collaborator this package consumes (spec
// §1 "model router" — out of scope, reduced to Invoke). Reply drafting in
// the Python source always selects the CHEAP tier, so only that one verb
// is needed here; kept as its own local interface (rather than importing
// internal/llmrouter) for the same independent-compilability reason
// internal/research.ModelRouter is defined locally.
type ModelRouter interface {
	InvokeCheap(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error)
}

// KillSwitch is the narrow safety-gate collaborator (spec §3.7), mirrored
// from internal/cron.KillSwitch / internal/research.KillSwitch.
// internal/killswitch.Switch satisfies this structurally.
type KillSwitch interface {
	IsActive(ctx context.Context) (bool, error)
}
