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
	"errors"
)

// ErrTwitterNotConfigured is returned by UnconfiguredTwitter's methods.
var ErrTwitterNotConfigured = errors.New("twitter integration not configured")

// UnconfiguredTwitter satisfies Twitter with a collaborator that is always
// present but never wired to a real network tool (spec §1 — the actual
// Twitter/YouTube/TikTok network tools are out of scope). It exists so
// NewAgent's required twitter parameter never needs a nil check at every
// call site; every method simply reports the pipeline is unconfigured.
type UnconfiguredTwitter struct{}

func (UnconfiguredTwitter) SearchConversations(context.Context, string, int) ([]Tweet, error) {
	return nil, ErrTwitterNotConfigured
}

func (UnconfiguredTwitter) GetMentions(context.Context, int) ([]Mention, error) {
	return nil, ErrTwitterNotConfigured
}

func (UnconfiguredTwitter) GetMyRecentTweets(context.Context, int) ([]Tweet, error) {
	return nil, ErrTwitterNotConfigured
}

func (UnconfiguredTwitter) GetRepliesToTweet(context.Context, string, int) ([]Mention, error) {
	return nil, ErrTwitterNotConfigured
}

func (UnconfiguredTwitter) GetMyTweetMetrics(context.Context, int) ([]TweetMetrics, error) {
	return nil, ErrTwitterNotConfigured
}
