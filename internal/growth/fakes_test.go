package growth_test

import (
	"context"
	"time"

	"github.com/0ld3ull/operator/internal/growth"
)

// epoch is a timestamp safely before anything a test writes, for
// "count rows since" assertions.
func epoch() time.Time { return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC) }

type fakeTwitter struct {
	conversations map[string][]growth.Tweet
	mentions      []growth.Mention
	myTweets      []growth.Tweet
	repliesByID   map[string][]growth.Mention
	metrics       []growth.TweetMetrics
}

func (f *fakeTwitter) SearchConversations(ctx context.Context, query string, maxResults int) ([]growth.Tweet, error) {
	return f.conversations[query], nil
}

func (f *fakeTwitter) GetMentions(ctx context.Context, count int) ([]growth.Mention, error) {
	return f.mentions, nil
}

func (f *fakeTwitter) GetMyRecentTweets(ctx context.Context, count int) ([]growth.Tweet, error) {
	return f.myTweets, nil
}

func (f *fakeTwitter) GetRepliesToTweet(ctx context.Context, tweetID string, count int) ([]growth.Mention, error) {
	return f.repliesByID[tweetID], nil
}

func (f *fakeTwitter) GetMyTweetMetrics(ctx context.Context, count int) ([]growth.TweetMetrics, error) {
	return f.metrics, nil
}

type fakeGrowthRouter struct {
	response string
	err      error
}

func (f *fakeGrowthRouter) InvokeCheap(ctx context.Context, messages []growth.ChatMessage, maxTokens int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeGrowthKillSwitch struct{ active bool }

func (k fakeGrowthKillSwitch) IsActive(ctx context.Context) (bool, error) { return k.active, nil }
