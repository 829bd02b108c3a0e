/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GitHubScraper watches a fixed repo list for releases and bursts of
// commit activity, grounded on
// original_source/agents/research_agent/scrapers/github_scraper.py.
type GitHubScraper struct {
	repos  []string
	token  string
	client *http.Client
	log    *zap.Logger
}

func NewGitHubScraper(repos []string, token string, log *zap.Logger) *GitHubScraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &GitHubScraper{repos: repos, token: token, client: &http.Client{Timeout: 30 * time.Second}, log: log}
}

func (s *GitHubScraper) Name() string { return "github" }

func (s *GitHubScraper) Scrape(ctx context.Context) ([]ResearchItem, error) {
	var items []ResearchItem
	for _, repo := range s.repos {
		releases, err := s.releases(ctx, repo)
		if err != nil {
			s.log.Warn("github releases error", zap.String("repo", repo), zap.Error(err))
		} else {
			items = append(items, releases...)
		}

		commits, err := s.recentCommits(ctx, repo)
		if err != nil {
			s.log.Warn("github commits error", zap.String("repo", repo), zap.Error(err))
		} else if commits != nil {
			items = append(items, *commits)
		}
	}
	return items, nil
}

type ghRelease struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
}

func (s *GitHubScraper) releases(ctx context.Context, repo string) ([]ResearchItem, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/releases?per_page=5", repo)
	var releases []ghRelease
	status, err := s.getJSON(ctx, url, &releases)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	items := make([]ResearchItem, 0, len(releases))
	for _, rel := range releases {
		name := rel.Name
		if name == "" {
			name = rel.TagName
		}
		body := rel.Body
		if body == "" {
			body = fmt.Sprintf("New release %s for %s", name, repo)
		}
		items = append(items, ResearchItem{
			Source:      "github",
			SourceID:    fmt.Sprintf("%s:release:%s", repo, rel.TagName),
			URL:         rel.HTMLURL,
			Title:       fmt.Sprintf("[%s] Release %s", repo, name),
			Content:     truncate(body, 2000),
			PublishedAt: parseFeedDate(rel.PublishedAt),
		})
	}
	return items, nil
}

type ghCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

func (s *GitHubScraper) recentCommits(ctx context.Context, repo string) (*ResearchItem, error) {
	since := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	url := fmt.Sprintf("https://api.github.com/repos/%s/commits?since=%s&per_page=20", repo, since)
	var commits []ghCommit
	status, err := s.getJSON(ctx, url, &commits)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var significant []ghCommit
	for _, c := range commits {
		msg := c.Commit.Message
		if strings.HasPrefix(msg, "Merge ") || len(msg) < 20 {
			continue
		}
		significant = append(significant, c)
	}
	if len(significant) < 3 {
		return nil, nil
	}

	lines := make([]string, 0, 5)
	for i, c := range significant {
		if i >= 5 {
			break
		}
		lines = append(lines, "- "+strings.SplitN(c.Commit.Message, "\n", 2)[0])
	}
	sha := significant[0].SHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return &ResearchItem{
		Source:      "github",
		SourceID:    fmt.Sprintf("%s:commits:%s", repo, sha),
		URL:         fmt.Sprintf("https://github.com/%s/commits", repo),
		Title:       fmt.Sprintf("[%s] Active development (%d commits)", repo, len(significant)),
		Content:     fmt.Sprintf("%d commits in last day:\n%s", len(significant), strings.Join(lines, "\n")),
		PublishedAt: time.Now().UTC(),
	}, nil
}

func (s *GitHubScraper) getJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}
