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
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Feed names one configured RSS/Atom source.
type Feed struct {
	Name string
	URL  string
}

// RSSScraper polls a fixed set of RSS/Atom feeds, grounded on
// original_source/agents/research_agent/scrapers/rss_scraper.py. The HTTP
// client follows the teacher's *http.Client{Timeout: ...} construction
// idiom (internal/notify/channels.go).
type RSSScraper struct {
	feeds  []Feed
	client *http.Client
	log    *zap.Logger
}

func NewRSSScraper(feeds []Feed, log *zap.Logger) *RSSScraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &RSSScraper{feeds: feeds, client: &http.Client{Timeout: 30 * time.Second}, log: log}
}

func (s *RSSScraper) Name() string { return "rss" }

func (s *RSSScraper) Scrape(ctx context.Context) ([]ResearchItem, error) {
	var items []ResearchItem
	for _, feed := range s.feeds {
		fetched, err := s.scrapeFeed(ctx, feed)
		if err != nil {
			s.log.Warn("rss scrape error", zap.String("feed", feed.Name), zap.Error(err))
			continue
		}
		items = append(items, fetched...)
	}
	return items, nil
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Items   []rssEntry `xml:"channel>item"`
}

type rssEntry struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

type atomDocument struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomEntry struct {
	Title     string     `xml:"http://www.w3.org/2005/Atom title"`
	ID        string     `xml:"http://www.w3.org/2005/Atom id"`
	Summary   string     `xml:"http://www.w3.org/2005/Atom summary"`
	Content   string     `xml:"http://www.w3.org/2005/Atom content"`
	Published string     `xml:"http://www.w3.org/2005/Atom published"`
	Updated   string     `xml:"http://www.w3.org/2005/Atom updated"`
	Links     []atomLink `xml:"http://www.w3.org/2005/Atom link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

func (s *RSSScraper) scrapeFeed(ctx context.Context, feed Feed) ([]ResearchItem, error) {
	if feed.URL == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", feed.Name, resp.StatusCode)
	}

	var rss rssDocument
	var atom atomDocument
	decoder := xml.NewDecoder(resp.Body)
	if err := decoder.Decode(&rss); err == nil && len(rss.Items) > 0 {
		return parseRSS(rss, feed.Name), nil
	}
	// Re-fetch for the Atom attempt: the RSS decode above consumed the body.
	req2, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build atom retry request: %w", err)
	}
	resp2, err := s.client.Do(req2)
	if err != nil {
		return nil, fmt.Errorf("fetch %s (atom retry): %w", feed.Name, err)
	}
	defer resp2.Body.Close()
	if err := xml.NewDecoder(resp2.Body).Decode(&atom); err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed.Name, err)
	}
	return parseAtom(atom, feed.Name), nil
}

func parseRSS(doc rssDocument, sourceName string) []ResearchItem {
	var items []ResearchItem
	for _, entry := range doc.Items {
		if entry.Title == "" || entry.Link == "" {
			continue
		}
		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}
		items = append(items, ResearchItem{
			Source:      "rss",
			SourceID:    fmt.Sprintf("%s:%s", sourceName, guid),
			URL:         entry.Link,
			Title:       entry.Title,
			Content:     cleanHTML(entry.Description),
			PublishedAt: parseFeedDate(entry.PubDate),
		})
	}
	return items
}

func parseAtom(doc atomDocument, sourceName string) []ResearchItem {
	var items []ResearchItem
	for _, entry := range doc.Entries {
		if entry.Title == "" {
			continue
		}
		link := atomAlternateLink(entry.Links)
		if link == "" {
			continue
		}
		content := entry.Content
		if content == "" {
			content = entry.Summary
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		id := entry.ID
		if id == "" {
			id = link
		}
		items = append(items, ResearchItem{
			Source:      "rss",
			SourceID:    fmt.Sprintf("%s:%s", sourceName, id),
			URL:         link,
			Title:       entry.Title,
			Content:     cleanHTML(content),
			PublishedAt: parseFeedDate(published),
		})
	}
	return items
}

func atomAlternateLink(links []atomLink) string {
	var fallback string
	for _, l := range links {
		if l.Href == "" {
			continue
		}
		if l.Rel == "alternate" || l.Rel == "" {
			return l.Href
		}
		if fallback == "" {
			fallback = l.Href
		}
	}
	return fallback
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func cleanHTML(text string) string {
	if text == "" {
		return ""
	}
	clean := htmlTagRe.ReplaceAllString(text, "")
	clean = html.UnescapeString(clean)
	clean = strings.Join(strings.Fields(clean), " ")
	return truncate(clean, 2000)
}

var feedDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseFeedDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, format := range feedDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
