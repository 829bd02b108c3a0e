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
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const arxivAPI = "https://export.arxiv.org/api/query"

// ArXivScraper polls the ArXiv API for recent papers in a fixed set of
// categories, grounded on
// original_source/agents/research_agent/scrapers/arxiv_scraper.py.
type ArXivScraper struct {
	categories []string
	keywords   []string
	maxResults int
	daysBack   int
	client     *http.Client
	log        *zap.Logger
}

func NewArXivScraper(categories, keywords []string, maxResults, daysBack int, log *zap.Logger) *ArXivScraper {
	if log == nil {
		log = zap.NewNop()
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	if daysBack <= 0 {
		daysBack = 3
	}
	return &ArXivScraper{categories: categories, keywords: keywords, maxResults: maxResults, daysBack: daysBack,
		client: &http.Client{Timeout: 60 * time.Second}, log: log}
}

func (s *ArXivScraper) Name() string { return "arxiv" }

func (s *ArXivScraper) Scrape(ctx context.Context) ([]ResearchItem, error) {
	var items []ResearchItem
	cutoff := time.Now().UTC().Add(-time.Duration(s.daysBack) * 24 * time.Hour)
	for _, category := range s.categories {
		papers, err := s.searchCategory(ctx, category, cutoff)
		if err != nil {
			s.log.Warn("arxiv search error", zap.String("category", category), zap.Error(err))
			continue
		}
		items = append(items, papers...)
	}
	return items, nil
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type arxivEntry struct {
	Title     string        `xml:"http://www.w3.org/2005/Atom title"`
	Summary   string        `xml:"http://www.w3.org/2005/Atom summary"`
	ID        string        `xml:"http://www.w3.org/2005/Atom id"`
	Published string        `xml:"http://www.w3.org/2005/Atom published"`
	Authors   []arxivAuthor `xml:"http://www.w3.org/2005/Atom author"`
	Links     []arxivLink   `xml:"http://www.w3.org/2005/Atom link"`
}

type arxivAuthor struct {
	Name string `xml:"http://www.w3.org/2005/Atom name"`
}

type arxivLink struct {
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

func (s *ArXivScraper) searchCategory(ctx context.Context, category string, cutoff time.Time) ([]ResearchItem, error) {
	query := "cat:" + category
	if len(s.keywords) > 0 {
		parts := make([]string, len(s.keywords))
		for i, kw := range s.keywords {
			parts[i] = fmt.Sprintf(`all:"%s"`, kw)
		}
		query = fmt.Sprintf("cat:%s AND (%s)", category, strings.Join(parts, " OR "))
	}

	params := url.Values{
		"search_query": {query},
		"start":        {"0"},
		"max_results":  {fmt.Sprintf("%d", s.maxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPI+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch category %s: %w", category, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch category %s: status %d", category, resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse category %s: %w", category, err)
	}

	var items []ResearchItem
	for _, entry := range feed.Entries {
		title := strings.ReplaceAll(strings.TrimSpace(entry.Title), "\n", " ")
		if title == "" {
			continue
		}
		published := parseFeedDate(strings.TrimSuffix(entry.Published, "Z") + "Z")
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		arxivID := entry.ID
		if idx := strings.Index(arxivID, "/abs/"); idx >= 0 {
			arxivID = arxivID[idx+len("/abs/"):]
		}

		authorStr := joinAuthors(entry.Authors, 3)
		pdfLink := ""
		for _, l := range entry.Links {
			if l.Title == "pdf" {
				pdfLink = l.Href
				break
			}
		}
		abstract := strings.ReplaceAll(strings.TrimSpace(entry.Summary), "\n", " ")
		content := fmt.Sprintf("Authors: %s\nCategory: %s\nPDF: %s\n\nAbstract:\n%s",
			authorStr, category, pdfLink, truncate(abstract, 1500))

		items = append(items, ResearchItem{
			Source:      "arxiv",
			SourceID:    "arxiv:" + arxivID,
			URL:         entry.ID,
			Title:       fmt.Sprintf("[ArXiv %s] %s", category, title),
			Content:     content,
			PublishedAt: published,
		})
	}
	return items, nil
}

func joinAuthors(authors []arxivAuthor, limit int) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s et al. (%d authors)", strings.Join(names[:limit], ", "), len(names))
}
