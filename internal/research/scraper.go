/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package research

import "context"

// Scraper produces ResearchItem records from one external source. A
// scraper MUST NOT return a partial result on a transient failure inside
// one of its sub-fetches; it logs and skips that sub-fetch instead
// (spec §4.6 Stage S: "Scraper failures are logged but do not fail the
// cycle" applies per-scraper as well as per-pipeline).
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]ResearchItem, error)
}

// Tier classifies how often a scraper should run outside the full daily
// digest cycle (spec §4.3, glossary "hot"/"warm" research tiers).
type Tier string

const (
	// TierHot scrapers run every 3 hours — breaking-news-class sources.
	TierHot Tier = "hot"
	// TierWarm scrapers run every 10 hours — slower-moving sources.
	TierWarm Tier = "warm"
)

// TieredScraper pairs a Scraper with its tier classification. Grounded on
// main.py's hot/warm split ("Twitter, HN" hot; "RSS, Reddit, GitHub"
// warm): this deployment has no Twitter/HN scraper, so GitHub (fast-moving
// repo activity) takes the hot slot, and ArXiv/RSS (slower-moving papers
// and blog feeds) take warm.
type TieredScraper struct {
	Scraper
	Tier Tier
}
