/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package research

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ScraperConfig is the caller-supplied configuration for the three
// built-in scrapers, mirroring LoadGoals/growth.LoadSearchQueries'
// treatment of source lists as config rather than baked-in constants.
type ScraperConfig struct {
	ArXiv struct {
		Categories []string `yaml:"categories"`
		Keywords   []string `yaml:"keywords"`
		MaxResults int      `yaml:"max_results"`
		DaysBack   int      `yaml:"days_back"`
	} `yaml:"arxiv"`
	GitHub struct {
		Repos []string `yaml:"repos"`
		Token string   `yaml:"token"`
	} `yaml:"github"`
	RSS struct {
		Feeds []Feed `yaml:"feeds"`
	} `yaml:"rss"`
}

// LoadScraperConfig reads the scraper source list from a YAML config
// file. A missing or malformed file yields a zero-value ScraperConfig, so
// BuildScrapers constructs scrapers with empty source lists rather than
// erroring on an unconfigured deployment.
func LoadScraperConfig(path string) ScraperConfig {
	var cfg ScraperConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

// BuildScrapers constructs the standard tier-classified scraper set from
// cfg (spec §4.3 hot/warm tiers in addition to the full daily digest).
func BuildScrapers(cfg ScraperConfig, log *zap.Logger) []TieredScraper {
	return []TieredScraper{
		{Scraper: NewGitHubScraper(cfg.GitHub.Repos, cfg.GitHub.Token, log), Tier: TierHot},
		{Scraper: NewArXivScraper(cfg.ArXiv.Categories, cfg.ArXiv.Keywords, cfg.ArXiv.MaxResults, cfg.ArXiv.DaysBack, log), Tier: TierWarm},
		{Scraper: NewRSSScraper(cfg.RSS.Feeds, log), Tier: TierWarm},
	}
}
