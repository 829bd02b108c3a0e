/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package growth

import (
	"os"

	"gopkg.in/yaml.v3"
)

type searchQueriesFile struct {
	Queries []string `yaml:"queries"`
}

// LoadSearchQueries reads the reply-target search-query list from a YAML
// config file (mirroring internal/research.LoadGoals's treatment of the
// research-goal rubric as caller-supplied config rather than baked-in
// topic text — the core does not know what the principal talks about). A
// missing or malformed file yields an empty list, so FindReplyTargets
// simply finds nothing rather than erroring on an unconfigured deployment.
func LoadSearchQueries(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var f searchQueriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil
	}
	return f.Queries
}
