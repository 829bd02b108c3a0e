/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package research

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Goal is one configured research interest: what the keyword pre-filter
// matches against, and the default priority/action the evaluator prompt
// is told to lean toward.
type Goal struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Priority    string   `yaml:"priority"`
	Action      string   `yaml:"action"`
}

type goalsFile struct {
	Goals []Goal `yaml:"goals"`
}

// LoadGoals reads the research-goal rubric from a YAML config file. A
// missing or malformed file yields an empty goal set rather than an
// error: the pre-filter then matches nothing, so every item short-circuits
// to ignore rather than spending LLM budget on an unconfigured pipeline.
func LoadGoals(path string) []Goal {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var f goalsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil
	}
	return f.Goals
}

func formatGoalsDescription(goals []Goal) string {
	var b strings.Builder
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s: %s\n", g.ID, g.Name)
		fmt.Fprintf(&b, "  Description: %s\n", g.Description)
		fmt.Fprintf(&b, "  Keywords: %s\n", strings.Join(g.Keywords, ", "))
		priority := g.Priority
		if priority == "" {
			priority = "medium"
		}
		fmt.Fprintf(&b, "  Priority: %s\n", priority)
		action := g.Action
		if action == "" {
			action = "knowledge"
		}
		fmt.Fprintf(&b, "  Default action: %s\n\n", action)
	}
	return b.String()
}
