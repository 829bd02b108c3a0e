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
	"strings"
)

// FormatDigest renders a cycle's stats as a short human-readable summary,
// grounded on original_source/agents/research_agent/agent.py's
// _send_digest: at most the first 3 errors are shown, each truncated to
// 50 characters, so a noisy scraper outage cannot blow up the message.
func FormatDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research cycle: %d scraped, %d new, %d relevant\n", d.Scraped, d.New, d.Relevant)
	fmt.Fprintf(&b, "Alerts: %d | Tasks: %d | Content: %d | Knowledge: %d | Watch: %d | Ignored: %d",
		d.Alerts, d.Tasks, d.Content, d.Knowledge, d.Watch, d.Ignored)

	if len(d.Errors) > 0 {
		shown := d.Errors
		if len(shown) > 3 {
			shown = shown[:3]
		}
		b.WriteString("\nErrors:")
		for _, e := range shown {
			b.WriteString("\n- " + truncate(e, 50))
		}
	}
	return b.String()
}
