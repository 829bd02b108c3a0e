package approval

import (
	"encoding/json"
	"fmt"
)

// Queue is the public contract of the Approval Queue (spec §4.1), backed by
// a *Store. It exists as a thin name-stable façade so callers depend on
// verb-shaped operations (Submit/Approve/Reject/...) rather than on the
// storage type directly — the same separation the teacher draws between
// jobs.Store (persistence) and the operations jobs.Scheduler calls on it.
type Queue struct {
	*Store
}

// NewQueue wraps an already-opened Store.
func NewQueue(store *Store) *Queue {
	return &Queue{Store: store}
}

// FormatPreview renders a short human-readable summary of an approval for
// the operator UI. Purely derived from action_type and action_data.
func FormatPreview(a *Approval) string {
	if a == nil {
		return ""
	}
	var payload map[string]any
	_ = json.Unmarshal(a.ActionData, &payload)

	switch a.ActionType {
	case "tweet", "video_tweet":
		return fmt.Sprintf("[tweet] %s", truncate(stringField(payload, "text"), 120))
	case "reply":
		return fmt.Sprintf("[reply to %s] %s", stringField(payload, "tweet_id"), truncate(stringField(payload, "text"), 120))
	case "thread":
		tweets, _ := payload["tweets"].([]any)
		return fmt.Sprintf("[thread, %d tweets]", len(tweets))
	case "video_distribute":
		platforms, _ := payload["platforms"].([]any)
		return fmt.Sprintf("[video distribute to %d platforms]", len(platforms))
	case "comic_distribute":
		return "[comic distribute]"
	case "script_review":
		return fmt.Sprintf("[script review] %s", truncate(stringField(payload, "script"), 120))
	default:
		return fmt.Sprintf("[%s] %s", a.ActionType, a.ContextSummary)
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
