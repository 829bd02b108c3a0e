// Package approval is the sole durable store of outbound actions and the
// sole authority on their status.
package approval

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an Approval.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusEdited   Status = "edited"
	StatusExpired  Status = "expired"
)

// Approval is an action proposed by some internal agent awaiting operator
// judgment.
type Approval struct {
	ID              int64           `json:"id"`
	ProjectID       string          `json:"project_id"`
	AgentID         string          `json:"agent_id"`
	ActionType      string          `json:"action_type"`
	ActionData      json.RawMessage `json:"action_data"`
	ContextSummary  string          `json:"context_summary"`
	CostEstimate    float64         `json:"cost_estimate"`
	Status          Status          `json:"status"`
	OperatorNotes   string          `json:"operator_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
}

// Stats is the result of get_stats: counts grouped by status.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Edited   int `json:"edited"`
	Expired  int `json:"expired"`
}
