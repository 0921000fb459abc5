// Package suggestion owns the per-project suggestion queues and the
// approval workflow that writes accepted knowledge through to the store.
package suggestion

import (
	"time"

	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
)

// Status is the suggestion lifecycle state. The only legal transitions are
// pending→approved and pending→rejected; both are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	// FilterAll matches every status in GetSuggestions.
	FilterAll = "all"
)

// Suggestion is a proposed knowledge addition awaiting review. It is owned
// exclusively by the Manager: created on event receipt, mutated only by
// approve/reject, removed only by Clear.
type Suggestion struct {
	ID          string               `json:"id"`
	ProjectID   string               `json:"project_id"`
	Content     string               `json:"content"`
	Category    string               `json:"category"`
	Topic       string               `json:"topic,omitempty"`
	Difficulty  knowledge.Difficulty `json:"difficulty"`
	Reason      string               `json:"reason"`
	SourceAgent string               `json:"source_agent"`
	CreatedAt   time.Time            `json:"created_at"`
	Status      Status               `json:"status"`
}

// QueueStatus aggregates a project's queue counts. Total always equals
// Pending + Approved + Rejected.
type QueueStatus struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
