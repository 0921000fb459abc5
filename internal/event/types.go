// Package event defines the in-process event bus and its typed payloads.
// All agent stimuli flow as Events; the bus is best-effort, in-memory,
// and lives for the process lifetime.
package event

import (
	"time"

	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
)

// Kind identifies an event type. The enumeration is closed: every kind
// has exactly one payload struct.
type Kind string

const (
	// KindSuggestion carries a knowledge suggestion from an agent.
	KindSuggestion Kind = "knowledge.suggestion"

	// KindKnowledgeAdded announces that a suggestion was approved and
	// its entry persisted.
	KindKnowledgeAdded Kind = "knowledge.added"
)

// Payload is implemented by every event payload struct. The kind is
// derived from the payload, so an Emit call can never mismatch the two.
type Payload interface {
	EventKind() Kind
}

// Event is an immutable emitted event.
type Event struct {
	Kind      Kind      `json:"kind"`
	Payload   Payload   `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// SuggestionPayload is the payload for KindSuggestion events.
type SuggestionPayload struct {
	Content    string               `json:"content"`
	Category   string               `json:"category"`
	Topic      string               `json:"topic,omitempty"`
	Difficulty knowledge.Difficulty `json:"difficulty"`
	Reason     string               `json:"reason"`
	ProjectID  string               `json:"project_id"`
	Agent      string               `json:"agent"`
	Timestamp  time.Time            `json:"timestamp"`
}

// EventKind implements Payload.
func (SuggestionPayload) EventKind() Kind { return KindSuggestion }

// KnowledgeAddedPayload is the payload for KindKnowledgeAdded events.
type KnowledgeAddedPayload struct {
	EntryID      string `json:"entry_id"`
	SuggestionID string `json:"suggestion_id"`
	ProjectID    string `json:"project_id"`
	Category     string `json:"category"`
}

// EventKind implements Payload.
func (KnowledgeAddedPayload) EventKind() Kind { return KindKnowledgeAdded }
