// Package agent provides the capabilities available to every agent.
// The suggestion capability turns "an agent noticed a gap" into a
// published event.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
	"github.com/Nireus79/Socrates-sub009/internal/event"
	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
)

// SuggestInput carries a proposed knowledge addition.
type SuggestInput struct {
	Content    string               `json:"content"`
	Category   string               `json:"category"`
	Topic      string               `json:"topic,omitempty"`
	Difficulty knowledge.Difficulty `json:"difficulty,omitempty"`
	Reason     string               `json:"reason"`
	ProjectID  string               `json:"project_id"`
}

// Suggester is the suggestion capability bound to one agent's identity.
type Suggester struct {
	agentID string
	bus     *event.Bus
	logger  zerolog.Logger
}

// NewSuggester creates the capability for the named agent.
func NewSuggester(agentID string, bus *event.Bus, logger zerolog.Logger) *Suggester {
	return &Suggester{
		agentID: agentID,
		bus:     bus,
		logger:  logger.With().Str("component", "agent.suggester").Str("agent", agentID).Logger(),
	}
}

// SuggestKnowledge validates the input and emits a suggestion event.
// The call is fire-and-forget: a nil return means the event was emitted,
// not that any listener queued it.
func (s *Suggester) SuggestKnowledge(ctx context.Context, in SuggestInput) error {
	if strings.TrimSpace(in.Content) == "" {
		return apperrors.Validationf("suggestion content is empty")
	}
	if strings.TrimSpace(in.Category) == "" {
		return apperrors.Validationf("suggestion category is empty")
	}
	if strings.TrimSpace(in.ProjectID) == "" {
		return apperrors.Validationf("suggestion project_id is empty")
	}

	s.bus.Emit(ctx, event.SuggestionPayload{
		Content:    in.Content,
		Category:   in.Category,
		Topic:      in.Topic,
		Difficulty: knowledge.ParseDifficulty(string(in.Difficulty)),
		Reason:     in.Reason,
		ProjectID:  in.ProjectID,
		Agent:      s.agentID,
		Timestamp:  time.Now().UTC(),
	})

	s.logger.Debug().
		Str("project_id", in.ProjectID).
		Str("category", in.Category).
		Msg("knowledge suggestion emitted")
	return nil
}
