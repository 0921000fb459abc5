package suggestion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
	"github.com/Nireus79/Socrates-sub009/internal/event"
	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
	"github.com/Nireus79/Socrates-sub009/internal/metrics"
)

// KnowledgeStore is the slice of the knowledge store the manager depends on.
type KnowledgeStore interface {
	AddProjectKnowledge(ctx context.Context, e knowledge.Entry, projectID string) (knowledge.Entry, error)
	SearchSimilar(ctx context.Context, query string, topK int, projectID string) ([]knowledge.ScoredEntry, error)
	GetProjectKnowledge(ctx context.Context, projectID string) ([]knowledge.Entry, error)
	ExportProjectKnowledge(ctx context.Context, projectID string) ([]knowledge.Entry, error)
	ImportProjectKnowledge(ctx context.Context, projectID string, entries []knowledge.Entry) (int, error)
	DeleteProjectKnowledge(ctx context.Context, projectID string) (int, error)
}

// queue holds one project's suggestions in insertion order. Its lock is the
// per-project serialization boundary: every mutation, including the store
// write during approval, happens inside it.
type queue struct {
	mu    sync.RWMutex
	order []*Suggestion
	byID  map[string]*Suggestion
}

// Manager subscribes to suggestion events, queues suggestions per project,
// and applies the approval/rejection state machine. Queues are in-memory
// for the process lifetime; a restart drops unreviewed suggestions.
type Manager struct {
	store   KnowledgeStore
	bus     *event.Bus
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	queues map[string]*queue
}

// NewManager creates a Manager and registers its listener on the bus.
// bus and metrics may be nil (useful in tests).
func NewManager(store KnowledgeStore, bus *event.Bus, logger zerolog.Logger, m *metrics.Metrics) *Manager {
	mgr := &Manager{
		store:   store,
		bus:     bus,
		logger:  logger.With().Str("component", "suggestion.manager").Logger(),
		metrics: m,
		queues:  make(map[string]*queue),
	}
	if bus != nil {
		bus.Register(event.KindSuggestion, mgr.onSuggestion)
	}
	return mgr
}

// onSuggestion queues an incoming suggestion as pending.
func (m *Manager) onSuggestion(_ context.Context, ev event.Event) error {
	payload, ok := ev.Payload.(event.SuggestionPayload)
	if !ok {
		return apperrors.Validationf("unexpected payload type for %s", ev.Kind)
	}

	created := payload.Timestamp
	if created.IsZero() {
		created = time.Now().UTC()
	}
	s := &Suggestion{
		ID:          uuid.New().String(),
		ProjectID:   payload.ProjectID,
		Content:     payload.Content,
		Category:    payload.Category,
		Topic:       payload.Topic,
		Difficulty:  knowledge.ParseDifficulty(string(payload.Difficulty)),
		Reason:      payload.Reason,
		SourceAgent: payload.Agent,
		CreatedAt:   created,
		Status:      StatusPending,
	}

	q := m.getQueue(payload.ProjectID, true)
	q.mu.Lock()
	q.order = append(q.order, s)
	q.byID[s.ID] = s
	q.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSuggestion("queued")
	}
	m.logger.Info().
		Str("suggestion_id", s.ID).
		Str("project_id", s.ProjectID).
		Str("agent", s.SourceAgent).
		Str("category", s.Category).
		Msg("suggestion queued")
	return nil
}

func (m *Manager) getQueue(projectID string, create bool) *queue {
	m.mu.RLock()
	q := m.queues[projectID]
	m.mu.RUnlock()
	if q != nil || !create {
		return q
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q = m.queues[projectID]; q == nil {
		q = &queue{byID: make(map[string]*Suggestion)}
		m.queues[projectID] = q
	}
	return q
}

// GetSuggestions returns the project's suggestions matching filter
// ("pending", "approved", "rejected" or "all") in insertion order.
// An unknown project yields an empty list.
func (m *Manager) GetSuggestions(projectID, filter string) ([]Suggestion, error) {
	switch filter {
	case string(StatusPending), string(StatusApproved), string(StatusRejected), FilterAll:
	default:
		return nil, apperrors.Validationf("unknown status filter %q", filter)
	}

	q := m.getQueue(projectID, false)
	if q == nil {
		return []Suggestion{}, nil
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Suggestion, 0, len(q.order))
	for _, s := range q.order {
		if filter == FilterAll || string(s.Status) == filter {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Approve validates the suggestion is pending, writes its knowledge entry
// through to the store, and only then flips the status to approved. On a
// store failure the suggestion stays pending so the call can be retried.
func (m *Manager) Approve(ctx context.Context, projectID, suggestionID string) (knowledge.Entry, error) {
	entry, err := m.approve(ctx, projectID, suggestionID)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordApproval(apperrors.Kind(err))
		}
		return knowledge.Entry{}, err
	}

	if m.metrics != nil {
		m.metrics.RecordApproval("approved")
		m.metrics.RecordSuggestion("approved")
	}
	if m.bus != nil {
		m.bus.Emit(ctx, event.KnowledgeAddedPayload{
			EntryID:      entry.ID,
			SuggestionID: suggestionID,
			ProjectID:    projectID,
			Category:     entry.Category,
		})
	}
	return entry, nil
}

func (m *Manager) approve(ctx context.Context, projectID, suggestionID string) (knowledge.Entry, error) {
	q := m.getQueue(projectID, false)
	if q == nil {
		return knowledge.Entry{}, apperrors.NotFoundf("suggestion %s in project %s", suggestionID, projectID)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.byID[suggestionID]
	if s == nil {
		return knowledge.Entry{}, apperrors.NotFoundf("suggestion %s in project %s", suggestionID, projectID)
	}
	if s.Status != StatusPending {
		return knowledge.Entry{}, apperrors.InvalidStatef("suggestion %s is already %s", suggestionID, s.Status)
	}

	entry, err := m.store.AddProjectKnowledge(ctx, knowledge.Entry{
		Content:    s.Content,
		Category:   s.Category,
		Topic:      s.Topic,
		Difficulty: s.Difficulty,
	}, projectID)
	if err != nil {
		m.logger.Error().
			Err(err).
			Str("suggestion_id", suggestionID).
			Str("project_id", projectID).
			Msg("approval write failed, suggestion stays pending")
		return knowledge.Entry{}, err
	}

	s.Status = StatusApproved
	m.logger.Info().
		Str("suggestion_id", suggestionID).
		Str("project_id", projectID).
		Str("entry_id", entry.ID).
		Msg("suggestion approved")
	return entry, nil
}

// Reject flips a pending suggestion to rejected. No store interaction.
func (m *Manager) Reject(projectID, suggestionID string) error {
	q := m.getQueue(projectID, false)
	if q == nil {
		return apperrors.NotFoundf("suggestion %s in project %s", suggestionID, projectID)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.byID[suggestionID]
	if s == nil {
		return apperrors.NotFoundf("suggestion %s in project %s", suggestionID, projectID)
	}
	if s.Status != StatusPending {
		return apperrors.InvalidStatef("suggestion %s is already %s", suggestionID, s.Status)
	}

	s.Status = StatusRejected
	if m.metrics != nil {
		m.metrics.RecordSuggestion("rejected")
	}
	m.logger.Info().
		Str("suggestion_id", suggestionID).
		Str("project_id", projectID).
		Msg("suggestion rejected")
	return nil
}

// QueueStatus returns the project's queue counts.
func (m *Manager) QueueStatus(projectID string) QueueStatus {
	q := m.getQueue(projectID, false)
	if q == nil {
		return QueueStatus{}
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	var st QueueStatus
	for _, s := range q.order {
		switch s.Status {
		case StatusPending:
			st.Pending++
		case StatusApproved:
			st.Approved++
		case StatusRejected:
			st.Rejected++
		}
	}
	st.Total = len(q.order)
	return st
}

// Clear removes the project's terminal suggestions, and the pending ones
// too unless keepPending is set. Returns the number removed.
func (m *Manager) Clear(projectID string, keepPending bool) int {
	q := m.getQueue(projectID, false)
	if q == nil {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.order[:0]
	removed := 0
	for _, s := range q.order {
		if keepPending && s.Status == StatusPending {
			kept = append(kept, s)
			continue
		}
		delete(q.byID, s.ID)
		removed++
	}
	q.order = kept

	if m.metrics != nil && removed > 0 {
		m.metrics.RecordSuggestion("cleared")
	}
	m.logger.Info().
		Str("project_id", projectID).
		Bool("keep_pending", keepPending).
		Int("removed", removed).
		Msg("suggestions cleared")
	return removed
}
