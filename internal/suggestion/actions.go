package suggestion

import (
	"context"
	"encoding/json"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
	"github.com/Nireus79/Socrates-sub009/internal/knowledge"
	"github.com/Nireus79/Socrates-sub009/internal/orchestrator"
)

// Action names owned by the knowledge manager service.
const (
	ActionGetSuggestions     = "get_suggestions"
	ActionApproveSuggestion  = "approve_suggestion"
	ActionRejectSuggestion   = "reject_suggestion"
	ActionGetQueueStatus     = "get_queue_status"
	ActionClearSuggestions   = "clear_suggestions"
	ActionSearchKnowledge    = "search_knowledge"
	ActionGetKnowledge       = "get_project_knowledge"
	ActionExportKnowledge    = "export_knowledge"
	ActionImportKnowledge    = "import_knowledge"
	ActionDeleteKnowledge    = "delete_project_knowledge"
)

// Name implements orchestrator.Service.
func (m *Manager) Name() string { return "knowledge_manager" }

// Actions implements orchestrator.Service.
func (m *Manager) Actions() []string {
	return []string{
		ActionGetSuggestions,
		ActionApproveSuggestion,
		ActionRejectSuggestion,
		ActionGetQueueStatus,
		ActionClearSuggestions,
		ActionSearchKnowledge,
		ActionGetKnowledge,
		ActionExportKnowledge,
		ActionImportKnowledge,
		ActionDeleteKnowledge,
	}
}

type getSuggestionsParams struct {
	Status string `json:"status"`
}

type suggestionIDParams struct {
	SuggestionID string `json:"suggestion_id"`
}

type clearParams struct {
	KeepPending bool `json:"keep_pending"`
}

type searchParams struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type importParams struct {
	Entries []knowledge.Entry `json:"entries"`
}

// HandleAction implements orchestrator.Service.
func (m *Manager) HandleAction(ctx context.Context, req orchestrator.ActionRequest) (interface{}, error) {
	// search_knowledge treats an empty project id as an unscoped search;
	// every other action requires one.
	if req.ProjectID == "" && req.Action != ActionSearchKnowledge {
		return nil, apperrors.Validationf("project_id is required for %s", req.Action)
	}

	switch req.Action {
	case ActionGetSuggestions:
		p := getSuggestionsParams{Status: FilterAll}
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return m.GetSuggestions(req.ProjectID, p.Status)

	case ActionApproveSuggestion:
		var p suggestionIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		if p.SuggestionID == "" {
			return nil, apperrors.Validationf("suggestion_id is required")
		}
		entry, err := m.Approve(ctx, req.ProjectID, p.SuggestionID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"entry_id": entry.ID}, nil

	case ActionRejectSuggestion:
		var p suggestionIDParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		if p.SuggestionID == "" {
			return nil, apperrors.Validationf("suggestion_id is required")
		}
		return nil, m.Reject(req.ProjectID, p.SuggestionID)

	case ActionGetQueueStatus:
		return m.QueueStatus(req.ProjectID), nil

	case ActionClearSuggestions:
		var p clearParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return map[string]int{"removed": m.Clear(req.ProjectID, p.KeepPending)}, nil

	case ActionSearchKnowledge:
		var p searchParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		return m.store.SearchSimilar(ctx, p.Query, p.TopK, req.ProjectID)

	case ActionGetKnowledge:
		return m.store.GetProjectKnowledge(ctx, req.ProjectID)

	case ActionExportKnowledge:
		return m.store.ExportProjectKnowledge(ctx, req.ProjectID)

	case ActionImportKnowledge:
		var p importParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		count, err := m.store.ImportProjectKnowledge(ctx, req.ProjectID, p.Entries)
		if err != nil {
			return nil, err
		}
		return map[string]int{"imported": count}, nil

	case ActionDeleteKnowledge:
		count, err := m.store.DeleteProjectKnowledge(ctx, req.ProjectID)
		if err != nil {
			return nil, err
		}
		return map[string]int{"removed": count}, nil
	}

	return nil, apperrors.Validationf("unhandled action %q", req.Action)
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Validationf("malformed params: %v", err)
	}
	return nil
}
