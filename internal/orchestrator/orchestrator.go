// Package orchestrator routes named actions to the services that own them.
// Services register under a stable name and declare the actions they handle;
// external callers speak the ActionRequest/ActionResponse contract.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/Nireus79/Socrates-sub009/internal/errors"
	"github.com/Nireus79/Socrates-sub009/internal/metrics"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ActionRequest is an externally-triggered action call.
type ActionRequest struct {
	Action    string          `json:"action"`
	ProjectID string          `json:"project_id"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// ActionResponse is the structured result returned to the caller. Domain
// errors come back as Status "error" with a message; none are process-fatal.
type ActionResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Service is an addressable unit of behavior. HandleAction returns the
// action's result value, or an error from the taxonomy in internal/errors.
type Service interface {
	Name() string
	Actions() []string
	HandleAction(ctx context.Context, req ActionRequest) (interface{}, error)
}

// Orchestrator maps action names to registered services.
type Orchestrator struct {
	mu       sync.RWMutex
	services map[string]Service
	actions  map[string]Service

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New creates an empty orchestrator. metrics may be nil.
func New(logger zerolog.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		services: make(map[string]Service),
		actions:  make(map[string]Service),
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		metrics:  m,
	}
}

// Register adds a service and claims its actions. Panics on a duplicate
// service name or action, which is a wiring bug.
func (o *Orchestrator) Register(svc Service) {
	o.mu.Lock()
	defer o.mu.Unlock()

	name := svc.Name()
	if _, exists := o.services[name]; exists {
		panic(fmt.Sprintf("service already registered: %s", name))
	}
	for _, action := range svc.Actions() {
		if owner, exists := o.actions[action]; exists {
			panic(fmt.Sprintf("action %s already owned by %s", action, owner.Name()))
		}
	}

	o.services[name] = svc
	for _, action := range svc.Actions() {
		o.actions[action] = svc
	}
	o.logger.Info().Str("service", name).Strs("actions", svc.Actions()).Msg("service registered")
}

// Service returns a registered service by name.
func (o *Orchestrator) Service(name string) (Service, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	svc, ok := o.services[name]
	return svc, ok
}

// Dispatch routes a request to the owning service and wraps the outcome in
// an ActionResponse.
func (o *Orchestrator) Dispatch(ctx context.Context, req ActionRequest) ActionResponse {
	o.mu.RLock()
	svc, ok := o.actions[req.Action]
	o.mu.RUnlock()

	if !ok {
		o.record(req.Action, "unknown")
		return ActionResponse{
			Status:  StatusError,
			Message: fmt.Sprintf("unknown action: %s", req.Action),
		}
	}

	data, err := svc.HandleAction(ctx, req)
	if err != nil {
		kind := apperrors.Kind(err)
		o.record(req.Action, kind)
		o.logger.Warn().
			Err(err).
			Str("action", req.Action).
			Str("project_id", req.ProjectID).
			Msg("action failed")
		return ActionResponse{Status: StatusError, Message: err.Error()}
	}

	o.record(req.Action, "success")
	return ActionResponse{Status: StatusSuccess, Data: data}
}

func (o *Orchestrator) record(action, status string) {
	if o.metrics != nil {
		o.metrics.RecordAction(action, status)
	}
}
