// Package registry maps action type tags to handler factories.
//
// Dispatch is a registry lookup, not a central switch: a new action kind is
// added by registering a factory.
package registry

import (
	"log/slog"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

type Registry struct {
	logger          *slog.Logger
	actionFactories map[models.ActionType]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		actionFactories: make(map[models.ActionType]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// CreateAction builds a handler for one action. Unknown type tags are a
// configuration error.
func (r *Registry) CreateAction(actionType models.ActionType, params map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, models.NewConfigurationError("actions", "action type '"+string(actionType)+"' not registered")
	}

	return factory.Create(params)
}

// ValidateAction checks an action definition without executing it, so
// misconfiguration surfaces at workflow create/update time.
func (r *Registry) ValidateAction(action models.Action) error {
	factory, ok := r.actionFactories[action.Type]
	if !ok {
		return models.NewConfigurationError("actions", "action type '"+string(action.Type)+"' not registered")
	}

	_, err := factory.Create(action.Params)

	return err
}

// ActionTypes returns the registered type tags.
func (r *Registry) ActionTypes() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}
