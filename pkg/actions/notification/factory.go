package notification

import (
	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

// ActionFactory creates notification action instances bound to the engine
// event bus.
type ActionFactory struct {
	publisher eventbus.EventPublisher
}

func NewActionFactory(publisher eventbus.EventPublisher) *ActionFactory {
	return &ActionFactory{publisher: publisher}
}

func (f *ActionFactory) ID() models.ActionType {
	return models.ActionNotification
}

func (f *ActionFactory) Create(params map[string]any) (protocol.Action, error) {
	return NewAction(f.publisher, params)
}
