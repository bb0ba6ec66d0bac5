package httprequest

import (
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

// ActionFactory creates http_request action instances.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) ID() models.ActionType {
	return models.ActionHTTPRequest
}

func (f *ActionFactory) Create(params map[string]any) (protocol.Action, error) {
	return NewAction(params)
}
