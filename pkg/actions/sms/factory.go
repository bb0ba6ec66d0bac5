package sms

import (
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

// ActionFactory creates sms action instances bound to one gateway.
type ActionFactory struct {
	gateway GatewayConfig
}

func NewActionFactory(gateway GatewayConfig) *ActionFactory {
	return &ActionFactory{gateway: gateway}
}

func (f *ActionFactory) ID() models.ActionType {
	return models.ActionSMS
}

func (f *ActionFactory) Create(params map[string]any) (protocol.Action, error) {
	return NewAction(f.gateway, params)
}
