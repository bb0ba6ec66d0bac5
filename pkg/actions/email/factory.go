package email

import (
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

// ActionFactory creates email action instances bound to one SMTP transport.
type ActionFactory struct {
	smtp SMTPConfig
}

func NewActionFactory(smtp SMTPConfig) *ActionFactory {
	return &ActionFactory{smtp: smtp}
}

func (f *ActionFactory) ID() models.ActionType {
	return models.ActionEmail
}

func (f *ActionFactory) Create(params map[string]any) (protocol.Action, error) {
	return NewAction(f.smtp, params)
}
