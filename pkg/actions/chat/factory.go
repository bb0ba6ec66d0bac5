package chat

import (
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

// ActionFactory creates chat action instances for one provider.
type ActionFactory struct {
	actionType models.ActionType
	provider   Provider
}

func NewSlackActionFactory() *ActionFactory {
	return &ActionFactory{actionType: models.ActionSlack, provider: ProviderSlack}
}

func NewDiscordActionFactory() *ActionFactory {
	return &ActionFactory{actionType: models.ActionDiscord, provider: ProviderDiscord}
}

func NewTeamsActionFactory() *ActionFactory {
	return &ActionFactory{actionType: models.ActionTeams, provider: ProviderTeams}
}

func (f *ActionFactory) ID() models.ActionType {
	return f.actionType
}

func (f *ActionFactory) Create(params map[string]any) (protocol.Action, error) {
	return NewAction(f.provider, params)
}
