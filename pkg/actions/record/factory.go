package record

import (
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
)

// ActionFactory creates database action instances bound to the record store.
type ActionFactory struct {
	store persistence.RecordStore
}

func NewActionFactory(store persistence.RecordStore) *ActionFactory {
	return &ActionFactory{store: store}
}

func (f *ActionFactory) ID() models.ActionType {
	return models.ActionDatabase
}

func (f *ActionFactory) Create(params map[string]any) (protocol.Action, error) {
	return NewAction(f.store, params)
}
