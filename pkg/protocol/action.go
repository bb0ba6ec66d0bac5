// Package protocol defines the contracts between the execution engine and
// pluggable action handlers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
)

// Action executes one side-effecting step. Params were interpolated by the
// dispatcher before Create, so handlers see concrete values. The returned
// map becomes the step output visible to later actions via templates.
type Action interface {
	Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds action instances for one type tag. Create validates
// the parameter shape and returns a ready-to-run handler.
type ActionFactory interface {
	ID() models.ActionType
	Create(params map[string]any) (Action, error)
}
