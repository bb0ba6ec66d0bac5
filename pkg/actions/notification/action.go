// Package notification implements the notification action. It publishes an
// in-app notification event on the engine bus; delivery to user surfaces is
// a subscriber concern.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/events"
)

// ErrMessageRequired is returned when the action has no message.
var ErrMessageRequired = errors.New("notification action requires a 'message'")

// Action emits one notification event.
type Action struct {
	WorkflowID string
	Title      string
	Message    string
	Severity   string

	publisher eventbus.EventPublisher
}

// NewAction builds the action from its interpolated params. The workflow id
// is injected by the dispatcher so subscribers can attribute the
// notification.
func NewAction(publisher eventbus.EventPublisher, params map[string]any) (*Action, error) {
	message, _ := params["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	title, _ := params["title"].(string)
	severity, _ := params["severity"].(string)
	workflowID, _ := params["workflow_id"].(string)

	if severity == "" {
		severity = "info"
	}

	return &Action{
		WorkflowID: workflowID,
		Title:      title,
		Message:    message,
		Severity:   severity,
		publisher:  publisher,
	}, nil
}

// Execute publishes the notification event.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "notification_action")

	event := events.Notification{
		BaseEvent: events.NewBaseEvent(events.NotificationEvent, a.WorkflowID),
		Title:     a.Title,
		Message:   a.Message,
		Severity:  a.Severity,
	}

	if err := a.publisher.Publish(ctx, a.WorkflowID, event); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Notification published", "severity", a.Severity)

	return map[string]any{
		"notification_id": event.ID,
		"severity":        a.Severity,
	}, nil
}
