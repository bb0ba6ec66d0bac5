// Package events defines event types for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
)

type EventType string

// Topic is the bus topic carrying all engine events.
const Topic = "appforge.automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow definition lifecycle.
	WorkflowCreatedEvent EventType = "workflow.created"
	WorkflowUpdatedEvent EventType = "workflow.updated"
	WorkflowDeletedEvent EventType = "workflow.deleted"

	// Execution lifecycle.
	ExecutionStartedEvent  EventType = "execution.started"
	ExecutionFinishedEvent EventType = "execution.finished"

	// NotificationEvent carries in-app notifications emitted by the
	// notification action.
	NotificationEvent EventType = "notification"
)

type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e WorkflowCreated) GetType() EventType { return WorkflowCreatedEvent }

type WorkflowUpdated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e WorkflowUpdated) GetType() EventType { return WorkflowUpdatedEvent }

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType { return WorkflowDeletedEvent }

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionFinished struct {
	BaseEvent

	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Duration    time.Duration          `json:"duration"`
}

func (e ExecutionFinished) GetType() EventType { return ExecutionFinishedEvent }

type Notification struct {
	BaseEvent

	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

func (e Notification) GetType() EventType { return NotificationEvent }
