package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the lifecycle state of one workflow run.
// pending -> running -> {completed | skipped | failed}; terminal states are
// never left and terminal records are never mutated.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionSkipped   ExecutionStatus = "skipped"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionSkipped || s == ExecutionFailed
}

// Countable reports whether a run in this status increments the workflow's
// execution counter. Skipped runs never ran an action and do not count.
func (s ExecutionStatus) Countable() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

// StepResult records one executed action, in execution order.
type StepResult struct {
	ActionType  ActionType `json:"action_type"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Success     bool       `json:"success"`
	Output      any        `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Execution is the record of one workflow run.
type Execution struct {
	ID             string          `json:"id"`
	WorkflowID     string          `json:"workflow_id"`
	TriggerPayload map[string]any  `json:"trigger_payload,omitempty"`
	Status         ExecutionStatus `json:"status"`
	Steps          []StepResult    `json:"steps"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// NewExecution creates a pending run record for an enabled workflow.
func NewExecution(workflowID string, payload map[string]any, now time.Time) *Execution {
	return &Execution{
		ID:             "exec-" + uuid.New().String(),
		WorkflowID:     workflowID,
		TriggerPayload: payload,
		Status:         ExecutionPending,
		StartedAt:      now,
	}
}

// Begin transitions the run from pending to running.
func (e *Execution) Begin() {
	e.Status = ExecutionRunning
}

// Finish moves the run into a terminal state and stamps CompletedAt.
func (e *Execution) Finish(status ExecutionStatus, now time.Time) {
	e.Status = status
	e.CompletedAt = &now
}

// AppendStep records one action result in execution order.
func (e *Execution) AppendStep(step StepResult) {
	e.Steps = append(e.Steps, step)
}
