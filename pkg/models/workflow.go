// Package models defines the core domain models for the automation engine.
package models

import "time"

// TriggerType identifies the external event kind that starts a workflow run.
type TriggerType string

const (
	TriggerWebhook    TriggerType = "webhook"
	TriggerSchedule   TriggerType = "schedule"
	TriggerDataChange TriggerType = "data_change"
	TriggerManual     TriggerType = "manual"
	TriggerAPI        TriggerType = "api"
)

// Trigger is a tagged variant: Type selects the kind, Config carries the
// type-specific fields (webhook method/secret, cron expression, table spec).
type Trigger struct {
	Type   TriggerType    `json:"type"             validate:"required,oneof=webhook schedule data_change manual api"`
	Config map[string]any `json:"config,omitempty"`
}

// Workflow is an automation definition: one trigger, a gate of conditions
// and an ordered pipeline of actions.
type Workflow struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"        validate:"required,min=3"`
	Description string      `json:"description"`
	Trigger     Trigger     `json:"trigger"     validate:"required"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	Enabled     bool        `json:"enabled"`

	// ExecutionCount counts runs that reached completed or failed.
	// Skipped runs never ran an action and are excluded.
	ExecutionCount int64      `json:"execution_count"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowPatch carries a partial update. Nil fields are left unchanged.
type WorkflowPatch struct {
	Name        *string      `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string      `json:"description,omitempty"`
	Trigger     *Trigger     `json:"trigger,omitempty"`
	Conditions  *[]Condition `json:"conditions,omitempty"`
	Actions     *[]Action    `json:"actions,omitempty"`
	Enabled     *bool        `json:"enabled,omitempty"`
}

// Apply merges the patch into the workflow in place.
func (p WorkflowPatch) Apply(w *Workflow) {
	if p.Name != nil {
		w.Name = *p.Name
	}

	if p.Description != nil {
		w.Description = *p.Description
	}

	if p.Trigger != nil {
		w.Trigger = *p.Trigger
	}

	if p.Conditions != nil {
		w.Conditions = *p.Conditions
	}

	if p.Actions != nil {
		w.Actions = *p.Actions
	}

	if p.Enabled != nil {
		w.Enabled = *p.Enabled
	}
}
