// Package web provides the HTTP API for workflow management, manual runs,
// execution history and inbound webhook deliveries.
package web

import "github.com/fernandogarzaaa/appforge-sub001/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string             `json:"name"        validate:"required,min=3"`
	Description string             `json:"description"`
	Trigger     models.Trigger     `json:"trigger"     validate:"required"`
	Conditions  []models.Condition `json:"conditions"`
	Actions     []models.Action    `json:"actions"`
	Enabled     *bool              `json:"enabled"`
}

// WorkflowResponse wraps a workflow together with its webhook endpoint when
// the trigger is a webhook.
type WorkflowResponse struct {
	*models.Workflow

	WebhookPath string `json:"webhook_path,omitempty"`
}

// RunWorkflowRequest is the request body for a manual run.
type RunWorkflowRequest struct {
	Payload map[string]any `json:"payload"`
}

// ExecutionResponse summarizes one run for API consumers.
type ExecutionResponse struct {
	Execution *models.Execution `json:"execution"`
}
