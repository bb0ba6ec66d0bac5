package models

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidWebhookBinding is returned when webhook binding validation fails.
	ErrInvalidWebhookBinding = errors.New("invalid webhook binding")

	// ErrInvalidScheduleBinding is returned when schedule binding validation fails.
	ErrInvalidScheduleBinding = errors.New("invalid schedule binding")
)

// webhookNamespace seeds deterministic webhook binding ids so that binding
// the same workflow twice yields the same endpoint.
var webhookNamespace = uuid.MustParse("9e336be2-63d5-51a9-916f-32fdbbdbc6f5")

// WebhookBindingID derives the binding id for a workflow. The derivation is
// deterministic: repeated binding attempts for one workflow are idempotent.
func WebhookBindingID(workflowID string) string {
	return uuid.NewSHA1(webhookNamespace, []byte(workflowID)).String()
}

// WebhookBinding maps an externally addressable webhook path to a workflow.
type WebhookBinding struct {
	ID         string            `json:"id"          validate:"required"`
	WorkflowID string            `json:"workflow_id" validate:"required"`
	Path       string            `json:"path"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	Secret     string            `json:"secret,omitempty"`

	// PayloadSchema optionally holds a JSON schema the delivery body must
	// satisfy before the workflow is triggered.
	PayloadSchema map[string]any `json:"payload_schema,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewWebhookBinding builds the binding for a workflow's webhook trigger.
// Method defaults to POST when the trigger config does not declare one.
func NewWebhookBinding(workflowID string, config map[string]any, now time.Time) (*WebhookBinding, error) {
	if workflowID == "" {
		return nil, ErrInvalidWebhookBinding
	}

	id := WebhookBindingID(workflowID)

	binding := &WebhookBinding{
		ID:         id,
		WorkflowID: workflowID,
		Path:       "/api/webhooks/" + id,
		Method:     http.MethodPost,
		CreatedAt:  now,
	}

	if method, ok := config["method"].(string); ok && method != "" {
		binding.Method = method
	}

	if secret, ok := config["secret"].(string); ok {
		binding.Secret = secret
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		binding.Headers = make(map[string]string, len(headers))

		for k, v := range headers {
			if s, ok := v.(string); ok {
				binding.Headers[k] = s
			}
		}
	}

	if schema, ok := config["payload_schema"].(map[string]any); ok {
		binding.PayloadSchema = schema
	}

	return binding, nil
}

// Validate performs validation on the webhook binding structure.
func (b *WebhookBinding) Validate() error {
	if b.ID == "" || b.WorkflowID == "" || b.Path == "" {
		return ErrInvalidWebhookBinding
	}

	return nil
}

// cronParser accepts the standard 5-field cron format
// (minute hour day month weekday).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ScheduleBinding is a schedule entry with its precomputed next fire time.
// NextRunAt is recomputed from the cron expression after every fire, so
// drift never accumulates and the expression is always honored.
type ScheduleBinding struct {
	ID             string `json:"id"              validate:"required"`
	WorkflowID     string `json:"workflow_id"     validate:"required"`
	CronExpression string `json:"cron_expression" validate:"required"`

	// Timezone is an IANA location name; the cron expression is evaluated
	// in this location. Empty means UTC.
	Timezone string `json:"timezone,omitempty"`

	NextRunAt time.Time `json:"next_run_at"`
	Enabled   bool      `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewScheduleBinding parses the expression and timezone and computes the
// first fire time from now. An unparsable expression or unknown timezone is
// rejected here, at bind time.
func NewScheduleBinding(workflowID string, config map[string]any, now time.Time) (*ScheduleBinding, error) {
	if workflowID == "" {
		return nil, ErrInvalidScheduleBinding
	}

	expr, _ := config["cron_expression"].(string)
	if expr == "" {
		// Accept the shorter key used by older definitions.
		expr, _ = config["expression"].(string)
	}

	tz, _ := config["timezone"].(string)

	binding := &ScheduleBinding{
		ID:             uuid.New().String(),
		WorkflowID:     workflowID,
		CronExpression: expr,
		Timezone:       tz,
		Enabled:        true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := binding.CalculateNextRunAt(now); err != nil {
		return nil, err
	}

	return binding, nil
}

// Location resolves the binding's timezone, defaulting to UTC.
func (b *ScheduleBinding) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}

	return time.LoadLocation(b.Timezone)
}

// CalculateNextRunAt recomputes NextRunAt from the given reference time.
func (b *ScheduleBinding) CalculateNextRunAt(reference time.Time) error {
	schedule, err := cronParser.Parse(b.CronExpression)
	if err != nil {
		return err
	}

	loc, err := b.Location()
	if err != nil {
		return err
	}

	b.NextRunAt = schedule.Next(reference.In(loc))
	b.UpdatedAt = reference

	return nil
}

// IsDue reports whether the binding should fire at the given time.
// Disabled bindings are never due.
func (b *ScheduleBinding) IsDue(now time.Time) bool {
	return b.Enabled && !b.NextRunAt.After(now)
}

// Validate checks the binding fields and the cron expression format.
func (b *ScheduleBinding) Validate() error {
	if b.ID == "" || b.WorkflowID == "" || b.CronExpression == "" {
		return ErrInvalidScheduleBinding
	}

	if _, err := cronParser.Parse(b.CronExpression); err != nil {
		return err
	}

	_, err := b.Location()

	return err
}

// DataChangeBinding stores the declarative spec of a data-change trigger.
// The engine does not watch a data store itself; a change-data-capture
// collaborator asks the binder which workflows match a change.
type DataChangeBinding struct {
	ID         string `json:"id"          validate:"required"`
	WorkflowID string `json:"workflow_id" validate:"required"`

	// Table and Operation select which changes are relevant. Operation is
	// one of insert, update, delete; empty matches any operation.
	Table     string `json:"table"     validate:"required"`
	Operation string `json:"operation,omitempty"`

	// Conditions are evaluated against the changed record.
	Conditions []Condition `json:"conditions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewDataChangeBinding builds the binding from a data_change trigger config.
func NewDataChangeBinding(workflowID string, config map[string]any, now time.Time) (*DataChangeBinding, error) {
	table, _ := config["table"].(string)
	if workflowID == "" || table == "" {
		return nil, errors.New("data-change binding requires a workflow id and a table")
	}

	binding := &DataChangeBinding{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Table:      table,
		CreatedAt:  now,
	}

	if op, ok := config["operation"].(string); ok {
		binding.Operation = op
	}

	if raw, ok := config["conditions"].([]any); ok {
		for _, item := range raw {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}

			condition := Condition{Value: entry["value"]}
			if field, ok := entry["field"].(string); ok {
				condition.Field = field
			}

			if op, ok := entry["operator"].(string); ok {
				condition.Operator = Operator(op)
			}

			binding.Conditions = append(binding.Conditions, condition)
		}
	}

	return binding, nil
}
