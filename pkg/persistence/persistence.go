// Package persistence provides the storage abstraction for workflows,
// trigger bindings, records and the execution ledger.
package persistence

import (
	"context"
	"time"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
)

// WorkflowRepository owns workflow definition storage.
type WorkflowRepository interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	// RecordRun atomically increments the workflow's execution counter and
	// stamps last_executed_at. Called only for completed or failed runs.
	RecordRun(ctx context.Context, id string, at time.Time) error
}

// BindingRepository owns trigger binding storage for all binding kinds.
type BindingRepository interface {
	SaveWebhookBinding(ctx context.Context, binding *models.WebhookBinding) error
	WebhookBindingByID(ctx context.Context, id string) (*models.WebhookBinding, error)
	DeleteWebhookBindings(ctx context.Context, workflowID string) error

	SaveScheduleBinding(ctx context.Context, binding *models.ScheduleBinding) error
	ScheduleBindingsByWorkflow(ctx context.Context, workflowID string) ([]*models.ScheduleBinding, error)
	DueScheduleBindings(ctx context.Context, now time.Time) ([]*models.ScheduleBinding, error)
	DeleteScheduleBindings(ctx context.Context, workflowID string) error

	SaveDataChangeBinding(ctx context.Context, binding *models.DataChangeBinding) error
	DataChangeBindingsByTable(ctx context.Context, table string) ([]*models.DataChangeBinding, error)
	DeleteDataChangeBindings(ctx context.Context, workflowID string) error
}

// ExecutionLedger is the append-only record store of runs. Terminal records
// are never mutated.
type ExecutionLedger interface {
	Append(ctx context.Context, execution *models.Execution) error

	// ExecutionsByWorkflow returns the most recent runs, newest first.
	// limit <= 0 means no limit.
	ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error)

	ClearWorkflow(ctx context.Context, workflowID string) error
	ClearAll(ctx context.Context) error
}

// ChangeCallback observes record store mutations; operation is one of
// insert, update, delete.
type ChangeCallback func(table, operation string, record map[string]any)

// RecordStore is the table/record data store the database action mutates.
// Implementations that can, notify change callbacks so data-change triggers
// fire without polling.
type RecordStore interface {
	InsertRecord(ctx context.Context, table string, record map[string]any) (map[string]any, error)
	UpdateRecord(ctx context.Context, table, id string, patch map[string]any) (map[string]any, error)
	DeleteRecord(ctx context.Context, table, id string) (map[string]any, error)
	RecordByID(ctx context.Context, table, id string) (map[string]any, error)

	OnChange(callback ChangeCallback)
}

// Persistence aggregates the engine's stores behind one backend.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	BindingRepository() BindingRepository
	ExecutionLedger() ExecutionLedger
	RecordStore() RecordStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
