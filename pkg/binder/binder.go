// Package binder owns the lifecycle of trigger bindings: the durable
// association between a workflow and the external mechanism that can
// trigger it.
package binder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/conditions"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

// Binder creates and removes trigger bindings. It never executes
// workflows; execution is the engine's concern.
type Binder struct {
	workflows persistence.WorkflowRepository
	bindings  persistence.BindingRepository
	logger    *slog.Logger
	clock     clockwork.Clock
}

func NewBinder(
	workflows persistence.WorkflowRepository,
	bindings persistence.BindingRepository,
	logger *slog.Logger,
	clock clockwork.Clock,
) *Binder {
	return &Binder{
		workflows: workflows,
		bindings:  bindings,
		logger:    logger.With("module", "binder"),
		clock:     clock,
	}
}

// Bind registers the binding a workflow's trigger declares. For webhook
// triggers the externally-addressable path is returned so the caller can
// advertise it. Manual and api triggers need no binding.
//
// Binding is idempotent for webhooks: the binding id derives from the
// workflow id, so binding twice yields the same endpoint.
func (b *Binder) Bind(ctx context.Context, workflow *models.Workflow) (string, error) {
	now := b.clock.Now().UTC()

	switch workflow.Trigger.Type {
	case models.TriggerWebhook:
		binding, err := models.NewWebhookBinding(workflow.ID, workflow.Trigger.Config, now)
		if err != nil {
			return "", models.NewConfigurationError("trigger", err.Error())
		}

		if err := b.bindings.SaveWebhookBinding(ctx, binding); err != nil {
			return "", fmt.Errorf("failed to save webhook binding: %w", err)
		}

		b.logger.Info("Bound webhook trigger",
			"workflow_id", workflow.ID,
			"binding_id", binding.ID,
			"path", binding.Path,
			"method", binding.Method)

		return binding.Path, nil

	case models.TriggerSchedule:
		binding, err := models.NewScheduleBinding(workflow.ID, workflow.Trigger.Config, now)
		if err != nil {
			return "", models.NewConfigurationError("trigger", "invalid schedule: "+err.Error())
		}

		if err := b.bindings.SaveScheduleBinding(ctx, binding); err != nil {
			return "", fmt.Errorf("failed to save schedule binding: %w", err)
		}

		b.logger.Info("Bound schedule trigger",
			"workflow_id", workflow.ID,
			"cron", binding.CronExpression,
			"timezone", binding.Timezone,
			"next_run_at", binding.NextRunAt)

		return "", nil

	case models.TriggerDataChange:
		binding, err := models.NewDataChangeBinding(workflow.ID, workflow.Trigger.Config, now)
		if err != nil {
			return "", models.NewConfigurationError("trigger", err.Error())
		}

		if err := b.bindings.SaveDataChangeBinding(ctx, binding); err != nil {
			return "", fmt.Errorf("failed to save data-change binding: %w", err)
		}

		b.logger.Info("Bound data-change trigger",
			"workflow_id", workflow.ID,
			"table", binding.Table,
			"operation", binding.Operation)

		return "", nil

	case models.TriggerManual, models.TriggerAPI:
		return "", nil

	default:
		return "", models.NewConfigurationError("trigger", "unknown trigger type '"+string(workflow.Trigger.Type)+"'")
	}
}

// Unbind removes every binding owned by the workflow, across all kinds.
// Called on workflow deletion and before re-binding on trigger change, so a
// workflow never holds more than one active binding.
func (b *Binder) Unbind(ctx context.Context, workflowID string) error {
	if err := b.bindings.DeleteWebhookBindings(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to remove webhook bindings: %w", err)
	}

	if err := b.bindings.DeleteScheduleBindings(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to remove schedule bindings: %w", err)
	}

	if err := b.bindings.DeleteDataChangeBindings(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to remove data-change bindings: %w", err)
	}

	b.logger.Debug("Unbound workflow triggers", "workflow_id", workflowID)

	return nil
}

// Rebind replaces a workflow's bindings after its trigger changed.
func (b *Binder) Rebind(ctx context.Context, workflow *models.Workflow) (string, error) {
	if err := b.Unbind(ctx, workflow.ID); err != nil {
		return "", err
	}

	return b.Bind(ctx, workflow)
}

// WebhookBindingByID resolves a webhook delivery to its binding.
func (b *Binder) WebhookBindingByID(ctx context.Context, id string) (*models.WebhookBinding, error) {
	return b.bindings.WebhookBindingByID(ctx, id)
}

// MatchDataChange returns the ids of enabled workflows whose data-change
// spec matches a change. The caller is an external change-data-capture
// collaborator; the binder itself never watches a data store.
func (b *Binder) MatchDataChange(ctx context.Context, table, operation string, record map[string]any) ([]string, error) {
	bindings, err := b.bindings.DataChangeBindingsByTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to load data-change bindings: %w", err)
	}

	var workflowIDs []string

	for _, binding := range bindings {
		if binding.Operation != "" && binding.Operation != operation {
			continue
		}

		workflow, err := b.workflows.WorkflowByID(ctx, binding.WorkflowID)
		if err != nil {
			b.logger.Warn("Skipping data-change binding without a workflow",
				"workflow_id", binding.WorkflowID,
				"table", table,
				"error", err)

			continue
		}

		if !workflow.Enabled {
			continue
		}

		matched, err := conditions.Evaluate(binding.Conditions, record)
		if err != nil {
			// A misconfigured matcher must not fire the workflow.
			b.logger.Warn("Skipping data-change binding with invalid conditions",
				"workflow_id", binding.WorkflowID,
				"table", table,
				"error", err)

			continue
		}

		if matched {
			workflowIDs = append(workflowIDs, binding.WorkflowID)
		}
	}

	return workflowIDs, nil
}
