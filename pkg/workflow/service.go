// Package workflow holds the definition service and the execution engine.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/binder"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/events"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/registry"
)

// Service owns workflow definition lifecycle: validation, storage, trigger
// binding and lifecycle events. It never runs workflows.
type Service struct {
	workflows persistence.WorkflowRepository
	ledger    persistence.ExecutionLedger
	binder    *binder.Binder
	registry  *registry.Registry
	publisher eventbus.EventPublisher
	validator *validator.Validate
	clock     clockwork.Clock
	logger    *slog.Logger
}

func NewService(
	workflows persistence.WorkflowRepository,
	ledger persistence.ExecutionLedger,
	b *binder.Binder,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		workflows: workflows,
		ledger:    ledger,
		binder:    b,
		registry:  reg,
		publisher: publisher,
		validator: validator.New(),
		clock:     clock,
		logger:    logger.With("module", "workflow_service"),
	}
}

// Create validates, stores and binds a new workflow. The returned path is
// the webhook endpoint for webhook-triggered workflows, empty otherwise.
func (s *Service) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, string, error) {
	now := s.clock.Now().UTC()

	if workflow.ID == "" {
		workflow.ID = "wf-" + uuid.New().String()
	}

	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.ExecutionCount = 0
	workflow.LastExecutedAt = nil

	if err := s.validateDefinition(workflow); err != nil {
		return nil, "", err
	}

	if err := s.workflows.SaveWorkflow(ctx, workflow); err != nil {
		return nil, "", persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	webhookPath, err := s.binder.Bind(ctx, workflow)
	if err != nil {
		// Binding failed, do not leave a definition that can never fire.
		if deleteErr := s.workflows.DeleteWorkflow(ctx, workflow.ID); deleteErr != nil {
			s.logger.Error("Failed to roll back workflow after bind failure",
				"workflow_id", workflow.ID, "error", deleteErr)
		}

		return nil, "", err
	}

	s.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		Name:      workflow.Name,
	})

	s.logger.Info("Workflow created",
		"workflow_id", workflow.ID,
		"name", workflow.Name,
		"trigger_type", string(workflow.Trigger.Type))

	return workflow, webhookPath, nil
}

// Update applies a partial update and re-binds when the trigger changed.
func (s *Service) Update(ctx context.Context, id string, patch models.WorkflowPatch) (*models.Workflow, error) {
	workflow, err := s.workflows.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := *workflow

	patch.Apply(workflow)
	workflow.UpdatedAt = s.clock.Now().UTC()

	if err := s.validateDefinition(workflow); err != nil {
		return nil, err
	}

	if err := s.workflows.SaveWorkflow(ctx, workflow); err != nil {
		return nil, persistence.NewWorkflowError("Update", id, err)
	}

	if patch.Trigger != nil && !triggersEqual(previous.Trigger, workflow.Trigger) {
		if _, err := s.binder.Rebind(ctx, workflow); err != nil {
			// Put the stored definition and its bindings back so the two
			// never disagree about which trigger is live.
			if saveErr := s.workflows.SaveWorkflow(ctx, &previous); saveErr != nil {
				s.logger.Error("Failed to restore workflow after rebind failure",
					"workflow_id", id, "error", saveErr)
			}

			if _, rebindErr := s.binder.Rebind(ctx, &previous); rebindErr != nil {
				s.logger.Error("Failed to restore bindings after rebind failure",
					"workflow_id", id, "error", rebindErr)
			}

			return nil, err
		}
	}

	s.publish(ctx, id, events.WorkflowUpdated{
		BaseEvent: events.NewBaseEvent(events.WorkflowUpdatedEvent, id),
		Name:      workflow.Name,
	})

	s.logger.Info("Workflow updated", "workflow_id", id)

	return workflow, nil
}

// Delete removes a workflow together with its bindings and run history, so
// no orphaned trigger can fire a deleted definition.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.workflows.WorkflowByID(ctx, id); err != nil {
		return err
	}

	if err := s.binder.Unbind(ctx, id); err != nil {
		return err
	}

	if err := s.ledger.ClearWorkflow(ctx, id); err != nil {
		return fmt.Errorf("failed to clear execution history: %w", err)
	}

	if err := s.workflows.DeleteWorkflow(ctx, id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	s.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
	})

	s.logger.Info("Workflow deleted", "workflow_id", id)

	return nil
}

// Get returns one workflow definition.
func (s *Service) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return s.workflows.WorkflowByID(ctx, id)
}

// List returns all workflow definitions.
func (s *Service) List(ctx context.Context) ([]*models.Workflow, error) {
	return s.workflows.Workflows(ctx)
}

// Executions returns a workflow's run history, newest first.
func (s *Service) Executions(ctx context.Context, id string, limit int) ([]*models.Execution, error) {
	if _, err := s.workflows.WorkflowByID(ctx, id); err != nil {
		return nil, err
	}

	return s.ledger.ExecutionsByWorkflow(ctx, id, limit)
}

// ClearExecutions drops a workflow's run history.
func (s *Service) ClearExecutions(ctx context.Context, id string) error {
	if _, err := s.workflows.WorkflowByID(ctx, id); err != nil {
		return err
	}

	return s.ledger.ClearWorkflow(ctx, id)
}

// validateDefinition rejects malformed definitions at write time: struct
// constraints, unknown condition operators and unregistered or misconfigured
// actions.
func (s *Service) validateDefinition(workflow *models.Workflow) error {
	if err := s.validator.Struct(workflow); err != nil {
		return models.NewConfigurationError("workflow", err.Error())
	}

	for _, condition := range workflow.Conditions {
		if !models.KnownOperator(condition.Operator) {
			return models.NewConfigurationError("conditions",
				"unsupported operator '"+string(condition.Operator)+"'")
		}
	}

	for i, action := range workflow.Actions {
		if err := s.registry.ValidateAction(action); err != nil {
			return models.NewConfigurationError("actions",
				fmt.Sprintf("action %d (%s): %v", i, action.Type, err))
		}
	}

	return nil
}

func (s *Service) publish(ctx context.Context, key string, event events.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", string(event.GetType()), "error", err)
	}
}

func triggersEqual(a, b models.Trigger) bool {
	if a.Type != b.Type || len(a.Config) != len(b.Config) {
		return false
	}

	for key, value := range a.Config {
		if fmt.Sprintf("%v", b.Config[key]) != fmt.Sprintf("%v", value) {
			return false
		}
	}

	return true
}
