package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/conditions"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/events"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/registry"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/template"
)

const (
	defaultRunTimeout    = 5 * time.Minute
	defaultActionTimeout = 30 * time.Second
)

// ExecutorConfig bounds run and per-action durations.
type ExecutorConfig struct {
	RunTimeout    time.Duration
	ActionTimeout time.Duration
}

// Executor drives the run state machine:
// pending -> running -> {completed | skipped | failed}.
//
// Runs of the same workflow are serialized on a per-workflow lock so the
// execution counter and ledger order stay consistent under concurrent
// triggers. Runs of distinct workflows proceed in parallel.
type Executor struct {
	workflows persistence.WorkflowRepository
	ledger    persistence.ExecutionLedger
	registry  *registry.Registry
	publisher eventbus.EventPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	tracer    trace.Tracer
	config    ExecutorConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewExecutor(
	workflows persistence.WorkflowRepository,
	ledger persistence.ExecutionLedger,
	reg *registry.Registry,
	publisher eventbus.EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
	config ExecutorConfig,
) *Executor {
	if config.RunTimeout <= 0 {
		config.RunTimeout = defaultRunTimeout
	}

	if config.ActionTimeout <= 0 {
		config.ActionTimeout = defaultActionTimeout
	}

	return &Executor{
		workflows: workflows,
		ledger:    ledger,
		registry:  reg,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("module", "executor"),
		tracer:    otel.Tracer("appforge/workflow"),
		config:    config,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Run executes one workflow against a trigger payload and returns the
// terminal execution record.
//
// A disabled workflow returns models.ErrWorkflowDisabled and leaves no
// record. A run whose conditions do not pass is recorded as skipped without
// touching the workflow's execution counter.
func (e *Executor) Run(
	ctx context.Context,
	workflowID string,
	triggerType models.TriggerType,
	payload map[string]any,
) (*models.Execution, error) {
	workflow, err := e.workflows.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.Enabled {
		e.logger.Debug("Ignoring trigger for disabled workflow", "workflow_id", workflowID)

		return nil, models.ErrWorkflowDisabled
	}

	lock := e.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, e.config.RunTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.id", workflowID),
		attribute.String("trigger.type", string(triggerType)),
	))
	defer span.End()

	execution := models.NewExecution(workflowID, payload, e.clock.Now().UTC())
	span.SetAttributes(attribute.String("execution.id", execution.ID))

	execution.Begin()

	if err := e.ledger.Append(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to record execution start: %w", err)
	}

	e.publish(ctx, workflowID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflowID),
		ExecutionID: execution.ID,
		TriggerType: triggerType,
	})

	e.logger.Info("Execution started",
		"workflow_id", workflowID,
		"execution_id", execution.ID,
		"trigger_type", string(triggerType))

	status := e.runPipeline(ctx, workflow, execution, span)

	return execution, e.finish(ctx, workflow, execution, status)
}

// runPipeline evaluates the condition gate and dispatches the action
// pipeline, mutating the execution record as it goes. It returns the
// terminal status.
func (e *Executor) runPipeline(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.Execution,
	span trace.Span,
) models.ExecutionStatus {
	passed, err := conditions.Evaluate(workflow.Conditions, execution.TriggerPayload)
	if err != nil {
		// A broken gate must be visible, not silently permissive.
		execution.Error = err.Error()
		span.SetStatus(codes.Error, execution.Error)

		return models.ExecutionFailed
	}

	if !passed {
		e.logger.Info("Conditions not met, skipping run",
			"workflow_id", workflow.ID,
			"execution_id", execution.ID)

		return models.ExecutionSkipped
	}

	templateCtx := buildTemplateContext(execution.TriggerPayload)

	for i, action := range workflow.Actions {
		step, output, err := e.runAction(ctx, workflow, execution, i, action, templateCtx)
		execution.AppendStep(step)

		if err == nil {
			templateCtx["steps"].(map[string]any)[strconv.Itoa(i)] = output

			continue
		}

		if action.StopOnError || models.IsConfigurationError(err) {
			execution.Error = err.Error()
			span.SetStatus(codes.Error, execution.Error)

			return models.ExecutionFailed
		}

		e.logger.Warn("Action failed, continuing pipeline",
			"workflow_id", workflow.ID,
			"execution_id", execution.ID,
			"action_type", string(action.Type),
			"error", err)
	}

	return models.ExecutionCompleted
}

// runAction dispatches one action under its own deadline and records the
// step result.
func (e *Executor) runAction(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.Execution,
	index int,
	action models.Action,
	templateCtx map[string]any,
) (models.StepResult, map[string]any, error) {
	startedAt := e.clock.Now().UTC()

	step := models.StepResult{
		ActionType: action.Type,
		StartedAt:  startedAt,
	}

	actionCtx, cancel := context.WithTimeout(ctx, e.config.ActionTimeout)
	defer cancel()

	actionCtx, span := e.tracer.Start(actionCtx, "workflow.action", trace.WithAttributes(
		attribute.String("action.type", string(action.Type)),
		attribute.Int("action.index", index),
	))
	defer span.End()

	params := template.InterpolateParams(action.Params, templateCtx)
	if params == nil {
		params = map[string]any{}
	}

	// Handlers that attribute their side effects need the owning workflow.
	if _, ok := params["workflow_id"]; !ok {
		params["workflow_id"] = workflow.ID
	}

	output, err := e.dispatch(actionCtx, action, params, execution)

	step.CompletedAt = e.clock.Now().UTC()

	if err != nil {
		actionErr := classifyFailure(action.Type, actionCtx, err)
		step.Error = actionErr.Error()
		span.SetStatus(codes.Error, actionErr.Error())

		return step, nil, actionErr
	}

	step.Success = true
	step.Output = output

	return step, output, nil
}

func (e *Executor) dispatch(
	ctx context.Context,
	action models.Action,
	params map[string]any,
	execution *models.Execution,
) (map[string]any, error) {
	handler, err := e.registry.CreateAction(action.Type, params)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("execution_id", execution.ID)

	return handler.Execute(ctx, logger)
}

// finish moves the run to its terminal state, appends the final ledger
// record and, for countable statuses, bumps the workflow counter.
func (e *Executor) finish(
	ctx context.Context,
	workflow *models.Workflow,
	execution *models.Execution,
	status models.ExecutionStatus,
) error {
	completedAt := e.clock.Now().UTC()
	execution.Finish(status, completedAt)

	if err := e.ledger.Append(ctx, execution); err != nil {
		return fmt.Errorf("failed to record execution result: %w", err)
	}

	if status.Countable() {
		if err := e.workflows.RecordRun(ctx, workflow.ID, completedAt); err != nil {
			return fmt.Errorf("failed to record workflow run: %w", err)
		}
	}

	e.publish(ctx, workflow.ID, events.ExecutionFinished{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, workflow.ID),
		ExecutionID: execution.ID,
		Status:      status,
		Error:       execution.Error,
		Duration:    completedAt.Sub(execution.StartedAt),
	})

	e.logger.Info("Execution finished",
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
		"status", string(status),
		"steps", len(execution.Steps))

	return nil
}

func (e *Executor) publish(ctx context.Context, key string, event events.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", string(event.GetType()), "error", err)
	}
}

func (e *Executor) lockFor(workflowID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[workflowID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[workflowID] = lock
	}

	return lock
}

// buildTemplateContext exposes the trigger payload at the top level and
// reserves "steps" for prior action outputs, addressed by pipeline index.
func buildTemplateContext(payload map[string]any) map[string]any {
	ctx := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		ctx[k] = v
	}

	ctx["steps"] = map[string]any{}

	return ctx
}

func classifyFailure(actionType models.ActionType, ctx context.Context, err error) error {
	if models.IsConfigurationError(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewTimeoutError(actionType, err)
	}

	return models.NewActionError(actionType, err)
}
