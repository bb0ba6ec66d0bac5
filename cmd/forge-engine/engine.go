// Package main provides the AppForge automation engine server.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/binder"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/eventbus"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/registry"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/scheduler"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/web"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/workflow"
)

// Engine wires the registry service, execution engine, binder, scheduler and
// HTTP surface into one process.
type Engine struct {
	logger    *slog.Logger
	store     persistence.Persistence
	registry  *registry.Registry
	eventBus  eventbus.EventBus
	binder    *binder.Binder
	executor  *workflow.Executor
	service   *workflow.Service
	scheduler *scheduler.Scheduler
}

func NewEngine(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	pollInterval time.Duration,
) *Engine {
	clock := clockwork.NewRealClock()

	b := binder.NewBinder(store.WorkflowRepository(), store.BindingRepository(), logger, clock)

	executor := workflow.NewExecutor(
		store.WorkflowRepository(),
		store.ExecutionLedger(),
		reg,
		eventBus,
		clock,
		logger,
		workflow.ExecutorConfig{},
	)

	service := workflow.NewService(
		store.WorkflowRepository(),
		store.ExecutionLedger(),
		b,
		reg,
		eventBus,
		clock,
		logger,
	)

	return &Engine{
		logger:    logger,
		store:     store,
		registry:  reg,
		eventBus:  eventBus,
		binder:    b,
		executor:  executor,
		service:   service,
		scheduler: scheduler.NewScheduler(store.BindingRepository(), executor, clock, logger, pollInterval),
	}
}

// Start runs the scheduler and the HTTP server until ctx is cancelled.
func (e *Engine) Start(ctx context.Context, port int) error {
	e.wireDataChangeTriggers(ctx)

	if err := e.scheduler.Start(ctx); err != nil {
		return err
	}

	defer e.scheduler.Stop()

	app := web.NewApp(e.service, e.executor, e.binder, e.store)

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		e.logger.Info("Shutting down")

		return app.Shutdown()
	}
}

// wireDataChangeTriggers connects record store mutations to data-change
// bound workflows. Matching runs fire on their own goroutine so a slow
// workflow does not block the write that triggered it.
func (e *Engine) wireDataChangeTriggers(ctx context.Context) {
	e.store.RecordStore().OnChange(func(table, operation string, record map[string]any) {
		workflowIDs, err := e.binder.MatchDataChange(ctx, table, operation, record)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to match data-change bindings",
				"table", table, "operation", operation, "error", err)

			return
		}

		for _, workflowID := range workflowIDs {
			go func(workflowID string) {
				_, err := e.executor.Run(ctx, workflowID, models.TriggerDataChange, record)
				if err != nil {
					e.logger.ErrorContext(ctx, "Data-change run failed",
						"workflow_id", workflowID, "table", table, "error", err)
				}
			}(workflowID)
		}
	})
}
