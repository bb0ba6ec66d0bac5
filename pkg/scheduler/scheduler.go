// Package scheduler fires schedule-triggered workflows when their
// precomputed next run time arrives.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/workflow"
)

const defaultPollInterval = time.Second

// Scheduler polls the binding store for due schedules and hands each one to
// the executor. After a fire the binding's next run time is recomputed from
// its cron expression, so the schedule never drifts.
type Scheduler struct {
	bindings persistence.BindingRepository
	executor *workflow.Executor
	clock    clockwork.Clock
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	started bool
	done    chan struct{}
	stopped chan struct{}
	runs    sync.WaitGroup
}

func NewScheduler(
	bindings persistence.BindingRepository,
	executor *workflow.Executor,
	clock clockwork.Clock,
	logger *slog.Logger,
	interval time.Duration,
) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Scheduler{
		bindings: bindings,
		executor: executor,
		clock:    clock,
		logger:   logger.With("module", "scheduler"),
		interval: interval,
	}
}

// Start launches the polling loop. It returns immediately; Stop shuts the
// loop down.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}

	s.started = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	go s.loop(ctx)

	s.logger.Info("Scheduler started", "poll_interval", s.interval)

	return nil
}

// Stop terminates the polling loop and waits for it and any in-flight
// scheduled runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if s.started {
		s.started = false
		close(s.done)
		stopped := s.stopped
		s.mu.Unlock()

		<-stopped
	} else {
		s.mu.Unlock()
	}

	s.runs.Wait()

	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stopped)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.Chan():
			s.Tick(ctx)
		}
	}
}

// Tick fires every due schedule once. Exposed so deployments without a
// background loop can drive the scheduler themselves.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now().UTC()

	due, err := s.bindings.DueScheduleBindings(ctx, now)
	if err != nil {
		s.logger.Error("Failed to query due schedules", "error", err)

		return
	}

	for _, binding := range due {
		s.fire(ctx, binding, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, binding *models.ScheduleBinding, now time.Time) {
	payload := map[string]any{
		"scheduled_at": binding.NextRunAt.Format(time.RFC3339),
		"fired_at":     now.Format(time.RFC3339),
	}

	// Advance the schedule before executing: a slow run must not cause the
	// same fire time to be picked up again by the next tick.
	if err := binding.CalculateNextRunAt(now); err != nil {
		s.logger.Error("Failed to recompute schedule, disabling binding",
			"workflow_id", binding.WorkflowID,
			"cron", binding.CronExpression,
			"error", err)

		binding.Enabled = false
	}

	if err := s.bindings.SaveScheduleBinding(ctx, binding); err != nil {
		s.logger.Error("Failed to save schedule binding",
			"workflow_id", binding.WorkflowID, "error", err)

		return
	}

	// The run gets its own goroutine: one workflow's action I/O must not
	// delay dispatch of other due schedules or the next tick.
	s.runs.Add(1)

	go func() {
		defer s.runs.Done()

		if _, err := s.executor.Run(ctx, binding.WorkflowID, models.TriggerSchedule, payload); err != nil {
			if errors.Is(err, models.ErrWorkflowDisabled) {
				s.logger.Debug("Schedule fired for disabled workflow",
					"workflow_id", binding.WorkflowID)

				return
			}

			s.logger.Error("Scheduled run failed to start",
				"workflow_id", binding.WorkflowID, "error", err)
		}
	}()
}
