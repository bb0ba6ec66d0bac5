package workflow_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/binder"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/memory"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/protocol"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/registry"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/workflow"
)

type serviceHarness struct {
	store   persistence.Persistence
	service *workflow.Service
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	store := memory.NewPersistence()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.Default()

	reg := registry.NewRegistry(logger)
	reg.RegisterAction(stubFactory{
		id: "noop",
		create: func(map[string]any) (protocol.Action, error) {
			return stubAction{execute: func(context.Context) (map[string]any, error) {
				return nil, nil
			}}, nil
		},
	})

	b := binder.NewBinder(store.WorkflowRepository(), store.BindingRepository(), logger, clock)

	service := workflow.NewService(
		store.WorkflowRepository(),
		store.ExecutionLedger(),
		b,
		reg,
		nil,
		clock,
		logger,
	)

	return &serviceHarness{store: store, service: service}
}

func validDefinition() *models.Workflow {
	return &models.Workflow{
		Name:    "notify on signup",
		Trigger: models.Trigger{Type: models.TriggerWebhook, Config: map[string]any{}},
		Actions: []models.Action{{Type: "noop"}},
		Enabled: true,
	}
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	created, webhookPath, err := h.service.Create(ctx, validDefinition())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, "/api/webhooks/"+models.WebhookBindingID(created.ID), webhookPath)

	stored, err := h.store.WorkflowRepository().WorkflowByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "notify on signup", stored.Name)

	_, err = h.store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID(created.ID))
	require.NoError(t, err)
}

func TestService_Create_RejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	tests := []struct {
		name   string
		mutate func(w *models.Workflow)
	}{
		{
			name:   "name too short",
			mutate: func(w *models.Workflow) { w.Name = "ab" },
		},
		{
			name: "unknown condition operator",
			mutate: func(w *models.Workflow) {
				w.Conditions = []models.Condition{{Field: "x", Operator: "matches", Value: 1}}
			},
		},
		{
			name: "unregistered action type",
			mutate: func(w *models.Workflow) {
				w.Actions = []models.Action{{Type: "no_such_action"}}
			},
		},
		{
			name: "invalid cron expression",
			mutate: func(w *models.Workflow) {
				w.Trigger = models.Trigger{
					Type:   models.TriggerSchedule,
					Config: map[string]any{"cron_expression": "whenever"},
				}
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			definition := validDefinition()
			testCase.mutate(definition)

			_, _, err := h.service.Create(ctx, definition)
			require.Error(t, err)
			assert.True(t, models.IsConfigurationError(err))
		})
	}
}

func TestService_Create_RollsBackOnBindFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	definition := validDefinition()
	definition.Trigger = models.Trigger{
		Type:   models.TriggerDataChange,
		Config: map[string]any{}, // missing table
	}

	_, _, err := h.service.Create(ctx, definition)
	require.Error(t, err)

	workflows, err := h.store.WorkflowRepository().Workflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestService_Update_PatchAndRebind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	created, _, err := h.service.Create(ctx, validDefinition())
	require.NoError(t, err)

	newName := "notify on signup v2"
	enabled := false
	newTrigger := models.Trigger{
		Type:   models.TriggerSchedule,
		Config: map[string]any{"cron_expression": "0 9 * * 1"},
	}

	updated, err := h.service.Update(ctx, created.ID, models.WorkflowPatch{
		Name:    &newName,
		Enabled: &enabled,
		Trigger: &newTrigger,
	})
	require.NoError(t, err)

	assert.Equal(t, newName, updated.Name)
	assert.False(t, updated.Enabled)
	assert.Equal(t, models.TriggerSchedule, updated.Trigger.Type)

	// The webhook endpoint must be gone after the trigger change.
	_, err = h.store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID(created.ID))
	assert.True(t, persistence.IsBindingNotFound(err))

	schedules, err := h.store.BindingRepository().ScheduleBindingsByWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
}

func TestService_Update_RestoresStateOnRebindFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	created, _, err := h.service.Create(ctx, validDefinition())
	require.NoError(t, err)

	badTrigger := models.Trigger{
		Type:   models.TriggerSchedule,
		Config: map[string]any{"cron_expression": "whenever"},
	}

	_, err = h.service.Update(ctx, created.ID, models.WorkflowPatch{Trigger: &badTrigger})
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))

	// The stored definition keeps its previous trigger and the webhook
	// endpoint is still live.
	stored, err := h.store.WorkflowRepository().WorkflowByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerWebhook, stored.Trigger.Type)

	_, err = h.store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID(created.ID))
	require.NoError(t, err)
}

func TestService_Update_MissingWorkflow(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(t)

	name := "renamed"

	_, err := h.service.Update(context.Background(), "nope", models.WorkflowPatch{Name: &name})
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestService_Delete_Cascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	created, _, err := h.service.Create(ctx, validDefinition())
	require.NoError(t, err)

	require.NoError(t, h.store.ExecutionLedger().Append(ctx,
		models.NewExecution(created.ID, nil, time.Now().UTC())))

	require.NoError(t, h.service.Delete(ctx, created.ID))

	_, err = h.store.WorkflowRepository().WorkflowByID(ctx, created.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = h.store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID(created.ID))
	assert.True(t, persistence.IsBindingNotFound(err))

	history, err := h.store.ExecutionLedger().ExecutionsByWorkflow(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestService_Executions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newServiceHarness(t)

	created, _, err := h.service.Create(ctx, validDefinition())
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		execution := models.NewExecution(created.ID, nil, base.Add(time.Duration(i)*time.Minute))
		execution.Finish(models.ExecutionCompleted, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, h.store.ExecutionLedger().Append(ctx, execution))
	}

	recent, err := h.service.Executions(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	_, err = h.service.Executions(ctx, "nope", 0)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	require.NoError(t, h.service.ClearExecutions(ctx, created.ID))

	cleared, err := h.service.Executions(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, cleared)
}
