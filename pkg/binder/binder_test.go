package binder

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/memory"
)

func newTestBinder(t *testing.T) (*Binder, persistence.Persistence, clockwork.Clock) {
	t.Helper()

	store := memory.NewPersistence()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	binder := NewBinder(store.WorkflowRepository(), store.BindingRepository(), slog.Default(), clock)

	return binder, store, clock
}

func TestBinder_BindWebhook(t *testing.T) {
	ctx := context.Background()
	binder, store, _ := newTestBinder(t)

	workflow := &models.Workflow{
		ID: "wf-1",
		Trigger: models.Trigger{
			Type:   models.TriggerWebhook,
			Config: map[string]any{"secret": "s3cret"},
		},
	}

	path, err := binder.Bind(ctx, workflow)
	require.NoError(t, err)
	assert.Equal(t, "/api/webhooks/"+models.WebhookBindingID("wf-1"), path)

	binding, err := store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID("wf-1"))
	require.NoError(t, err)
	assert.Equal(t, "wf-1", binding.WorkflowID)
	assert.Equal(t, "s3cret", binding.Secret)
}

func TestBinder_BindWebhookIdempotent(t *testing.T) {
	ctx := context.Background()
	binder, _, _ := newTestBinder(t)

	workflow := &models.Workflow{
		ID:      "wf-1",
		Trigger: models.Trigger{Type: models.TriggerWebhook, Config: map[string]any{}},
	}

	first, err := binder.Bind(ctx, workflow)
	require.NoError(t, err)

	second, err := binder.Bind(ctx, workflow)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBinder_BindSchedule(t *testing.T) {
	ctx := context.Background()
	binder, store, clock := newTestBinder(t)

	workflow := &models.Workflow{
		ID: "wf-1",
		Trigger: models.Trigger{
			Type:   models.TriggerSchedule,
			Config: map[string]any{"cron_expression": "0 9 * * *"},
		},
	}

	_, err := binder.Bind(ctx, workflow)
	require.NoError(t, err)

	bindings, err := store.BindingRepository().ScheduleBindingsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.True(t, bindings[0].Enabled)
	assert.Equal(t, time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), bindings[0].NextRunAt)
	assert.True(t, bindings[0].NextRunAt.After(clock.Now()))
}

func TestBinder_BindScheduleRejectsBadExpression(t *testing.T) {
	ctx := context.Background()
	binder, _, _ := newTestBinder(t)

	workflow := &models.Workflow{
		ID: "wf-1",
		Trigger: models.Trigger{
			Type:   models.TriggerSchedule,
			Config: map[string]any{"cron_expression": "not a cron"},
		},
	}

	_, err := binder.Bind(ctx, workflow)
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestBinder_UnbindRemovesAllKinds(t *testing.T) {
	ctx := context.Background()
	binder, store, _ := newTestBinder(t)

	webhookWf := &models.Workflow{
		ID:      "wf-1",
		Trigger: models.Trigger{Type: models.TriggerWebhook, Config: map[string]any{}},
	}
	_, err := binder.Bind(ctx, webhookWf)
	require.NoError(t, err)

	require.NoError(t, binder.Unbind(ctx, "wf-1"))

	_, err = store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID("wf-1"))
	assert.True(t, persistence.IsBindingNotFound(err))
}

func TestBinder_RebindReplacesBinding(t *testing.T) {
	ctx := context.Background()
	binder, store, _ := newTestBinder(t)

	workflow := &models.Workflow{
		ID:      "wf-1",
		Trigger: models.Trigger{Type: models.TriggerWebhook, Config: map[string]any{}},
	}
	_, err := binder.Bind(ctx, workflow)
	require.NoError(t, err)

	// Trigger changes to a schedule; the webhook endpoint must disappear.
	workflow.Trigger = models.Trigger{
		Type:   models.TriggerSchedule,
		Config: map[string]any{"cron_expression": "*/5 * * * *"},
	}

	_, err = binder.Rebind(ctx, workflow)
	require.NoError(t, err)

	_, err = store.BindingRepository().WebhookBindingByID(ctx, models.WebhookBindingID("wf-1"))
	assert.True(t, persistence.IsBindingNotFound(err))

	schedules, err := store.BindingRepository().ScheduleBindingsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
}

func TestBinder_MatchDataChange(t *testing.T) {
	ctx := context.Background()
	binder, store, _ := newTestBinder(t)

	bind := func(id string, config map[string]any) {
		t.Helper()

		workflow := &models.Workflow{
			ID:      id,
			Name:    "data change " + id,
			Enabled: true,
			Trigger: models.Trigger{Type: models.TriggerDataChange, Config: config},
		}
		require.NoError(t, store.WorkflowRepository().SaveWorkflow(ctx, workflow))

		_, err := binder.Bind(ctx, workflow)
		require.NoError(t, err)
	}

	bind("wf-any-op", map[string]any{"table": "orders"})
	bind("wf-insert-only", map[string]any{"table": "orders", "operation": "insert"})
	bind("wf-conditional", map[string]any{
		"table": "orders",
		"conditions": []any{
			map[string]any{"field": "status", "operator": "equals", "value": "paid"},
		},
	})
	bind("wf-other-table", map[string]any{"table": "users"})

	matched, err := binder.MatchDataChange(ctx, "orders", "update", map[string]any{"status": "paid"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wf-any-op", "wf-conditional"}, matched)

	matched, err = binder.MatchDataChange(ctx, "orders", "insert", map[string]any{"status": "pending"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wf-any-op", "wf-insert-only"}, matched)
}

func TestBinder_MatchDataChangeSkipsDisabledWorkflows(t *testing.T) {
	ctx := context.Background()
	binder, store, _ := newTestBinder(t)

	save := func(id string, enabled bool) {
		t.Helper()

		workflow := &models.Workflow{
			ID:      id,
			Name:    "data change " + id,
			Enabled: enabled,
			Trigger: models.Trigger{
				Type:   models.TriggerDataChange,
				Config: map[string]any{"table": "orders"},
			},
		}
		require.NoError(t, store.WorkflowRepository().SaveWorkflow(ctx, workflow))

		_, err := binder.Bind(ctx, workflow)
		require.NoError(t, err)
	}

	save("wf-enabled", true)
	save("wf-disabled", false)

	matched, err := binder.MatchDataChange(ctx, "orders", "insert", map[string]any{"status": "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wf-enabled"}, matched)
}

func TestBinder_MatchDataChangeSkipsInvalidConditions(t *testing.T) {
	ctx := context.Background()
	binder, store, _ := newTestBinder(t)

	require.NoError(t, store.WorkflowRepository().SaveWorkflow(ctx, &models.Workflow{
		ID:      "wf-bad",
		Name:    "bad matcher",
		Enabled: true,
		Trigger: models.Trigger{
			Type:   models.TriggerDataChange,
			Config: map[string]any{"table": "orders"},
		},
	}))

	binding := &models.DataChangeBinding{
		ID:         "dc-1",
		WorkflowID: "wf-bad",
		Table:      "orders",
		Conditions: []models.Condition{{Field: "x", Operator: "regex", Value: ".*"}},
	}
	require.NoError(t, store.BindingRepository().SaveDataChangeBinding(ctx, binding))

	matched, err := binder.MatchDataChange(ctx, "orders", "insert", map[string]any{"x": "y"})
	require.NoError(t, err)
	assert.Empty(t, matched)
}
