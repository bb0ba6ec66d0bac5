package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewPersistence().WorkflowRepository()

	workflow := &models.Workflow{
		ID:      "wf-1",
		Name:    "deploy notifier",
		Trigger: models.Trigger{Type: models.TriggerManual},
		Enabled: true,
	}

	require.NoError(t, repo.SaveWorkflow(ctx, workflow))

	fetched, err := repo.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "deploy notifier", fetched.Name)

	// Mutating the returned copy must not touch the store.
	fetched.Name = "changed"

	again, err := repo.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "deploy notifier", again.Name)
}

func TestWorkflowRepository_GetMissing(t *testing.T) {
	repo := NewPersistence().WorkflowRepository()

	_, err := repo.WorkflowByID(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_RecordRun(t *testing.T) {
	ctx := context.Background()
	repo := NewPersistence().WorkflowRepository()

	require.NoError(t, repo.SaveWorkflow(ctx, &models.Workflow{ID: "wf-1", Name: "counter"}))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordRun(ctx, "wf-1", at))
	require.NoError(t, repo.RecordRun(ctx, "wf-1", at.Add(time.Minute)))

	workflow, err := repo.WorkflowByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), workflow.ExecutionCount)
	require.NotNil(t, workflow.LastExecutedAt)
	assert.Equal(t, at.Add(time.Minute), workflow.LastExecutedAt.UTC())
}

func TestBindingRepository_WebhookLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewPersistence().BindingRepository()

	binding, err := models.NewWebhookBinding("wf-1", map[string]any{"secret": "s3cret"}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.SaveWebhookBinding(ctx, binding))

	fetched, err := repo.WebhookBindingByID(ctx, binding.ID)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", fetched.WorkflowID)
	assert.Equal(t, "s3cret", fetched.Secret)

	require.NoError(t, repo.DeleteWebhookBindings(ctx, "wf-1"))

	_, err = repo.WebhookBindingByID(ctx, binding.ID)
	assert.True(t, persistence.IsBindingNotFound(err))
}

func TestBindingRepository_DueSchedules(t *testing.T) {
	ctx := context.Background()
	repo := NewPersistence().BindingRepository()
	now := time.Date(2025, 3, 1, 12, 0, 30, 0, time.UTC)

	due := &models.ScheduleBinding{
		ID: "s-1", WorkflowID: "wf-1", CronExpression: "* * * * *",
		NextRunAt: now.Add(-time.Second), Enabled: true,
	}
	notDue := &models.ScheduleBinding{
		ID: "s-2", WorkflowID: "wf-2", CronExpression: "* * * * *",
		NextRunAt: now.Add(time.Hour), Enabled: true,
	}
	disabled := &models.ScheduleBinding{
		ID: "s-3", WorkflowID: "wf-3", CronExpression: "* * * * *",
		NextRunAt: now.Add(-time.Hour), Enabled: false,
	}

	for _, b := range []*models.ScheduleBinding{due, notDue, disabled} {
		require.NoError(t, repo.SaveScheduleBinding(ctx, b))
	}

	found, err := repo.DueScheduleBindings(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "s-1", found[0].ID)
}

func TestExecutionLedger_NewestFirstAndLimit(t *testing.T) {
	ctx := context.Background()
	ledger := NewPersistence().ExecutionLedger()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		execution := models.NewExecution("wf-1", nil, base.Add(time.Duration(i)*time.Minute))
		execution.ID = string(rune('a' + i))
		execution.Finish(models.ExecutionCompleted, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, ledger.Append(ctx, execution))
	}

	require.NoError(t, ledger.Append(ctx, models.NewExecution("wf-2", nil, base)))

	executions, err := ledger.ExecutionsByWorkflow(ctx, "wf-1", 3)
	require.NoError(t, err)
	require.Len(t, executions, 3)
	assert.Equal(t, "e", executions[0].ID)
	assert.Equal(t, "d", executions[1].ID)
	assert.Equal(t, "c", executions[2].ID)

	all, err := ledger.ExecutionsByWorkflow(ctx, "wf-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestExecutionLedger_TerminalRecordsImmutable(t *testing.T) {
	ctx := context.Background()
	ledger := NewPersistence().ExecutionLedger()

	execution := models.NewExecution("wf-1", nil, time.Now().UTC())
	execution.Finish(models.ExecutionFailed, time.Now().UTC())
	require.NoError(t, ledger.Append(ctx, execution))

	err := ledger.Append(ctx, execution)
	assert.ErrorIs(t, err, persistence.ErrExecutionImmutable)
}

func TestExecutionLedger_Clear(t *testing.T) {
	ctx := context.Background()
	ledger := NewPersistence().ExecutionLedger()
	now := time.Now().UTC()

	require.NoError(t, ledger.Append(ctx, models.NewExecution("wf-1", nil, now)))
	require.NoError(t, ledger.Append(ctx, models.NewExecution("wf-2", nil, now)))

	require.NoError(t, ledger.ClearWorkflow(ctx, "wf-1"))

	gone, err := ledger.ExecutionsByWorkflow(ctx, "wf-1", 0)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := ledger.ExecutionsByWorkflow(ctx, "wf-2", 0)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	require.NoError(t, ledger.ClearAll(ctx))

	kept, err = ledger.ExecutionsByWorkflow(ctx, "wf-2", 0)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestRecordStore_CRUDAndChangeNotification(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence().RecordStore()

	type change struct {
		table, operation string
		record           map[string]any
	}

	var changes []change

	store.OnChange(func(table, operation string, record map[string]any) {
		changes = append(changes, change{table, operation, record})
	})

	inserted, err := store.InsertRecord(ctx, "tickets", map[string]any{"title": "broken build"})
	require.NoError(t, err)
	id, ok := inserted["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	updated, err := store.UpdateRecord(ctx, "tickets", id, map[string]any{"status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, "closed", updated["status"])

	fetched, err := store.RecordByID(ctx, "tickets", id)
	require.NoError(t, err)
	assert.Equal(t, "broken build", fetched["title"])

	deleted, err := store.DeleteRecord(ctx, "tickets", id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted["id"])

	_, err = store.RecordByID(ctx, "tickets", id)
	assert.True(t, persistence.IsRecordNotFound(err))

	require.Len(t, changes, 3)
	assert.Equal(t, "insert", changes[0].operation)
	assert.Equal(t, "update", changes[1].operation)
	assert.Equal(t, "delete", changes[2].operation)
	assert.Equal(t, "tickets", changes[0].table)
}
