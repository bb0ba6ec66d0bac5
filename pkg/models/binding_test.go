package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebhookBinding(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	binding, err := NewWebhookBinding("wf-1", map[string]any{
		"method": "PUT",
		"secret": "s3cret",
		"headers": map[string]any{
			"X-Source": "crm",
			"ignored":  42,
		},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, WebhookBindingID("wf-1"), binding.ID)
	assert.Equal(t, "/api/webhooks/"+binding.ID, binding.Path)
	assert.Equal(t, "PUT", binding.Method)
	assert.Equal(t, "s3cret", binding.Secret)
	assert.Equal(t, map[string]string{"X-Source": "crm"}, binding.Headers)
	assert.Equal(t, now, binding.CreatedAt)
}

func TestNewWebhookBindingDefaultsToPost(t *testing.T) {
	binding, err := NewWebhookBinding("wf-1", map[string]any{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "POST", binding.Method)
}

func TestWebhookBindingIDIsDeterministic(t *testing.T) {
	assert.Equal(t, WebhookBindingID("wf-1"), WebhookBindingID("wf-1"))
	assert.NotEqual(t, WebhookBindingID("wf-1"), WebhookBindingID("wf-2"))
}

func TestNewScheduleBinding(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		config   map[string]any
		wantErr  bool
		wantNext time.Time
	}{
		{
			name:     "daily at nine",
			config:   map[string]any{"cron_expression": "0 9 * * *"},
			wantNext: time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "every five minutes",
			config:   map[string]any{"cron_expression": "*/5 * * * *"},
			wantNext: time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC),
		},
		{
			name:     "short key accepted",
			config:   map[string]any{"expression": "*/5 * * * *"},
			wantNext: time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC),
		},
		{
			name:    "invalid expression",
			config:  map[string]any{"cron_expression": "not a cron"},
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			config:  map[string]any{"cron_expression": "0 9 * * *", "timezone": "Mars/Olympus"},
			wantErr: true,
		},
		{
			name:    "missing expression",
			config:  map[string]any{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding, err := NewScheduleBinding("wf-1", tt.config, now)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.True(t, binding.Enabled)
			assert.Equal(t, tt.wantNext, binding.NextRunAt.UTC())
		})
	}
}

func TestScheduleBindingHonorsTimezone(t *testing.T) {
	// 12:00 UTC is 08:00 in New York during DST, so the 09:00 slot for that
	// day has not passed yet in the binding's location.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	binding, err := NewScheduleBinding("wf-1", map[string]any{
		"cron_expression": "0 9 * * *",
		"timezone":        "America/New_York",
	}, now)
	require.NoError(t, err)

	loc, err := binding.Location()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, loc), binding.NextRunAt)
}

func TestScheduleBindingIsDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	binding := &ScheduleBinding{
		ID: "b1", WorkflowID: "wf-1", CronExpression: "0 9 * * *",
		NextRunAt: now, Enabled: true,
	}

	assert.True(t, binding.IsDue(now))
	assert.True(t, binding.IsDue(now.Add(time.Minute)))
	assert.False(t, binding.IsDue(now.Add(-time.Second)))

	binding.Enabled = false
	assert.False(t, binding.IsDue(now))
}

func TestNewDataChangeBinding(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	binding, err := NewDataChangeBinding("wf-1", map[string]any{
		"table":     "orders",
		"operation": "insert",
		"conditions": []any{
			map[string]any{"field": "total", "operator": "greater_than", "value": 100},
		},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "orders", binding.Table)
	assert.Equal(t, "insert", binding.Operation)
	require.Len(t, binding.Conditions, 1)
	assert.Equal(t, "total", binding.Conditions[0].Field)
	assert.Equal(t, OperatorGreaterThan, binding.Conditions[0].Operator)
}

func TestNewDataChangeBindingRequiresTable(t *testing.T) {
	_, err := NewDataChangeBinding("wf-1", map[string]any{}, time.Now())
	require.Error(t, err)
}

func TestExecutionStatusTransitions(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	execution := NewExecution("wf-1", map[string]any{"k": "v"}, now)
	assert.Equal(t, ExecutionPending, execution.Status)
	assert.False(t, execution.Status.Terminal())

	execution.Begin()
	assert.Equal(t, ExecutionRunning, execution.Status)

	done := now.Add(time.Second)
	execution.Finish(ExecutionCompleted, done)
	assert.True(t, execution.Status.Terminal())
	require.NotNil(t, execution.CompletedAt)
	assert.Equal(t, done, *execution.CompletedAt)
}

func TestExecutionStatusCountable(t *testing.T) {
	assert.True(t, ExecutionCompleted.Countable())
	assert.True(t, ExecutionFailed.Countable())
	assert.False(t, ExecutionSkipped.Countable())
	assert.False(t, ExecutionRunning.Countable())
	assert.False(t, ExecutionPending.Countable())
}
