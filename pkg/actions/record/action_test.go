package record_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/actions/record"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/memory"
)

func TestNewAction_Validation(t *testing.T) {
	t.Parallel()

	store := memory.NewPersistence().RecordStore()

	tests := []struct {
		name    string
		params  map[string]any
		wantErr error
	}{
		{
			name:    "missing table",
			params:  map[string]any{"operation": "insert"},
			wantErr: record.ErrTableRequired,
		},
		{
			name:    "update without record id",
			params:  map[string]any{"table": "orders", "operation": "update"},
			wantErr: record.ErrRecordIDRequired,
		},
		{
			name:    "unknown operation",
			params:  map[string]any{"table": "orders", "operation": "truncate"},
			wantErr: record.ErrUnknownOperation,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := record.NewAction(store, testCase.params)
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestAction_Execute_InsertUpdateGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence().RecordStore()
	logger := slog.Default()

	insert, err := record.NewAction(store, map[string]any{
		"table": "tickets",
		"data":  map[string]any{"title": "flaky test", "status": "open"},
	})
	require.NoError(t, err)

	inserted, err := insert.Execute(ctx, logger)
	require.NoError(t, err)

	insertedRecord, ok := inserted["record"].(map[string]any)
	require.True(t, ok)

	id, ok := insertedRecord["id"].(string)
	require.True(t, ok)

	update, err := record.NewAction(store, map[string]any{
		"table":     "tickets",
		"operation": "update",
		"record_id": id,
		"data":      map[string]any{"status": "closed"},
	})
	require.NoError(t, err)

	updated, err := update.Execute(ctx, logger)
	require.NoError(t, err)

	updatedRecord, ok := updated["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "closed", updatedRecord["status"])

	get, err := record.NewAction(store, map[string]any{
		"table":     "tickets",
		"operation": "get",
		"record_id": id,
	})
	require.NoError(t, err)

	fetched, err := get.Execute(ctx, logger)
	require.NoError(t, err)

	fetchedRecord, ok := fetched["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "flaky test", fetchedRecord["title"])

	del, err := record.NewAction(store, map[string]any{
		"table":     "tickets",
		"operation": "delete",
		"record_id": id,
	})
	require.NoError(t, err)

	_, err = del.Execute(ctx, logger)
	require.NoError(t, err)

	_, err = get.Execute(ctx, logger)
	require.Error(t, err)
}
