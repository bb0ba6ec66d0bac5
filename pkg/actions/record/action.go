// Package record implements the database action: insert, update, delete or
// fetch of application records. Mutations flow through the record store, so
// data-change triggers observe them.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

var (
	// ErrTableRequired is returned when the action has no table.
	ErrTableRequired = errors.New("database action requires a 'table'")

	// ErrRecordIDRequired is returned when a record-scoped operation has no id.
	ErrRecordIDRequired = errors.New("database action requires a 'record_id'")

	// ErrUnknownOperation is returned for an unsupported operation.
	ErrUnknownOperation = errors.New("unknown database operation")
)

// Action performs one record store operation.
type Action struct {
	Operation string
	Table     string
	RecordID  string
	Data      map[string]any

	store persistence.RecordStore
}

// NewAction builds the action from its interpolated params.
func NewAction(store persistence.RecordStore, params map[string]any) (*Action, error) {
	table, _ := params["table"].(string)
	if table == "" {
		return nil, ErrTableRequired
	}

	operation, _ := params["operation"].(string)
	if operation == "" {
		operation = "insert"
	}

	recordID, _ := params["record_id"].(string)
	data, _ := params["data"].(map[string]any)

	switch operation {
	case "insert":
	case "update", "delete", "get":
		if recordID == "" {
			return nil, ErrRecordIDRequired
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}

	return &Action{
		Operation: operation,
		Table:     table,
		RecordID:  recordID,
		Data:      data,
		store:     store,
	}, nil
}

// Execute runs the operation and returns the affected record.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "database_action", "table", a.Table, "operation", a.Operation)

	var (
		record map[string]any
		err    error
	)

	switch a.Operation {
	case "insert":
		record, err = a.store.InsertRecord(ctx, a.Table, a.Data)
	case "update":
		record, err = a.store.UpdateRecord(ctx, a.Table, a.RecordID, a.Data)
	case "delete":
		record, err = a.store.DeleteRecord(ctx, a.Table, a.RecordID)
	case "get":
		record, err = a.store.RecordByID(ctx, a.Table, a.RecordID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, a.Operation)
	}

	if err != nil {
		return nil, fmt.Errorf("database %s on %q failed: %w", a.Operation, a.Table, err)
	}

	logger.InfoContext(ctx, "Database operation completed")

	return map[string]any{
		"operation": a.Operation,
		"table":     a.Table,
		"record":    record,
	}, nil
}
