package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

// ExecutionLedger stores run records. Terminal rows are never updated.
type ExecutionLedger struct {
	db *sql.DB
}

func (l *ExecutionLedger) Append(ctx context.Context, execution *models.Execution) error {
	var status models.ExecutionStatus

	err := l.db.QueryRowContext(ctx,
		"SELECT status FROM executions WHERE id = $1", execution.ID).Scan(&status)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First write for this run.
	case err != nil:
		return fmt.Errorf("failed to check execution record: %w", err)
	case status.Terminal():
		return persistence.ErrExecutionImmutable
	}

	payload, err := json.Marshal(execution.TriggerPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}

	steps, err := json.Marshal(execution.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, trigger_payload, status, steps, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			steps = EXCLUDED.steps,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at`,
		execution.ID, execution.WorkflowID, payload, execution.Status,
		steps, execution.Error, execution.StartedAt, execution.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution: %w", err)
	}

	return nil
}

func (l *ExecutionLedger) ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	query := `
		SELECT id, workflow_id, trigger_payload, status, steps, error, started_at, completed_at
		FROM executions WHERE workflow_id = $1
		ORDER BY started_at DESC`

	args := []any{workflowID}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var executions []*models.Execution

	for rows.Next() {
		var (
			execution   models.Execution
			payload     []byte
			steps       []byte
			completedAt sql.NullTime
		)

		err := rows.Scan(
			&execution.ID, &execution.WorkflowID, &payload, &execution.Status,
			&steps, &execution.Error, &execution.StartedAt, &completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &execution.TriggerPayload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal trigger payload: %w", err)
			}
		}

		if err := json.Unmarshal(steps, &execution.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}

		if completedAt.Valid {
			at := completedAt.Time
			execution.CompletedAt = &at
		}

		executions = append(executions, &execution)
	}

	return executions, rows.Err()
}

func (l *ExecutionLedger) ClearWorkflow(ctx context.Context, workflowID string) error {
	_, err := l.db.ExecContext(ctx,
		"DELETE FROM executions WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to clear executions: %w", err)
	}

	return nil
}

func (l *ExecutionLedger) ClearAll(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "DELETE FROM executions")
	if err != nil {
		return fmt.Errorf("failed to clear executions: %w", err)
	}

	return nil
}
