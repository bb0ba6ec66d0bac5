package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

// BindingRepository stores trigger bindings of all kinds.
type BindingRepository struct {
	db *sql.DB
}

func (r *BindingRepository) SaveWebhookBinding(ctx context.Context, binding *models.WebhookBinding) error {
	headers, err := json.Marshal(binding.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	var schema []byte

	if binding.PayloadSchema != nil {
		schema, err = json.Marshal(binding.PayloadSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal payload schema: %w", err)
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhook_bindings (id, workflow_id, path, method, headers, secret, payload_schema, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			path = EXCLUDED.path,
			method = EXCLUDED.method,
			headers = EXCLUDED.headers,
			secret = EXCLUDED.secret,
			payload_schema = EXCLUDED.payload_schema`,
		binding.ID, binding.WorkflowID, binding.Path, binding.Method,
		headers, binding.Secret, schema, binding.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save webhook binding: %w", err)
	}

	return nil
}

func (r *BindingRepository) WebhookBindingByID(ctx context.Context, id string) (*models.WebhookBinding, error) {
	var (
		binding models.WebhookBinding
		headers []byte
		schema  []byte
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, path, method, headers, secret, payload_schema, created_at
		FROM webhook_bindings WHERE id = $1`, id).Scan(
		&binding.ID, &binding.WorkflowID, &binding.Path, &binding.Method,
		&headers, &binding.Secret, &schema, &binding.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrBindingNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query webhook binding: %w", err)
	}

	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &binding.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}
	}

	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &binding.PayloadSchema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload schema: %w", err)
		}
	}

	return &binding, nil
}

func (r *BindingRepository) DeleteWebhookBindings(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM webhook_bindings WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook bindings: %w", err)
	}

	return nil
}

func (r *BindingRepository) SaveScheduleBinding(ctx context.Context, binding *models.ScheduleBinding) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_bindings (id, workflow_id, cron_expression, timezone, next_run_at, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			timezone = EXCLUDED.timezone,
			next_run_at = EXCLUDED.next_run_at,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at`,
		binding.ID, binding.WorkflowID, binding.CronExpression, binding.Timezone,
		binding.NextRunAt, binding.Enabled, binding.CreatedAt, binding.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule binding: %w", err)
	}

	return nil
}

func (r *BindingRepository) ScheduleBindingsByWorkflow(ctx context.Context, workflowID string) ([]*models.ScheduleBinding, error) {
	return r.queryScheduleBindings(ctx, `
		SELECT id, workflow_id, cron_expression, timezone, next_run_at, enabled, created_at, updated_at
		FROM schedule_bindings WHERE workflow_id = $1`, workflowID)
}

func (r *BindingRepository) DueScheduleBindings(ctx context.Context, now time.Time) ([]*models.ScheduleBinding, error) {
	return r.queryScheduleBindings(ctx, `
		SELECT id, workflow_id, cron_expression, timezone, next_run_at, enabled, created_at, updated_at
		FROM schedule_bindings
		WHERE enabled AND next_run_at <= $1
		ORDER BY next_run_at`, now)
}

func (r *BindingRepository) DeleteScheduleBindings(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM schedule_bindings WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule bindings: %w", err)
	}

	return nil
}

func (r *BindingRepository) queryScheduleBindings(ctx context.Context, query string, arg any) ([]*models.ScheduleBinding, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule bindings: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var bindings []*models.ScheduleBinding

	for rows.Next() {
		var binding models.ScheduleBinding

		err := rows.Scan(
			&binding.ID, &binding.WorkflowID, &binding.CronExpression, &binding.Timezone,
			&binding.NextRunAt, &binding.Enabled, &binding.CreatedAt, &binding.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule binding: %w", err)
		}

		bindings = append(bindings, &binding)
	}

	return bindings, rows.Err()
}

func (r *BindingRepository) SaveDataChangeBinding(ctx context.Context, binding *models.DataChangeBinding) error {
	conditions, err := json.Marshal(binding.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO data_change_bindings (id, workflow_id, table_name, operation, conditions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			operation = EXCLUDED.operation,
			conditions = EXCLUDED.conditions`,
		binding.ID, binding.WorkflowID, binding.Table, binding.Operation,
		conditions, binding.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save data-change binding: %w", err)
	}

	return nil
}

func (r *BindingRepository) DataChangeBindingsByTable(ctx context.Context, table string) ([]*models.DataChangeBinding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, table_name, operation, conditions, created_at
		FROM data_change_bindings WHERE table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query data-change bindings: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var bindings []*models.DataChangeBinding

	for rows.Next() {
		var (
			binding    models.DataChangeBinding
			conditions []byte
		)

		err := rows.Scan(
			&binding.ID, &binding.WorkflowID, &binding.Table, &binding.Operation,
			&conditions, &binding.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data-change binding: %w", err)
		}

		if err := json.Unmarshal(conditions, &binding.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}

		bindings = append(bindings, &binding)
	}

	return bindings, rows.Err()
}

func (r *BindingRepository) DeleteDataChangeBindings(ctx context.Context, workflowID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM data_change_bindings WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete data-change bindings: %w", err)
	}

	return nil
}
