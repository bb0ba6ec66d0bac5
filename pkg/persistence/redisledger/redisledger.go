// Package redisledger provides a Redis-backed execution ledger. Workflow and
// binding storage stay on another backend; only run history lives here.
package redisledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
)

const (
	executionKeyPrefix = "appforge:execution:"
	workflowKeyPrefix  = "appforge:workflow:"
	pingTimeout        = 5 * time.Second
)

// Ledger stores each execution as a JSON string keyed by id, with a
// per-workflow sorted set scored by start time for newest-first queries.
type Ledger struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewLedger connects to Redis using a redis:// URL and returns the ledger.
func NewLedger(ctx context.Context, logger *slog.Logger, redisURL string) (*Ledger, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis execution ledger", "addr", options.Addr)

	return &Ledger{client: client, logger: logger}, nil
}

func executionKey(id string) string {
	return executionKeyPrefix + id
}

func workflowKey(workflowID string) string {
	return workflowKeyPrefix + workflowID + ":executions"
}

func (l *Ledger) Append(ctx context.Context, execution *models.Execution) error {
	existing, err := l.client.Get(ctx, executionKey(execution.ID)).Result()

	switch {
	case errors.Is(err, redis.Nil):
		// First write for this run.
	case err != nil:
		return fmt.Errorf("failed to check execution record: %w", err)
	default:
		var stored models.Execution
		if err := json.Unmarshal([]byte(existing), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal execution record: %w", err)
		}

		if stored.Status.Terminal() {
			return persistence.ErrExecutionImmutable
		}
	}

	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, executionKey(execution.ID), data, 0)
	pipe.ZAdd(ctx, workflowKey(execution.WorkflowID), redis.Z{
		Score:  float64(execution.StartedAt.UnixNano()),
		Member: execution.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append execution: %w", err)
	}

	return nil
}

func (l *Ledger) ExecutionsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := l.client.ZRevRange(ctx, workflowKey(workflowID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query execution index: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = executionKey(id)
	}

	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution records: %w", err)
	}

	executions := make([]*models.Execution, 0, len(values))

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a record; a concurrent clear won the race.
			l.logger.WarnContext(ctx, "Execution record missing for index entry", "execution_id", ids[i])

			continue
		}

		var execution models.Execution
		if err := json.Unmarshal([]byte(raw), &execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution record: %w", err)
		}

		executions = append(executions, &execution)
	}

	return executions, nil
}

func (l *Ledger) ClearWorkflow(ctx context.Context, workflowID string) error {
	ids, err := l.client.ZRange(ctx, workflowKey(workflowID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to query execution index: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, executionKey(id))
	}

	keys = append(keys, workflowKey(workflowID))

	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear executions: %w", err)
	}

	return nil
}

func (l *Ledger) ClearAll(ctx context.Context) error {
	for _, pattern := range []string{executionKeyPrefix + "*", workflowKeyPrefix + "*"} {
		iter := l.client.Scan(ctx, 0, pattern, 0).Iterator()

		for iter.Next(ctx) {
			if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to clear executions: %w", err)
			}
		}

		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan execution keys: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the Redis connection.
func (l *Ledger) HealthCheck(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

// Close closes the Redis client.
func (l *Ledger) Close(_ context.Context) error {
	if err := l.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
