package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/memory"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/postgres"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/redisledger"
)

// NewPersistence selects the storage backend from the database URL scheme.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case databaseURL == "" || strings.HasPrefix(databaseURL, "memory://"):
		return memory.NewPersistence(), nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.NewPersistence(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database URL %q (expected memory:// or postgres://)", databaseURL)
	}
}

// WithRedisLedger layers a Redis execution ledger over another backend.
// Workflows, bindings and records stay on the base backend; run history
// moves to Redis.
func WithRedisLedger(ctx context.Context, logger *slog.Logger, base persistence.Persistence, redisURL string) (persistence.Persistence, error) {
	ledger, err := redisledger.NewLedger(ctx, logger, redisURL)
	if err != nil {
		return nil, err
	}

	return &ledgerOverlay{Persistence: base, ledger: ledger}, nil
}

type ledgerOverlay struct {
	persistence.Persistence

	ledger *redisledger.Ledger
}

func (o *ledgerOverlay) ExecutionLedger() persistence.ExecutionLedger {
	return o.ledger
}

func (o *ledgerOverlay) HealthCheck(ctx context.Context) error {
	if err := o.Persistence.HealthCheck(ctx); err != nil {
		return err
	}

	return o.ledger.HealthCheck(ctx)
}

func (o *ledgerOverlay) Close(ctx context.Context) error {
	if err := o.ledger.Close(ctx); err != nil {
		return err
	}

	return o.Persistence.Close(ctx)
}
