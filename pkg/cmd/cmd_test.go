package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/events"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence/memory"
)

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, _ string, _ events.Event) error { return nil }

func TestNewPersistenceDefaultsToMemory(t *testing.T) {
	store, err := NewPersistence(t.Context(), slog.Default(), "memory://")
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck(t.Context()))
}

func TestNewPersistenceRejectsUnknownScheme(t *testing.T) {
	_, err := NewPersistence(t.Context(), slog.Default(), "mongodb://localhost")
	require.Error(t, err)
}

func TestNewRegistryRegistersAllActionTypes(t *testing.T) {
	store := memory.NewPersistence()

	reg := NewRegistry(slog.Default(), noopPublisher{}, store.RecordStore(), ActionConfig{})

	want := []models.ActionType{
		models.ActionHTTPRequest,
		models.ActionEmail,
		models.ActionSMS,
		models.ActionSlack,
		models.ActionDiscord,
		models.ActionTeams,
		models.ActionNotification,
		models.ActionDatabase,
		models.ActionWebhook,
		models.ActionScript,
	}

	assert.ElementsMatch(t, want, reg.ActionTypes())
}

func TestNewEventBusPublishes(t *testing.T) {
	bus, err := NewEventBus(slog.Default())
	require.NoError(t, err)

	defer func() { _ = bus.Close() }()

	err = bus.Publish(t.Context(), "wf-1", events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, "wf-1"),
		Name:      "signup follow-up",
	})
	require.NoError(t, err)
}
