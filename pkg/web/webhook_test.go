package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/web"
)

func deliverWebhook(t *testing.T, app *fiber.App, path, secret string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if secret != "" {
		req.Header.Set(web.SecretHeader, secret)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestWebhookDelivery_TriggersRun(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name: "hooked",
		Trigger: models.Trigger{
			Type:   models.TriggerWebhook,
			Config: map[string]any{"secret": "s3cret"},
		},
		Actions: []models.Action{{Type: "noop"}},
	})
	require.NotEmpty(t, created.WebhookPath)

	resp := deliverWebhook(t, app, created.WebhookPath, "s3cret", map[string]any{"event": "signup"})
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result web.ExecutionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, models.ExecutionCompleted, result.Execution.Status)
	assert.Equal(t, "signup", result.Execution.TriggerPayload["event"])
}

func TestWebhookDelivery_RejectsBadSecret(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name: "guarded",
		Trigger: models.Trigger{
			Type:   models.TriggerWebhook,
			Config: map[string]any{"secret": "s3cret"},
		},
	})

	resp := deliverWebhook(t, app, created.WebhookPath, "wrong", map[string]any{})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookDelivery_RejectsWrongMethod(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name:    "post only",
		Trigger: models.Trigger{Type: models.TriggerWebhook, Config: map[string]any{}},
	})

	req := httptest.NewRequest(http.MethodGet, created.WebhookPath, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebhookDelivery_UnknownBinding(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := deliverWebhook(t, app, "/api/webhooks/00000000-0000-0000-0000-000000000000", "", map[string]any{})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookDelivery_PayloadSchema(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	created := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name: "strict intake",
		Trigger: models.Trigger{
			Type: models.TriggerWebhook,
			Config: map[string]any{
				"payload_schema": map[string]any{
					"type":     "object",
					"required": []any{"email"},
					"properties": map[string]any{
						"email": map[string]any{"type": "string"},
					},
				},
			},
		},
		Actions: []models.Action{{Type: "noop"}},
	})

	resp := deliverWebhook(t, app, created.WebhookPath, "", map[string]any{"name": "no email"})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = deliverWebhook(t, app, created.WebhookPath, "", map[string]any{"email": "a@b.com"})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestWebhookDelivery_DisabledWorkflow(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)

	enabled := false

	created := createWorkflow(t, app, web.CreateWorkflowRequest{
		Name:    "sleeping hook",
		Trigger: models.Trigger{Type: models.TriggerWebhook, Config: map[string]any{}},
		Enabled: &enabled,
	})

	resp := deliverWebhook(t, app, created.WebhookPath, "", map[string]any{})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	history, err := store.ExecutionLedger().ExecutionsByWorkflow(t.Context(), created.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
