package web

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/xeipuuv/gojsonschema"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/binder"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/workflow"
)

// SecretHeader carries the shared secret on inbound webhook deliveries.
const SecretHeader = "X-Webhook-Secret"

// WebhookHandlers receives inbound webhook deliveries and turns them into
// workflow runs.
type WebhookHandlers struct {
	binder   *binder.Binder
	executor *workflow.Executor
}

func NewWebhookHandlers(b *binder.Binder, executor *workflow.Executor) *WebhookHandlers {
	return &WebhookHandlers{binder: b, executor: executor}
}

// Deliver resolves the binding, enforces method, secret and payload schema,
// then runs the bound workflow with the delivery body as trigger payload.
func (h *WebhookHandlers) Deliver(c fiber.Ctx) error {
	bindingID := c.Params("webhookId")
	if bindingID == "" {
		return badRequest(c, "Webhook ID is required")
	}

	binding, err := h.binder.WebhookBindingByID(c.Context(), bindingID)
	if err != nil {
		if persistence.IsBindingNotFound(err) {
			return notFound(c, "webhook not found")
		}

		return internalError(c, err)
	}

	if binding.Method != "" && c.Method() != binding.Method {
		return methodNotAllowed(c, "webhook expects "+binding.Method)
	}

	if binding.Secret != "" {
		provided := c.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(binding.Secret)) != 1 {
			return unauthorized(c, "invalid webhook secret")
		}
	}

	payload := map[string]any{}

	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &payload); err != nil {
			return badRequest(c, "Invalid JSON payload")
		}
	}

	if binding.PayloadSchema != nil {
		if detail, ok := validatePayload(binding.PayloadSchema, payload); !ok {
			return unprocessable(c, detail)
		}
	}

	execution, err := h.executor.Run(c.Context(), binding.WorkflowID, models.TriggerWebhook, payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ExecutionResponse{Execution: execution})
}

func validatePayload(schema map[string]any, payload map[string]any) (string, bool) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return "invalid payload schema: " + err.Error(), false
	}

	if result.Valid() {
		return "", true
	}

	detail := "payload does not match schema"
	if errs := result.Errors(); len(errs) > 0 {
		detail = errs[0].String()
	}

	return detail, false
}
