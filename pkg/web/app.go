package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/binder"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/persistence"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/workflow"
)

// NewApp assembles the fiber application with all engine routes.
func NewApp(
	service *workflow.Service,
	executor *workflow.Executor,
	b *binder.Binder,
	store persistence.Persistence,
) *fiber.App {
	handlers := NewAPIHandlers(service, executor, store)
	webhooks := NewWebhookHandlers(b, executor)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("AppForge Automation Engine")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.ListWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)
	w.Get("/:id/executions", handlers.ListExecutions)
	w.Delete("/:id/executions", handlers.ClearExecutions)

	app.All("/api/webhooks/:webhookId", webhooks.Deliver)

	app.Get("/health", handlers.HealthCheck)

	return app
}
