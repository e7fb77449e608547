// Package main provides the Taskline API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/persistence"
	"github.com/taskline/taskline/pkg/plan"
	"github.com/taskline/taskline/pkg/registry"
	"github.com/taskline/taskline/pkg/web"
)

type API struct {
	logger     *slog.Logger
	store      persistence.Store
	registry   *registry.Registry
	defaults   plan.Defaults
	engineOpts engine.Options
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Store,
	reg *registry.Registry,
	defaults plan.Defaults,
	engineOpts engine.Options,
) *API {
	return &API{
		logger:     logger,
		store:      store,
		registry:   reg,
		defaults:   defaults,
		engineOpts: engineOpts,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.registry, a.store, a.defaults, a.engineOpts)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Taskline API")
	})

	app.Post("/plans/validate", handlers.ValidatePlan)

	r := app.Group("/runs")
	r.Post("/", handlers.CreateRun)
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)

	app.Get("/capabilities", handlers.GetCapabilities)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
