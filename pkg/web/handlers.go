// Package web provides HTTP handlers and REST API endpoints for plan runs.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/taskline/taskline/pkg/engine"
	"github.com/taskline/taskline/pkg/persistence"
	"github.com/taskline/taskline/pkg/plan"
	"github.com/taskline/taskline/pkg/registry"
)

type APIHandlers struct {
	registry   *registry.Registry
	store      persistence.Store
	defaults   plan.Defaults
	engineOpts engine.Options
}

func NewAPIHandlers(
	reg *registry.Registry,
	store persistence.Store,
	defaults plan.Defaults,
	engineOpts engine.Options,
) *APIHandlers {
	return &APIHandlers{
		registry:   reg,
		store:      store,
		defaults:   defaults,
		engineOpts: engineOpts,
	}
}

// ValidatePlan parses the request body as a plan document and materializes
// it against the registry without running anything.
func (h *APIHandlers) ValidatePlan(c fiber.Ctx) error {
	parsed, err := plan.Parse(c.Body())
	if err != nil {
		return handlePlanError(c, err)
	}

	wf, err := parsed.Materialize(h.registry, h.defaults)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(ValidatePlanResponse{
		Valid:      true,
		WorkflowID: wf.ID,
		Name:       wf.Name,
		TaskCount:  wf.Len(),
	})
}

// CreateRun parses the request body as a plan document, runs it to
// completion and archives the result. The run itself never fails the
// request; per-task failures live inside the returned result.
func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	parsed, err := plan.Parse(c.Body())
	if err != nil {
		return handlePlanError(c, err)
	}

	wf, err := parsed.Materialize(h.registry, h.defaults)
	if err != nil {
		return badRequest(c, err.Error())
	}

	eng := engine.New(h.registry, h.engineOpts)

	var result *engine.RunResult

	parallel, _ := strconv.ParseBool(c.Query("parallel"))
	if parallel {
		result = eng.RunParallel(c.Context(), wf)
	} else {
		result = eng.Run(c.Context(), wf)
	}

	if err := h.store.SaveRun(c.Context(), result); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	runs, err := h.store.Runs(c.Context())
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":        runs,
		"total_count": len(runs),
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	result, err := h.store.RunByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(result)
}

// GetCapabilities lists the registered tools and handlers with their
// input schemas so clients can author plans against them.
func (h *APIHandlers) GetCapabilities(c fiber.Ctx) error {
	var capabilities []Capability

	for _, id := range h.registry.ToolIDs() {
		tool, err := h.registry.Tool(id)
		if err != nil {
			continue
		}

		capabilities = append(capabilities, Capability{
			ID:          tool.ID(),
			Kind:        "tool",
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	for _, id := range h.registry.HandlerIDs() {
		handler, err := h.registry.Handler(id)
		if err != nil {
			continue
		}

		capabilities = append(capabilities, Capability{
			ID:          handler.ID(),
			Kind:        "handler",
			Name:        handler.Name(),
			Description: handler.Description(),
			InputSchema: handler.InputSchema(),
		})
	}

	return c.JSON(fiber.Map{"capabilities": capabilities})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Taskline API is healthy"
	httpStatus := http.StatusOK

	storeCheck := "ok"
	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Taskline API is unhealthy"
		httpStatus = http.StatusInternalServerError
		storeCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"store":    storeCheck,
			"tools":    len(h.registry.ToolIDs()),
			"handlers": len(h.registry.HandlerIDs()),
		},
		"timestamp": time.Now().UTC(),
	})
}
