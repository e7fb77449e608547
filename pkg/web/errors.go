package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/taskline/taskline/pkg/persistence"
	"github.com/taskline/taskline/pkg/plan"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handlePlanError maps plan parsing failures to problem responses,
// surfacing schema violations individually.
func handlePlanError(c fiber.Ctx, err error) error {
	var schemaErr *plan.SchemaError
	if errors.As(err, &schemaErr) {
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("schema_violation").
			WithDetail(schemaErr.Error())

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"type":       problem.Type,
			"title":      problem.Title,
			"status":     problem.Status,
			"detail":     problem.Detail,
			"instance":   problem.Instance,
			"violations": schemaErr.Violations,
		})
	}

	return badRequest(c, err.Error())
}

func handleStoreError(c fiber.Ctx, err error) error {
	if persistence.IsRunNotFound(err) {
		return notFound(c, "run not found")
	}

	return internalError(c, err)
}
