package web

import (
	"github.com/cumplia/sgci/pkg/persistence"
	"github.com/cumplia/sgci/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
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

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service-layer errors for endpoints whose entity
// references arrive in the request body: an absent referenced entity is the
// client's mistake, so not-found maps to 400 here, not 404.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case services.IsConflictError(err):
		return conflict(c, err.Error())
	case persistence.IsNotFound(err):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

// handleLookupError maps errors for endpoints that address an entity by a
// path id, where absence is a plain 404.
func handleLookupError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsNotFound(err):
		return notFound(c, err.Error())
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case services.IsConflictError(err):
		return conflict(c, err.Error())
	default:
		return internalError(c, err)
	}
}
