package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resume-matcher/internal/logger"
	"alfredoptarigan/resume-matcher/internal/repositories"
	"alfredoptarigan/resume-matcher/internal/services"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TaskQueue is the part of the worker the handlers need.
type TaskQueue interface {
	Enqueue(task services.Task)
}

// CorrelationMiddleware copies the request id set by the requestid
// middleware into the request context so services can log it.
func CorrelationMiddleware(c *fiber.Ctx) error {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		c.SetUserContext(logger.WithCorrelationID(c.UserContext(), id))
	}
	return c.Next()
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// lookupError maps repository errors to a status code and message.
func lookupError(c *fiber.Ctx, err error, notFoundMsg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundMsg,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func newTask(c *fiber.Ctx, kind services.DocumentKind, id uuid.UUID) services.Task {
	return services.Task{
		Kind:          kind,
		ID:            id,
		CorrelationID: logger.CorrelationID(c.UserContext()),
	}
}
