package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/utils/response"
)

// ServiceError maps the service error taxonomy onto HTTP responses. Unexpected
// errors are logged and reported without their details.
func ServiceError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		return response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	}

	log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	return response.InternalServerError(c, fallback)
}

// ParseID reads a positive integer route parameter
func ParseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}
