package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/utils/response"
)

// MakeHTTPHandleFunc binds a store-aware handler to a plain fiber handler
func MakeHTTPHandleFunc(handler func(c *fiber.Ctx, store database.Storage) error, store database.Storage) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
			return response.InternalServerError(c, err.Error())
		}
		return nil
	}
}
