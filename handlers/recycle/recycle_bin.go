package recycle

import (
	"github.com/gofiber/fiber/v2"
	"github.com/projenitor/projenitor-api/handlers"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/utils/response"
)

// RecycleBinHandler lists and restores soft-deleted rows
type RecycleBinHandler struct {
	service *services.RecycleBinService
}

// NewRecycleBinHandler creates a new recycle bin handler
func NewRecycleBinHandler(service *services.RecycleBinService) *RecycleBinHandler {
	return &RecycleBinHandler{service: service}
}

// ListDeleted handles GET /api/v1/recycle-bin
func (h *RecycleBinHandler) ListDeleted(c *fiber.Ctx) error {
	bin, err := h.service.ListDeleted(c.UserContext())
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch recycle bin")
	}
	return response.Success(c, bin)
}

// Restore handles PUT /api/v1/restore/:table/:id
func (h *RecycleBinHandler) Restore(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.service.Restore(c.UserContext(), c.Params("table"), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to restore")
	}
	return response.SuccessWithMessage(c, "Restored successfully", result)
}
