package location

import (
	"github.com/gofiber/fiber/v2"
	"github.com/projenitor/projenitor-api/handlers"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/utils/response"
	"github.com/projenitor/projenitor-api/utils/validation"
)

// LocationHandler handles hierarchy browsing and location edits
type LocationHandler struct {
	service   *services.LocationService
	validator *validation.Validator
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(service *services.LocationService) *LocationHandler {
	return &LocationHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// AddLocationRequest represents the request body for adding a location
type AddLocationRequest struct {
	Level      string `json:"level" validate:"required,location_level"`
	Name       string `json:"name" validate:"required,max=255"`
	ParentName string `json:"parentName" validate:"omitempty,max=255"`
}

// RenameLocationRequest represents the request body for renaming a location
type RenameLocationRequest struct {
	Level      string `json:"level" validate:"required,location_level"`
	OldName    string `json:"oldName" validate:"required,max=255"`
	NewName    string `json:"newName" validate:"required,max=255"`
	ParentName string `json:"parentName" validate:"omitempty,max=255"`
}

// GetHierarchy handles GET /api/v1/hierarchy?level=&parent=
func (h *LocationHandler) GetHierarchy(c *fiber.Ctx) error {
	names, err := h.service.ListChildren(c.UserContext(), c.Query("level"), c.Query("parent"))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to list locations")
	}
	return response.Success(c, names)
}

// AddLocation handles POST /api/v1/locations
func (h *LocationHandler) AddLocation(c *fiber.Ctx) error {
	var req AddLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return validationError(c, err)
	}

	node, err := h.service.AddLocation(c.UserContext(),
		req.Level, validation.SanitizeString(req.Name), validation.SanitizeString(req.ParentName))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to add location")
	}
	return response.Created(c, node)
}

// RenameLocation handles PUT /api/v1/locations
func (h *LocationHandler) RenameLocation(c *fiber.Ctx) error {
	var req RenameLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return validationError(c, err)
	}

	node, err := h.service.RenameLocation(c.UserContext(), req.Level,
		validation.SanitizeString(req.OldName),
		validation.SanitizeString(req.NewName),
		validation.SanitizeString(req.ParentName))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to rename location")
	}
	return response.SuccessWithMessage(c, "Location renamed successfully", node)
}

// GetLocation handles GET /api/v1/locations/:level/:id
func (h *LocationHandler) GetLocation(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	node, err := h.service.GetLocation(c.UserContext(), c.Params("level"), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch location")
	}
	return response.Success(c, node)
}

// DeleteLocation handles DELETE /api/v1/locations/:level/:id
func (h *LocationHandler) DeleteLocation(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.service.SoftDelete(c.UserContext(), c.Params("level"), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to delete location")
	}
	return response.SuccessWithMessage(c, "Location moved to recycle bin", result)
}

// validationError reports an unrecognized level as a bad request, like the
// service does, and every other field failure as 422.
func validationError(c *fiber.Ctx, err error) error {
	if validation.FailedOn(err, "location_level") {
		return response.BadRequest(c, err.Error())
	}
	return response.ValidationError(c, err)
}
