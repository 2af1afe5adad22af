package member

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/projenitor/projenitor-api/handlers"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/utils/response"
	"github.com/projenitor/projenitor-api/utils/validation"
)

// MemberHandler handles family tree member requests
type MemberHandler struct {
	service   *services.MemberService
	validator *validation.Validator
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(service *services.MemberService) *MemberHandler {
	return &MemberHandler{
		service:   service,
		validator: validation.NewValidator(),
	}
}

// ShiftLevelsRequest represents the request body for shifting a subtree
type ShiftLevelsRequest struct {
	Delta int `json:"delta" validate:"required"`
}

func (h *MemberHandler) parseInput(c *fiber.Ctx) (*services.MemberInput, error) {
	var req services.MemberInput
	if err := c.BodyParser(&req); err != nil {
		return nil, response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return nil, response.ValidationError(c, err)
	}
	return &req, nil
}

// CreateMember handles POST /api/v1/members
func (h *MemberHandler) CreateMember(c *fiber.Ctx) error {
	req, err := h.parseInput(c)
	if req == nil {
		return err
	}

	member, err := h.service.CreateMember(c.UserContext(), *req)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to create member")
	}
	return response.Created(c, member)
}

// GetMember handles GET /api/v1/members/:id
func (h *MemberHandler) GetMember(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	member, err := h.service.GetMember(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch member")
	}
	return response.Success(c, member)
}

// UpdateMember handles PUT /api/v1/members/:id
func (h *MemberHandler) UpdateMember(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	req, err := h.parseInput(c)
	if req == nil {
		return err
	}

	member, err := h.service.UpdateMember(c.UserContext(), id, *req)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update member")
	}
	return response.SuccessWithMessage(c, "Member updated successfully", member)
}

// DeleteMember handles DELETE /api/v1/members/:id
func (h *MemberHandler) DeleteMember(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	result, err := h.service.DeleteMember(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to delete member")
	}
	return response.SuccessWithMessage(c, "Member and descendants moved to recycle bin", result)
}

// GetRelatives handles GET /api/v1/relatives/:id
func (h *MemberHandler) GetRelatives(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	relatives, err := h.service.GetRelatives(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch relatives")
	}
	return response.Success(c, relatives)
}

// ListDescendants handles GET /api/v1/members/:id/descendants
func (h *MemberHandler) ListDescendants(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	ids, err := h.service.ListDescendants(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch descendants")
	}
	return response.Success(c, ids)
}

// ShiftLevels handles POST /api/v1/members/:id/shift-levels
func (h *MemberHandler) ShiftLevels(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	var req ShiftLevelsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.service.ShiftLevels(c.UserContext(), id, req.Delta)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to shift levels")
	}
	return response.Success(c, result)
}

// CompareMembers handles GET /api/v1/relationship?a=&b=
func (h *MemberHandler) CompareMembers(c *fiber.Ctx) error {
	a, errA := strconv.ParseUint(c.Query("a"), 10, 64)
	b, errB := strconv.ParseUint(c.Query("b"), 10, 64)
	if errA != nil || errB != nil || a == 0 || b == 0 {
		return response.BadRequest(c, "Query parameters a and b must be member ids")
	}

	rel, err := h.service.CompareMembers(c.UserContext(), uint(a), uint(b))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to compare members")
	}
	return response.Success(c, rel)
}

// ListHousehold handles GET /api/v1/household?home_name=&village=
func (h *MemberHandler) ListHousehold(c *fiber.Ctx) error {
	household, err := h.service.ListHousehold(c.UserContext(), c.Query("home_name"), c.Query("village"))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch household")
	}
	return response.Success(c, household)
}
