package stats

import (
	"github.com/gofiber/fiber/v2"
	"github.com/projenitor/projenitor-api/handlers"
	"github.com/projenitor/projenitor-api/services"
	"github.com/projenitor/projenitor-api/utils/response"
)

// StatsHandler serves dashboard statistics
type StatsHandler struct {
	service *services.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service *services.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

// GetDashboardStats handles GET /api/v1/stats
func (h *StatsHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch dashboard stats")
	}
	return response.Success(c, stats)
}
