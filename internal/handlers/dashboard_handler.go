package handlers

import (
	"context"
	"net/http"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type DashboardHandler struct {
	dashboardService DashboardService
}

func NewDashboardHandler(dashboardService DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/dashboard/stats", h.GetStats)
}

func (h *DashboardHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.dashboardService.Stats(c.Context())
	if err != nil {
		return respondError(c, err, "load dashboard statistics")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(stats))
}
