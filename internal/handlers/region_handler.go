package handlers

import (
	"context"
	"net/http"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type RegionService interface {
	List(ctx context.Context) ([]models.Region, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error)
	Create(ctx context.Context, caller models.Caller, req models.CreateRegionRequest) (*models.Region, error)
	Update(ctx context.Context, caller models.Caller, id uuid.UUID, req models.CreateRegionRequest) (*models.Region, error)
	Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error
}

type StatisticsService interface {
	RegionStatistics(ctx context.Context, regionID uuid.UUID, timeRange models.TimeRange) (*models.RegionStatistics, error)
}

type RegionHandler struct {
	regionService     RegionService
	statisticsService StatisticsService
}

func NewRegionHandler(regionService RegionService, statisticsService StatisticsService) *RegionHandler {
	return &RegionHandler{
		regionService:     regionService,
		statisticsService: statisticsService,
	}
}

func (h *RegionHandler) RegisterRoutes(router fiber.Router) {
	regionGroup := router.Group("/regions")
	regionGroup.Get("/", h.ListRegions)
	regionGroup.Post("/", h.CreateRegion)
	regionGroup.Get("/:id/statistics", h.GetRegionStatistics)
	regionGroup.Get("/:id", h.GetRegion)
	regionGroup.Put("/:id", h.UpdateRegion)
	regionGroup.Delete("/:id", h.DeleteRegion)
}

// ============================================================================
// READ
// ============================================================================

func (h *RegionHandler) ListRegions(c fiber.Ctx) error {
	regions, err := h.regionService.List(c.Context())
	if err != nil {
		return respondError(c, err, "list regions")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(regions))
}

func (h *RegionHandler) GetRegion(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "get region")
	}

	region, err := h.regionService.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err, "get region")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(region))
}

// GetRegionStatistics returns aggregates over ?time_range= (7d, 30d, 1y, all). Defaults to 30d.
func (h *RegionHandler) GetRegionStatistics(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "get region statistics")
	}

	timeRange := models.TimeRange(c.Query("time_range", string(models.DefaultTimeRange)))
	stats, err := h.statisticsService.RegionStatistics(c.Context(), id, timeRange)
	if err != nil {
		return respondError(c, err, "get region statistics")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(stats))
}

// ============================================================================
// WRITE
// ============================================================================

func (h *RegionHandler) CreateRegion(c fiber.Ctx) error {
	var req models.CreateRegionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	region, err := h.regionService.Create(c.Context(), callerFrom(c), req)
	if err != nil {
		return respondError(c, err, "create region")
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(region))
}

func (h *RegionHandler) UpdateRegion(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "update region")
	}

	var req models.CreateRegionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	region, err := h.regionService.Update(c.Context(), callerFrom(c), id, req)
	if err != nil {
		return respondError(c, err, "update region")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(region))
}

func (h *RegionHandler) DeleteRegion(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "delete region")
	}

	if err := h.regionService.Delete(c.Context(), callerFrom(c), id); err != nil {
		return respondError(c, err, "delete region")
	}
	return c.SendStatus(http.StatusNoContent)
}
