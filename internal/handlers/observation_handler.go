package handlers

import (
	"context"
	"iter"
	"net/http"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ObservationService interface {
	Ingest(ctx context.Context, caller models.Caller, input models.ObservationInput) (*models.EnvironmentalObservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EnvironmentalObservation, error)
	List(ctx context.Context, filter models.ObservationFilter) ([]models.EnvironmentalObservation, int, error)
	WithinBox(ctx context.Context, box models.BoundingBox, dateRange *models.DateRange, sources []models.Source) iter.Seq2[models.EnvironmentalObservation, error]
	Latest(ctx context.Context) ([]models.EnvironmentalObservation, error)
	Correct(ctx context.Context, caller models.Caller, id uuid.UUID, input models.ObservationInput) (*models.EnvironmentalObservation, error)
	Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error
}

type ObservationHandler struct {
	observationService ObservationService
	pageSize           int
}

func NewObservationHandler(observationService ObservationService, pageSize int) *ObservationHandler {
	return &ObservationHandler{
		observationService: observationService,
		pageSize:           normalizePageSize(pageSize),
	}
}

func (h *ObservationHandler) RegisterRoutes(router fiber.Router) {
	obsGroup := router.Group("/observations")
	obsGroup.Get("/", h.ListObservations)
	obsGroup.Post("/", h.CreateObservation)
	obsGroup.Get("/within-bbox", h.WithinBoundingBox)
	obsGroup.Get("/latest", h.LatestObservations)
	obsGroup.Get("/:id", h.GetObservation)
	obsGroup.Put("/:id", h.UpdateObservation)
	obsGroup.Delete("/:id", h.DeleteObservation)
}

// ============================================================================
// READ
// ============================================================================

// ListObservations supports region, date, source, min_quality, start_date, end_date and paging filters.
func (h *ObservationHandler) ListObservations(c fiber.Ctx) error {
	filter, err := parseObservationFilter(c, h.pageSize)
	if err != nil {
		return respondError(c, err, "list observations")
	}

	observations, total, err := h.observationService.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err, "list observations")
	}
	return c.Status(http.StatusOK).JSON(
		utils.CreatePagedResponse(observations, filter.Page, filter.PageSize, total))
}

func parseObservationFilter(c fiber.Ctx, defaultPageSize int) (models.ObservationFilter, error) {
	var filter models.ObservationFilter

	page, pageSize, err := pageParams(c, defaultPageSize)
	if err != nil {
		return filter, err
	}
	filter.Page = page
	filter.PageSize = pageSize

	if filter.RegionID, err = optionalUUIDQuery(c, "region"); err != nil {
		return filter, err
	}
	if filter.Date, err = utils.ParseOptionalDate("date", c.Query("date")); err != nil {
		return filter, models.NewValidationError("date", err.Error())
	}
	if raw := c.Query("source"); raw != "" {
		source := models.Source(raw)
		filter.Source = &source
	}
	if filter.MinQualityScore, err = utils.ParseOptionalFloat("min_quality", c.Query("min_quality")); err != nil {
		return filter, models.NewValidationError("min_quality", err.Error())
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return filter, err
	}
	if !dateRange.IsEmpty() {
		filter.DateRange = dateRange
	}
	return filter, nil
}

func parseDateRange(c fiber.Ctx) (*models.DateRange, error) {
	start, err := utils.ParseOptionalDate("start_date", c.Query("start_date"))
	if err != nil {
		return nil, models.NewValidationError("start_date", err.Error())
	}
	end, err := utils.ParseOptionalDate("end_date", c.Query("end_date"))
	if err != nil {
		return nil, models.NewValidationError("end_date", err.Error())
	}
	return &models.DateRange{Start: start, End: end}, nil
}

func (h *ObservationHandler) GetObservation(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "get observation")
	}

	observation, err := h.observationService.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err, "get observation")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(observation))
}

// WithinBoundingBox streams observations inside the box given by sw_lat, sw_lng, ne_lat, ne_lng
// and returns one page of them.
func (h *ObservationHandler) WithinBoundingBox(c fiber.Ctx) error {
	box, err := parseBoundingBox(c)
	if err != nil {
		return respondError(c, err, "query bounding box")
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return respondError(c, err, "query bounding box")
	}
	if dateRange.IsEmpty() {
		dateRange = nil
	}

	var sources []models.Source
	for _, s := range utils.SplitCSVParam(c.Query("sources")) {
		sources = append(sources, models.Source(s))
	}

	page, pageSize, err := pageParams(c, h.pageSize)
	if err != nil {
		return respondError(c, err, "query bounding box")
	}

	seq := h.observationService.WithinBox(c.Context(), box, dateRange, sources)
	observations, total, err := utils.Paginate(seq, page, pageSize)
	if err != nil {
		return respondError(c, err, "query bounding box")
	}
	return c.Status(http.StatusOK).JSON(utils.CreatePagedResponse(observations, page, pageSize, total))
}

func parseBoundingBox(c fiber.Ctx) (models.BoundingBox, error) {
	var box models.BoundingBox
	var err error
	if box.SWLat, err = requiredFloatQuery(c, "sw_lat"); err != nil {
		return box, err
	}
	if box.SWLng, err = requiredFloatQuery(c, "sw_lng"); err != nil {
		return box, err
	}
	if box.NELat, err = requiredFloatQuery(c, "ne_lat"); err != nil {
		return box, err
	}
	if box.NELng, err = requiredFloatQuery(c, "ne_lng"); err != nil {
		return box, err
	}
	return box, nil
}

func (h *ObservationHandler) LatestObservations(c fiber.Ctx) error {
	observations, err := h.observationService.Latest(c.Context())
	if err != nil {
		return respondError(c, err, "get latest observations")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(observations))
}

// ============================================================================
// WRITE
// ============================================================================

func (h *ObservationHandler) CreateObservation(c fiber.Ctx) error {
	var input models.ObservationInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	observation, err := h.observationService.Ingest(c.Context(), callerFrom(c), input)
	if err != nil {
		return respondError(c, err, "create observation")
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(observation))
}

func (h *ObservationHandler) UpdateObservation(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "update observation")
	}

	var input models.ObservationInput
	if err := c.Bind().Body(&input); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	observation, err := h.observationService.Correct(c.Context(), callerFrom(c), id, input)
	if err != nil {
		return respondError(c, err, "update observation")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(observation))
}

func (h *ObservationHandler) DeleteObservation(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "delete observation")
	}

	if err := h.observationService.Delete(c.Context(), callerFrom(c), id); err != nil {
		return respondError(c, err, "delete observation")
	}
	return c.SendStatus(http.StatusNoContent)
}
