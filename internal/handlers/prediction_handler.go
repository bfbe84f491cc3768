package handlers

import (
	"context"
	"net/http"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type PredictionService interface {
	Predict(ctx context.Context, caller models.Caller, req models.PredictRiskRequest) (*models.RiskPrediction, *models.RiskResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.RiskPrediction, error)
	List(ctx context.Context, regionID *uuid.UUID, page, pageSize int) ([]models.RiskPrediction, int, error)
}

type PredictionHandler struct {
	predictionService PredictionService
	pageSize          int
}

func NewPredictionHandler(predictionService PredictionService, pageSize int) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		pageSize:          normalizePageSize(pageSize),
	}
}

type predictResponse struct {
	Prediction *models.RiskPrediction `json:"prediction"`
	Result     *models.RiskResult     `json:"result"`
}

func (h *PredictionHandler) RegisterRoutes(router fiber.Router) {
	predictionGroup := router.Group("/risk-predictions")
	predictionGroup.Post("/predict", h.Predict)
	predictionGroup.Get("/", h.ListPredictions)
	predictionGroup.Get("/:id", h.GetPrediction)
}

func (h *PredictionHandler) Predict(c fiber.Ctx) error {
	var req models.PredictRiskRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	prediction, result, err := h.predictionService.Predict(c.Context(), callerFrom(c), req)
	if err != nil {
		return respondError(c, err, "predict risk")
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(predictResponse{
		Prediction: prediction,
		Result:     result,
	}))
}

func (h *PredictionHandler) ListPredictions(c fiber.Ctx) error {
	regionID, err := optionalUUIDQuery(c, "region")
	if err != nil {
		return respondError(c, err, "list risk predictions")
	}
	page, pageSize, err := pageParams(c, h.pageSize)
	if err != nil {
		return respondError(c, err, "list risk predictions")
	}

	predictions, total, err := h.predictionService.List(c.Context(), regionID, page, pageSize)
	if err != nil {
		return respondError(c, err, "list risk predictions")
	}
	return c.Status(http.StatusOK).JSON(utils.CreatePagedResponse(predictions, page, pageSize, total))
}

func (h *PredictionHandler) GetPrediction(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "get risk prediction")
	}

	prediction, err := h.predictionService.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err, "get risk prediction")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(prediction))
}
