package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
)

// predictionWindow is the lookback used when scoring regions from their own observations.
const predictionWindow = models.TimeRange30Days

type RiskPredictionService struct {
	predictions PredictionStore
	regions     RegionStore
	aggregation *AggregationService
	now         func() time.Time
}

func NewRiskPredictionService(predictions PredictionStore, regions RegionStore, aggregation *AggregationService) *RiskPredictionService {
	return &RiskPredictionService{
		predictions: predictions,
		regions:     regions,
		aggregation: aggregation,
		now:         time.Now,
	}
}

// Predict scores the request inputs and stores today's prediction for the region.
// A prediction already stored for the same region and day yields *models.ConflictError.
func (s *RiskPredictionService) Predict(ctx context.Context, caller models.Caller, req models.PredictRiskRequest) (*models.RiskPrediction, *models.RiskResult, error) {
	if !caller.Can(models.CapRunPredictions) {
		return nil, nil, &models.ForbiddenError{Capability: models.CapRunPredictions}
	}
	if req.RegionID == nil || *req.RegionID == uuid.Nil {
		return nil, nil, models.NewValidationError("region_id", "is required")
	}
	inputs, err := req.Inputs()
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.regions.GetByID(ctx, *req.RegionID); err != nil {
		return nil, nil, err
	}

	return s.scoreAndStore(ctx, *req.RegionID, inputs)
}

func (s *RiskPredictionService) scoreAndStore(ctx context.Context, regionID uuid.UUID, inputs models.RiskInputs) (*models.RiskPrediction, *models.RiskResult, error) {
	result, err := ScoreRisk(inputs)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	prediction := &models.RiskPrediction{
		RegionID:       regionID,
		PredictionDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		RiskScore:      result.RiskScore,
		Confidence:     result.Confidence,
		Factors:        result.Factors.AsMap(),
	}
	if err := s.predictions.Create(ctx, prediction); err != nil {
		return nil, nil, err
	}
	return prediction, &result, nil
}

func (s *RiskPredictionService) GetByID(ctx context.Context, id uuid.UUID) (*models.RiskPrediction, error) {
	return s.predictions.GetByID(ctx, id)
}

func (s *RiskPredictionService) List(ctx context.Context, regionID *uuid.UUID, page, pageSize int) ([]models.RiskPrediction, int, error) {
	return s.predictions.List(ctx, regionID, page, pageSize)
}

// RefreshDailyPredictions scores every region from its recent observation averages.
// Regions without recent data, or that already have today's prediction, are skipped.
func (s *RiskPredictionService) RefreshDailyPredictions(ctx context.Context) (int, error) {
	regions, err := s.regions.ListRegions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list regions: %w", err)
	}

	created := 0
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		stats, err := s.aggregation.RegionStatistics(ctx, region.ID, predictionWindow)
		if err != nil {
			slog.Error("Failed to summarise region for prediction", "region_id", region.ID, "error", err)
			continue
		}
		if stats.Count == 0 {
			slog.Debug("Skipping region without recent observations", "region_id", region.ID)
			continue
		}

		_, _, err = s.scoreAndStore(ctx, region.ID, models.RiskInputs{
			VegetationIndex: *stats.AvgVegetationIndex,
			SoilMoisture:    *stats.AvgSoilMoisture,
			Rainfall:        *stats.AvgRainfall,
		})
		switch {
		case models.IsConflict(err):
			slog.Debug("Prediction for today already exists", "region_id", region.ID)
		case err != nil:
			slog.Error("Failed to store daily prediction", "region_id", region.ID, "error", err)
		default:
			created++
		}
	}

	slog.Info("Daily risk predictions refreshed", "regions", len(regions), "created", created)
	return created, nil
}
