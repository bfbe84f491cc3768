package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

type RegionService struct {
	regions     RegionStore
	aggregation *AggregationService
}

func NewRegionService(regions RegionStore, aggregation *AggregationService) *RegionService {
	return &RegionService{regions: regions, aggregation: aggregation}
}

func (s *RegionService) List(ctx context.Context) ([]models.Region, error) {
	return s.regions.ListRegions(ctx)
}

func (s *RegionService) GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	return s.regions.GetByID(ctx, id)
}

func (s *RegionService) Create(ctx context.Context, caller models.Caller, req models.CreateRegionRequest) (*models.Region, error) {
	if !caller.Can(models.CapManageRegions) {
		return nil, &models.ForbiddenError{Capability: models.CapManageRegions}
	}
	region := &models.Region{}
	if err := applyRegionRequest(region, req); err != nil {
		return nil, err
	}
	if err := s.regions.Create(ctx, region); err != nil {
		return nil, err
	}
	slog.Info("Region created", "id", region.ID, "code", region.Code, "created_by", caller.UserID)
	s.aggregation.Invalidate(ctx)
	return region, nil
}

func (s *RegionService) Update(ctx context.Context, caller models.Caller, id uuid.UUID, req models.CreateRegionRequest) (*models.Region, error) {
	if !caller.Can(models.CapManageRegions) {
		return nil, &models.ForbiddenError{Capability: models.CapManageRegions}
	}
	region, err := s.regions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyRegionRequest(region, req); err != nil {
		return nil, err
	}
	if err := s.regions.Update(ctx, region); err != nil {
		return nil, err
	}
	slog.Info("Region updated", "id", region.ID, "updated_by", caller.UserID)
	s.aggregation.Invalidate(ctx)
	return region, nil
}

// Delete removes the region together with its observations, predictions and reports.
func (s *RegionService) Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	if !caller.Can(models.CapManageRegions) {
		return &models.ForbiddenError{Capability: models.CapManageRegions}
	}
	if err := s.regions.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Region deleted", "id", id, "deleted_by", caller.UserID)
	s.aggregation.Invalidate(ctx)
	return nil
}

func applyRegionRequest(region *models.Region, req models.CreateRegionRequest) error {
	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	if name == "" {
		return models.NewValidationError("name", "is required")
	}
	if len(name) > models.MaxRegionNameLength {
		return models.NewValidationError("name", "is too long")
	}
	if code == "" {
		return models.NewValidationError("code", "is required")
	}
	if len(code) > models.MaxRegionCodeLength {
		return models.NewValidationError("code", "is too long")
	}
	if len(req.RiskLevel) > models.MaxRegionRiskLevelLength {
		return models.NewValidationError("risk_level", "is too long")
	}
	if req.AreaSqKm != nil && *req.AreaSqKm < 0 {
		return models.NewValidationError("area_sq_km", "must not be negative")
	}
	if req.Population != nil && *req.Population < 0 {
		return models.NewValidationError("population", "must not be negative")
	}
	if req.Boundary != nil {
		if _, err := req.Boundary.Geom(); err != nil {
			return models.NewValidationError("boundary", err.Error())
		}
	}

	var lastAssessment *time.Time
	if req.LastAssessment != "" {
		parsed, err := time.Parse(utils.DateLayout, req.LastAssessment)
		if err != nil {
			return models.NewValidationError("last_assessment", "must be formatted as YYYY-MM-DD")
		}
		lastAssessment = &parsed
	}

	region.Name = name
	region.Code = code
	region.Boundary = req.Boundary
	region.AreaSqKm = req.AreaSqKm
	region.Population = req.Population
	region.RiskLevel = req.RiskLevel
	region.LastAssessment = lastAssessment
	return nil
}
