package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
)

type ObservationService struct {
	observations ObservationStore
	regions      RegionStore
	aggregation  *AggregationService
	now          func() time.Time
}

func NewObservationService(observations ObservationStore, regions RegionStore, aggregation *AggregationService) *ObservationService {
	return &ObservationService{
		observations: observations,
		regions:      regions,
		aggregation:  aggregation,
		now:          time.Now,
	}
}

// ============================================================================
// CREATE OPERATIONS
// ============================================================================

// Ingest validates and stores a single observation on behalf of caller.
// Validation and missing-region errors are returned before any write.
// A duplicate (location, timestamp, source) surfaces as *models.ConflictError.
func (s *ObservationService) Ingest(ctx context.Context, caller models.Caller, input models.ObservationInput) (*models.EnvironmentalObservation, error) {
	if !caller.Can(models.CapWriteObservations) {
		return nil, &models.ForbiddenError{Capability: models.CapWriteObservations}
	}
	obs, err := s.ingest(ctx, caller, input)
	if err != nil {
		return nil, err
	}
	s.aggregation.Invalidate(ctx)
	return obs, nil
}

// ingest skips the capability check and cache invalidation. Bulk uploads are
// authorised when submitted and invalidate once at the end.
func (s *ObservationService) ingest(ctx context.Context, caller models.Caller, input models.ObservationInput) (*models.EnvironmentalObservation, error) {
	obs, err := ValidateObservation(input, caller, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.regions.GetByID(ctx, obs.RegionID); err != nil {
		return nil, err
	}

	if err := s.observations.InsertObservation(ctx, obs); err != nil {
		return nil, err
	}

	slog.Info("Observation ingested",
		"id", obs.ID,
		"region_id", obs.RegionID,
		"source", obs.Source,
		"uploaded_by", caller.UserID)
	return obs, nil
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

func (s *ObservationService) GetByID(ctx context.Context, id uuid.UUID) (*models.EnvironmentalObservation, error) {
	return s.observations.GetByID(ctx, id)
}

func (s *ObservationService) List(ctx context.Context, filter models.ObservationFilter) ([]models.EnvironmentalObservation, int, error) {
	if err := filter.DateRange.Validate(); err != nil {
		return nil, 0, err
	}
	if filter.Source != nil && !filter.Source.IsValid() {
		return nil, 0, models.NewValidationError("source", "must be one of satellite, ground, model")
	}
	return s.observations.List(ctx, filter)
}

// WithinBox streams observations inside box. Invalid arguments are yielded as the first error.
func (s *ObservationService) WithinBox(ctx context.Context, box models.BoundingBox, dateRange *models.DateRange, sources []models.Source) iter.Seq2[models.EnvironmentalObservation, error] {
	if err := validateBoxQuery(box, dateRange, sources); err != nil {
		return func(yield func(models.EnvironmentalObservation, error) bool) {
			yield(models.EnvironmentalObservation{}, err)
		}
	}
	return s.observations.QueryWithinBox(ctx, box, dateRange, sources)
}

func validateBoxQuery(box models.BoundingBox, dateRange *models.DateRange, sources []models.Source) error {
	if err := box.Validate(); err != nil {
		return err
	}
	if err := dateRange.Validate(); err != nil {
		return err
	}
	for _, src := range sources {
		if !src.IsValid() {
			return models.NewValidationError("sources", fmt.Sprintf("unknown source %q", src))
		}
	}
	return nil
}

// Latest returns the newest observation of each region.
func (s *ObservationService) Latest(ctx context.Context) ([]models.EnvironmentalObservation, error) {
	return s.observations.LatestPerRegion(ctx)
}

// ============================================================================
// UPDATE OPERATIONS
// ============================================================================

// Correct replaces the measured values of an observation. The original uploader is kept.
func (s *ObservationService) Correct(ctx context.Context, caller models.Caller, id uuid.UUID, input models.ObservationInput) (*models.EnvironmentalObservation, error) {
	if !caller.Can(models.CapWriteObservations) {
		return nil, &models.ForbiddenError{Capability: models.CapWriteObservations}
	}

	existing, err := s.observations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Timestamp == nil {
		input.Timestamp = &existing.Timestamp
	}

	updated, err := ValidateObservation(input, caller, s.now())
	if err != nil {
		return nil, err
	}
	if updated.RegionID != existing.RegionID {
		if _, err := s.regions.GetByID(ctx, updated.RegionID); err != nil {
			return nil, err
		}
	}
	updated.ID = existing.ID
	updated.UploadedBy = existing.UploadedBy
	updated.CreatedAt = existing.CreatedAt

	if err := s.observations.Update(ctx, updated); err != nil {
		return nil, err
	}

	slog.Info("Observation corrected", "id", id, "corrected_by", caller.UserID)
	s.aggregation.Invalidate(ctx)
	return updated, nil
}

// ============================================================================
// DELETE OPERATIONS
// ============================================================================

func (s *ObservationService) Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	if !caller.Can(models.CapWriteObservations) {
		return &models.ForbiddenError{Capability: models.CapWriteObservations}
	}
	if err := s.observations.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Observation deleted", "id", id, "deleted_by", caller.UserID)
	s.aggregation.Invalidate(ctx)
	return nil
}
