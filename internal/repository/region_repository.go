package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RegionRepository struct {
	db *sqlx.DB
}

func NewRegionRepository(db *sqlx.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

const regionColumns = `
	id, name, code,
	ST_AsEWKB(boundary) AS boundary,
	area_sq_km, population, risk_level, last_assessment,
	created_at, updated_at`

// ============================================================================
// CREATE OPERATIONS
// ============================================================================

func (r *RegionRepository) Create(ctx context.Context, region *models.Region) error {
	if region.ID == uuid.Nil {
		region.ID = uuid.New()
	}
	now := time.Now()
	region.CreatedAt = now
	region.UpdatedAt = now

	slog.Info("Creating region", "id", region.ID, "name", region.Name, "code", region.Code)

	query := `
		INSERT INTO region (
			id, name, code, boundary, area_sq_km, population,
			risk_level, last_assessment, created_at, updated_at
		) VALUES (
			:id, :name, :code, ST_GeomFromEWKT(:boundary), :area_sq_km, :population,
			:risk_level, :last_assessment, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, region); err != nil {
		slog.Error("Failed to create region", "id", region.ID, "error", err)
		return fmt.Errorf("failed to create region: %w", translateError(err, "region", region.ID.String()))
	}

	slog.Info("Successfully created region", "id", region.ID)
	return nil
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

func (r *RegionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	slog.Debug("Retrieving region by ID", "id", id)

	var region models.Region
	query := `SELECT ` + regionColumns + ` FROM region WHERE id = $1`

	if err := r.db.GetContext(ctx, &region, query, id); err != nil {
		err = translateError(err, "region", id.String())
		if models.IsNotFound(err) {
			slog.Warn("Region not found", "id", id)
			return nil, err
		}
		slog.Error("Failed to get region", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get region: %w", err)
	}
	return &region, nil
}

// ListRegions returns every region ordered by name.
func (r *RegionRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	query := `SELECT ` + regionColumns + ` FROM region ORDER BY name`

	if err := r.db.SelectContext(ctx, &regions, query); err != nil {
		slog.Error("Failed to list regions", "error", err)
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return regions, nil
}

func (r *RegionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM region`); err != nil {
		return 0, fmt.Errorf("failed to count regions: %w", err)
	}
	return count, nil
}

// ============================================================================
// UPDATE OPERATIONS
// ============================================================================

func (r *RegionRepository) Update(ctx context.Context, region *models.Region) error {
	region.UpdatedAt = time.Now()

	query := `
		UPDATE region SET
			name = :name,
			code = :code,
			boundary = ST_GeomFromEWKT(:boundary),
			area_sq_km = :area_sq_km,
			population = :population,
			risk_level = :risk_level,
			last_assessment = :last_assessment,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, region)
	if err != nil {
		slog.Error("Failed to update region", "id", region.ID, "error", err)
		return fmt.Errorf("failed to update region: %w", translateError(err, "region", region.ID.String()))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("region", region.ID.String())
	}

	slog.Info("Successfully updated region", "id", region.ID)
	return nil
}

// ============================================================================
// DELETE OPERATIONS
// ============================================================================

// Delete removes the region. Observations, predictions, reports and uploads cascade.
func (r *RegionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := utils.ExecWithCheck(ctx, r.db, `DELETE FROM region WHERE id = $1`, utils.ExecDelete, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return models.NewNotFoundError("region", id.String())
	}
	if err != nil {
		slog.Error("Failed to delete region", "id", id, "error", err)
		return fmt.Errorf("failed to delete region: %w", err)
	}

	slog.Info("Successfully deleted region", "id", id)
	return nil
}
