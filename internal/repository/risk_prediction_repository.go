package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RiskPredictionRepository struct {
	db *sqlx.DB
}

func NewRiskPredictionRepository(db *sqlx.DB) *RiskPredictionRepository {
	return &RiskPredictionRepository{db: db}
}

// Create stores a prediction. A second prediction for the same region and date is a conflict.
func (r *RiskPredictionRepository) Create(ctx context.Context, prediction *models.RiskPrediction) error {
	if prediction.ID == uuid.Nil {
		prediction.ID = uuid.New()
	}
	prediction.CreatedAt = time.Now()

	query := `
		INSERT INTO risk_prediction (
			id, region_id, prediction_date, risk_score, confidence, factors, created_at
		) VALUES (
			:id, :region_id, :prediction_date, :risk_score, :confidence, :factors, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, prediction); err != nil {
		err = translateError(err, "risk prediction", prediction.ID.String())
		if models.IsConflict(err) || models.IsNotFound(err) {
			return err
		}
		slog.Error("Failed to create risk prediction",
			"region_id", prediction.RegionID,
			"prediction_date", prediction.PredictionDate,
			"error", err)
		return fmt.Errorf("failed to create risk prediction: %w", err)
	}

	slog.Info("Created risk prediction",
		"id", prediction.ID,
		"region_id", prediction.RegionID,
		"risk_score", prediction.RiskScore)
	return nil
}

func (r *RiskPredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RiskPrediction, error) {
	var prediction models.RiskPrediction
	query := `
		SELECT id, region_id, prediction_date, risk_score, confidence, factors, created_at
		FROM risk_prediction WHERE id = $1`

	if err := r.db.GetContext(ctx, &prediction, query, id); err != nil {
		err = translateError(err, "risk prediction", id.String())
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get risk prediction: %w", err)
	}
	return &prediction, nil
}

// List returns predictions newest date first, optionally for one region, limited to a page.
func (r *RiskPredictionRepository) List(ctx context.Context, regionID *uuid.UUID, page, pageSize int) ([]models.RiskPrediction, int, error) {
	where := utils.NewWhereBuilder()
	if regionID != nil {
		where.Add("region_id = ?", *regionID)
	}

	var total int
	countQuery := where.Build(`SELECT COUNT(*) FROM risk_prediction`, "")
	if err := r.db.GetContext(ctx, &total, countQuery.Query, countQuery.Args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count risk predictions: %w", err)
	}

	limit := where.Next(pageSize)
	offset := where.Next(utils.Offset(page, pageSize))
	listQuery := where.Build(
		`SELECT id, region_id, prediction_date, risk_score, confidence, factors, created_at FROM risk_prediction`,
		fmt.Sprintf(` ORDER BY prediction_date DESC, created_at DESC LIMIT %s OFFSET %s`, limit, offset))

	predictions := []models.RiskPrediction{}
	if err := r.db.SelectContext(ctx, &predictions, listQuery.Query, listQuery.Args...); err != nil {
		slog.Error("Failed to list risk predictions", "error", err)
		return nil, 0, fmt.Errorf("failed to list risk predictions: %w", err)
	}
	return predictions, total, nil
}

// ListByRegionInRange returns a region's predictions with prediction_date in [start, end].
func (r *RiskPredictionRepository) ListByRegionInRange(ctx context.Context, regionID uuid.UUID, start, end time.Time) ([]models.RiskPrediction, error) {
	query := `
		SELECT id, region_id, prediction_date, risk_score, confidence, factors, created_at
		FROM risk_prediction
		WHERE region_id = $1 AND prediction_date >= $2 AND prediction_date <= $3
		ORDER BY prediction_date`

	predictions := []models.RiskPrediction{}
	if err := r.db.SelectContext(ctx, &predictions, query, regionID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list risk predictions for region: %w", err)
	}
	return predictions, nil
}
