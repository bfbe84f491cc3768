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

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `
	id, title, report_type, region_id, start_date, end_date, format,
	generated_by, parameters, file_key, is_public, generated_at`

func (r *ReportRepository) Create(ctx context.Context, report *models.AnalysisReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.GeneratedAt = time.Now()
	if report.Parameters == nil {
		report.Parameters = utils.JSONMap{}
	}

	query := `
		INSERT INTO analysis_report (` + reportColumns + `) VALUES (
			:id, :title, :report_type, :region_id, :start_date, :end_date, :format,
			:generated_by, :parameters, :file_key, :is_public, :generated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		err = translateError(err, "report", report.ID.String())
		if models.IsNotFound(err) {
			return err
		}
		slog.Error("Failed to create report", "id", report.ID, "error", err)
		return fmt.Errorf("failed to create report: %w", err)
	}

	slog.Info("Created report", "id", report.ID, "region_id", report.RegionID, "format", report.Format)
	return nil
}

// SetFileKey records where the rendered report was stored.
func (r *ReportRepository) SetFileKey(ctx context.Context, id uuid.UUID, fileKey string) error {
	err := utils.ExecWithCheck(ctx, r.db,
		`UPDATE analysis_report SET file_key = $1 WHERE id = $2`, utils.ExecUpdate, fileKey, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return models.NewNotFoundError("report", id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to set report file: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisReport, error) {
	var report models.AnalysisReport
	query := `SELECT ` + reportColumns + ` FROM analysis_report WHERE id = $1`

	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		err = translateError(err, "report", id.String())
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// List returns reports newest first. A nil visibleTo lists everything; otherwise only
// that user's reports and public ones.
func (r *ReportRepository) List(ctx context.Context, visibleTo *uuid.UUID, page, pageSize int) ([]models.AnalysisReport, int, error) {
	where := utils.NewWhereBuilder()
	if visibleTo != nil {
		where.Add("(generated_by = ? OR is_public)", *visibleTo)
	}

	var total int
	countQuery := where.Build(`SELECT COUNT(*) FROM analysis_report`, "")
	if err := r.db.GetContext(ctx, &total, countQuery.Query, countQuery.Args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	limit := where.Next(pageSize)
	offset := where.Next(utils.Offset(page, pageSize))
	listQuery := where.Build(`SELECT `+reportColumns+` FROM analysis_report`,
		fmt.Sprintf(` ORDER BY generated_at DESC LIMIT %s OFFSET %s`, limit, offset))

	reports := []models.AnalysisReport{}
	if err := r.db.SelectContext(ctx, &reports, listQuery.Query, listQuery.Args...); err != nil {
		slog.Error("Failed to list reports", "error", err)
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

func (r *ReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := utils.ExecWithCheck(ctx, r.db, `DELETE FROM analysis_report WHERE id = $1`, utils.ExecDelete, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return models.NewNotFoundError("report", id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
