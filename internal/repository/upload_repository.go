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

type UploadRepository struct {
	db *sqlx.DB
}

func NewUploadRepository(db *sqlx.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

const uploadColumns = `
	id, file_key, file_type, region_id, uploaded_by, status,
	processed_records, total_records, errors, created_at, completed_at`

func (r *UploadRepository) Create(ctx context.Context, upload *models.DataUpload) error {
	if upload.ID == uuid.Nil {
		upload.ID = uuid.New()
	}
	upload.CreatedAt = time.Now()
	if upload.Status == "" {
		upload.Status = models.UploadStatusPending
	}
	if upload.Errors == nil {
		upload.Errors = utils.JSONList{}
	}

	query := `
		INSERT INTO data_upload (` + uploadColumns + `) VALUES (
			:id, :file_key, :file_type, :region_id, :uploaded_by, :status,
			:processed_records, :total_records, :errors, :created_at, :completed_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, upload); err != nil {
		err = translateError(err, "upload", upload.ID.String())
		if models.IsNotFound(err) {
			return err
		}
		slog.Error("Failed to create upload", "id", upload.ID, "error", err)
		return fmt.Errorf("failed to create upload: %w", err)
	}

	slog.Info("Created upload", "id", upload.ID, "file_type", upload.FileType, "uploaded_by", upload.UploadedBy)
	return nil
}

func (r *UploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataUpload, error) {
	var upload models.DataUpload
	query := `SELECT ` + uploadColumns + ` FROM data_upload WHERE id = $1`

	if err := r.db.GetContext(ctx, &upload, query, id); err != nil {
		err = translateError(err, "upload", id.String())
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return &upload, nil
}

// List returns uploads newest first. A nil owner lists every upload.
func (r *UploadRepository) List(ctx context.Context, owner *uuid.UUID, page, pageSize int) ([]models.DataUpload, int, error) {
	where := utils.NewWhereBuilder()
	if owner != nil {
		where.Add("uploaded_by = ?", *owner)
	}

	var total int
	countQuery := where.Build(`SELECT COUNT(*) FROM data_upload`, "")
	if err := r.db.GetContext(ctx, &total, countQuery.Query, countQuery.Args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count uploads: %w", err)
	}

	limit := where.Next(pageSize)
	offset := where.Next(utils.Offset(page, pageSize))
	listQuery := where.Build(`SELECT `+uploadColumns+` FROM data_upload`,
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %s OFFSET %s`, limit, offset))

	uploads := []models.DataUpload{}
	if err := r.db.SelectContext(ctx, &uploads, listQuery.Query, listQuery.Args...); err != nil {
		slog.Error("Failed to list uploads", "error", err)
		return nil, 0, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, total, nil
}

// UpdateProgress persists status, counters and errors. completed_at is set once the status is terminal.
func (r *UploadRepository) UpdateProgress(ctx context.Context, upload *models.DataUpload) error {
	if upload.Errors == nil {
		upload.Errors = utils.JSONList{}
	}
	if upload.Status == models.UploadStatusCompleted || upload.Status == models.UploadStatusFailed {
		now := time.Now()
		upload.CompletedAt = &now
	}

	query := `
		UPDATE data_upload SET
			status = :status,
			processed_records = :processed_records,
			total_records = :total_records,
			errors = :errors,
			completed_at = :completed_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, upload)
	if err != nil {
		slog.Error("Failed to update upload progress", "id", upload.ID, "error", err)
		return fmt.Errorf("failed to update upload: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("upload", upload.ID.String())
	}
	return nil
}
