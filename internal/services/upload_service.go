package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

const MaxUploadSize = 50 << 20

type UploadService struct {
	uploads      UploadStore
	regions      RegionStore
	observations *ObservationService
	aggregation  *AggregationService
	storage      ObjectStorage
	publisher    EventPublisher
	bucket       string
	now          func() time.Time
}

func NewUploadService(
	uploads UploadStore,
	regions RegionStore,
	observations *ObservationService,
	aggregation *AggregationService,
	storage ObjectStorage,
	publisher EventPublisher,
	bucket string,
) *UploadService {
	return &UploadService{
		uploads:      uploads,
		regions:      regions,
		observations: observations,
		aggregation:  aggregation,
		storage:      storage,
		publisher:    publisher,
		bucket:       bucket,
		now:          time.Now,
	}
}

// ============================================================================
// SUBMISSION
// ============================================================================

// Submit stores the raw file and queues it for processing. The returned upload is pending.
func (s *UploadService) Submit(ctx context.Context, caller models.Caller, regionID uuid.UUID, fileName string, data []byte) (*models.DataUpload, error) {
	if !caller.Can(models.CapUploadData) {
		return nil, &models.ForbiddenError{Capability: models.CapUploadData}
	}
	if regionID == uuid.Nil {
		return nil, models.NewValidationError("region_id", "is required")
	}
	fileType, err := detectFileType(fileName)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("file", "is empty")
	}
	if len(data) > MaxUploadSize {
		return nil, models.NewValidationError("file", "exceeds the 50MB limit")
	}
	if _, err := s.regions.GetByID(ctx, regionID); err != nil {
		return nil, err
	}

	upload := &models.DataUpload{
		ID:         uuid.New(),
		FileType:   fileType,
		RegionID:   regionID,
		UploadedBy: caller.UserID,
		Status:     models.UploadStatusPending,
	}
	upload.FileKey = fmt.Sprintf("uploads/%s/%s", upload.ID, path.Base(fileName))

	if err := s.storage.UploadBytes(ctx, s.bucket, upload.FileKey, data, contentTypeFor(fileType)); err != nil {
		slog.Error("Failed to store upload file", "upload_id", upload.ID, "error", err)
		return nil, fmt.Errorf("failed to store upload file: %w", err)
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		return nil, err
	}

	evt := models.UploadReceivedEvent{
		UploadID:   upload.ID,
		FileKey:    upload.FileKey,
		FileType:   upload.FileType,
		UploadedBy: upload.UploadedBy,
		Timestamp:  s.now(),
	}
	if err := s.publisher.PublishUploadReceived(ctx, evt); err != nil {
		slog.Error("Failed to queue upload for processing", "upload_id", upload.ID, "error", err)
		return nil, fmt.Errorf("failed to queue upload: %w", err)
	}

	slog.Info("Upload accepted",
		"upload_id", upload.ID,
		"file_type", upload.FileType,
		"region_id", regionID,
		"uploaded_by", caller.UserID)
	return upload, nil
}

func detectFileType(fileName string) (models.FileType, error) {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".csv":
		return models.FileTypeCSV, nil
	case ".geojson", ".json":
		return models.FileTypeGeoJSON, nil
	}
	return "", models.NewValidationError("file", "must be a .csv or .geojson file")
}

func contentTypeFor(fileType models.FileType) string {
	if fileType == models.FileTypeCSV {
		return "text/csv"
	}
	return "application/geo+json"
}

// ============================================================================
// PROCESSING
// ============================================================================

// Process parses a stored upload and ingests every valid row as its uploader.
// Rejected rows are recorded on the upload; only an unreadable file fails it.
func (s *UploadService) Process(ctx context.Context, uploadID uuid.UUID) error {
	upload, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload.Status != models.UploadStatusPending {
		slog.Info("Upload already handled, skipping", "upload_id", uploadID, "status", upload.Status)
		return nil
	}

	upload.Status = models.UploadStatusProcessing
	if err := s.uploads.UpdateProgress(ctx, upload); err != nil {
		return err
	}

	rows, err := s.readRows(ctx, upload)
	if err != nil {
		slog.Error("Upload could not be parsed", "upload_id", uploadID, "error", err)
		upload.Status = models.UploadStatusFailed
		upload.Errors = utils.JSONList{models.UploadRowError{Message: err.Error()}.AsMap()}
		return s.uploads.UpdateProgress(ctx, upload)
	}

	// Uploads were authorised at submission, so rows are ingested without a second role check.
	uploader := models.Caller{UserID: upload.UploadedBy, Role: models.RoleResearcher}
	upload.TotalRecords = len(rows)
	upload.Errors = utils.JSONList{}

	for _, row := range rows {
		if row.Err != nil {
			upload.Errors = append(upload.Errors, row.Err.AsMap())
			continue
		}
		if _, err := s.observations.ingest(ctx, uploader, row.Input); err != nil {
			upload.Errors = append(upload.Errors, rowErrorFrom(row.Row, err).AsMap())
			continue
		}
		upload.ProcessedRecords++
	}

	upload.Status = models.UploadStatusCompleted
	if err := s.uploads.UpdateProgress(ctx, upload); err != nil {
		return err
	}

	s.aggregation.Invalidate(ctx)
	slog.Info("Upload processed",
		"upload_id", uploadID,
		"total", upload.TotalRecords,
		"processed", upload.ProcessedRecords,
		"rejected", len(upload.Errors))
	return nil
}

func (s *UploadService) readRows(ctx context.Context, upload *models.DataUpload) ([]uploadRow, error) {
	reader, err := s.storage.GetFile(ctx, s.bucket, upload.FileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upload file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}
	return parseUpload(upload.FileType, data, upload.RegionID)
}

func rowErrorFrom(row int, err error) models.UploadRowError {
	rowErr := models.UploadRowError{Row: row, Message: err.Error()}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		rowErr.Field = ve.Field
		rowErr.Message = ve.Reason
	}
	return rowErr
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

func (s *UploadService) List(ctx context.Context, caller models.Caller, page, pageSize int) ([]models.DataUpload, int, error) {
	if caller.Can(models.CapViewAllUploads) {
		return s.uploads.List(ctx, nil, page, pageSize)
	}
	return s.uploads.List(ctx, &caller.UserID, page, pageSize)
}

// Status reports progress of an upload owned by caller, or any upload for admins.
func (s *UploadService) Status(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.DataUpload, error) {
	upload, err := s.uploads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload.UploadedBy != caller.UserID && !caller.Can(models.CapViewAllUploads) {
		return nil, models.NewNotFoundError("upload", id.String())
	}
	return upload, nil
}
