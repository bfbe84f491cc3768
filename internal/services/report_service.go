package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

// maxReportObservations bounds how many raw rows are embedded in a report body.
const maxReportObservations = 5000

type ReportService struct {
	reports       ReportStore
	regions       RegionStore
	observations  ObservationStore
	predictions   PredictionStore
	storage       ObjectStorage
	publisher     EventPublisher
	bucket        string
	presignExpiry time.Duration
	now           func() time.Time
}

func NewReportService(
	reports ReportStore,
	regions RegionStore,
	observations ObservationStore,
	predictions PredictionStore,
	storage ObjectStorage,
	publisher EventPublisher,
	bucket string,
	presignExpiry time.Duration,
) *ReportService {
	return &ReportService{
		reports:       reports,
		regions:       regions,
		observations:  observations,
		predictions:   predictions,
		storage:       storage,
		publisher:     publisher,
		bucket:        bucket,
		presignExpiry: presignExpiry,
		now:           time.Now,
	}
}

// ============================================================================
// CREATE OPERATIONS
// ============================================================================

// Generate renders a report for caller and stores the file in object storage.
func (s *ReportService) Generate(ctx context.Context, caller models.Caller, req models.GenerateReportRequest) (*models.AnalysisReport, error) {
	if !caller.Can(models.CapGenerateReports) {
		return nil, &models.ForbiddenError{Capability: models.CapGenerateReports}
	}
	report, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	region, err := s.regions.GetByID(ctx, report.RegionID)
	if err != nil {
		return nil, err
	}

	report.Title = fmt.Sprintf("%s Report for %s", report.ReportType.DisplayName(), region.Name)
	report.GeneratedBy = caller.UserID
	report.GeneratedAt = s.now()

	content, err := s.collectContent(ctx, *report, *region)
	if err != nil {
		return nil, err
	}
	body, err := RenderReport(content, report.Format)
	if err != nil {
		return nil, err
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	fileKey := fmt.Sprintf("reports/%s/%s.%s", report.RegionID, report.ID, report.Format)
	if err := s.storage.UploadBytes(ctx, s.bucket, fileKey, body, report.Format.ContentType()); err != nil {
		slog.Error("Failed to store report file", "report_id", report.ID, "error", err)
		s.discard(ctx, report.ID, "")
		return nil, fmt.Errorf("failed to store report file: %w", err)
	}
	if err := s.reports.SetFileKey(ctx, report.ID, fileKey); err != nil {
		s.discard(ctx, report.ID, fileKey)
		return nil, err
	}
	report.FileKey = &fileKey

	slog.Info("Report generated",
		"report_id", report.ID,
		"region_id", report.RegionID,
		"type", report.ReportType,
		"format", report.Format,
		"observations", len(content.Observations))

	if s.publisher != nil {
		evt := models.ReportGeneratedEvent{
			ReportID:    report.ID,
			RegionID:    report.RegionID,
			ReportType:  report.ReportType,
			Format:      report.Format,
			FileKey:     fileKey,
			GeneratedBy: caller.UserID,
			Timestamp:   report.GeneratedAt,
		}
		if err := s.publisher.PublishReportGenerated(ctx, evt); err != nil {
			slog.Warn("Failed to publish report event", "report_id", report.ID, "error", err)
		}
	}
	return report, nil
}

// discard removes a report row whose file never made it to storage, and the file if it did.
func (s *ReportService) discard(ctx context.Context, id uuid.UUID, fileKey string) {
	if fileKey != "" {
		if err := s.storage.DeleteFile(ctx, s.bucket, fileKey); err != nil {
			slog.Warn("Failed to delete orphaned report file", "report_id", id, "file_key", fileKey, "error", err)
		}
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		slog.Error("Failed to delete report without file", "report_id", id, "error", err)
	}
}

func (s *ReportService) validateRequest(req models.GenerateReportRequest) (*models.AnalysisReport, error) {
	if req.RegionID == nil || *req.RegionID == uuid.Nil {
		return nil, models.NewValidationError("region_id", "is required")
	}
	if !req.ReportType.IsValid() {
		return nil, models.NewValidationError("report_type", "must be one of risk_assessment, trend_analysis, comparative, prediction")
	}
	format := req.Format
	if format == "" {
		format = models.ReportFormatPDF
	}
	if !format.IsValid() {
		return nil, models.NewValidationError("format", "must be one of pdf, csv, json")
	}

	start, err := time.Parse(utils.DateLayout, req.StartDate)
	if err != nil {
		return nil, models.NewValidationError("start_date", "must be formatted as YYYY-MM-DD")
	}
	end, err := time.Parse(utils.DateLayout, req.EndDate)
	if err != nil {
		return nil, models.NewValidationError("end_date", "must be formatted as YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, models.NewValidationError("end_date", "end_date must not be before start_date")
	}

	params := utils.JSONMap{}
	for k, v := range req.Parameters {
		params[k] = v
	}

	return &models.AnalysisReport{
		RegionID:   *req.RegionID,
		ReportType: req.ReportType,
		StartDate:  start,
		EndDate:    end,
		Format:     format,
		Parameters: params,
		IsPublic:   req.IsPublic,
	}, nil
}

// collectContent summarises the observations dated inside the report period
// and keeps up to maxReportObservations of them for the body.
func (s *ReportService) collectContent(ctx context.Context, report models.AnalysisReport, region models.Region) (models.ReportContent, error) {
	period := &models.DateRange{Start: &report.StartDate, End: &report.EndDate}

	var kept []models.EnvironmentalObservation
	inPeriod := func(yield func(models.EnvironmentalObservation, error) bool) {
		for obs, err := range s.observations.QueryByRegionAndWindow(ctx, region.ID, nil) {
			if err != nil {
				yield(models.EnvironmentalObservation{}, err)
				return
			}
			if !period.Includes(obs.Date) {
				continue
			}
			if len(kept) < maxReportObservations {
				kept = append(kept, obs)
			}
			if !yield(obs, nil) {
				return
			}
		}
	}

	stats, err := Summarize(region.ID, inPeriod)
	if err != nil {
		return models.ReportContent{}, err
	}
	stats.Since = &report.StartDate

	predictions, err := s.predictions.ListByRegionInRange(ctx, region.ID, report.StartDate, report.EndDate)
	if err != nil {
		return models.ReportContent{}, err
	}

	return models.ReportContent{
		Report:       report,
		Region:       region,
		Statistics:   stats,
		Observations: kept,
		Predictions:  predictions,
	}, nil
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

// List shows admins every report and everyone else their own plus public ones.
func (s *ReportService) List(ctx context.Context, caller models.Caller, page, pageSize int) ([]models.AnalysisReport, int, error) {
	if caller.Can(models.CapViewAllReports) {
		return s.reports.List(ctx, nil, page, pageSize)
	}
	return s.reports.List(ctx, &caller.UserID, page, pageSize)
}

// GetByID hides reports the caller may not see behind NotFound.
func (s *ReportService) GetByID(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.AnalysisReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeReport(caller, report) {
		return nil, models.NewNotFoundError("report", id.String())
	}
	return report, nil
}

// DownloadURL returns a time-limited link to the rendered file.
func (s *ReportService) DownloadURL(ctx context.Context, caller models.Caller, id uuid.UUID) (string, error) {
	report, err := s.GetByID(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if report.FileKey == nil {
		return "", models.NewNotFoundError("report file", id.String())
	}
	url, err := s.storage.GetPresignedURL(ctx, s.bucket, *report.FileKey, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign report file: %w", err)
	}
	return url, nil
}

func canSeeReport(caller models.Caller, report *models.AnalysisReport) bool {
	return report.IsPublic || report.GeneratedBy == caller.UserID || caller.Can(models.CapViewAllReports)
}

// ============================================================================
// DELETE OPERATIONS
// ============================================================================

func (s *ReportService) Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if report.GeneratedBy != caller.UserID && !caller.Can(models.CapViewAllReports) {
		if !report.IsPublic {
			return models.NewNotFoundError("report", id.String())
		}
		return &models.ForbiddenError{Capability: models.CapViewAllReports}
	}

	if report.FileKey != nil {
		if err := s.storage.DeleteFile(ctx, s.bucket, *report.FileKey); err != nil {
			slog.Warn("Failed to delete report file", "report_id", id, "file_key", *report.FileKey, "error", err)
		}
	}
	return s.reports.Delete(ctx, id)
}
