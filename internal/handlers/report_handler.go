package handlers

import (
	"context"
	"net/http"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ReportService interface {
	Generate(ctx context.Context, caller models.Caller, req models.GenerateReportRequest) (*models.AnalysisReport, error)
	List(ctx context.Context, caller models.Caller, page, pageSize int) ([]models.AnalysisReport, int, error)
	GetByID(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.AnalysisReport, error)
	DownloadURL(ctx context.Context, caller models.Caller, id uuid.UUID) (string, error)
	Delete(ctx context.Context, caller models.Caller, id uuid.UUID) error
}

type ReportHandler struct {
	reportService ReportService
	pageSize      int
}

func NewReportHandler(reportService ReportService, pageSize int) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		pageSize:      normalizePageSize(pageSize),
	}
}

func (h *ReportHandler) RegisterRoutes(router fiber.Router) {
	reportGroup := router.Group("/reports")
	reportGroup.Post("/generate", h.GenerateReport)
	reportGroup.Get("/", h.ListReports)
	reportGroup.Get("/:id/download", h.DownloadReport)
	reportGroup.Get("/:id", h.GetReport)
	reportGroup.Delete("/:id", h.DeleteReport)
}

func (h *ReportHandler) GenerateReport(c fiber.Ctx) error {
	var req models.GenerateReportRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	report, err := h.reportService.Generate(c.Context(), callerFrom(c), req)
	if err != nil {
		return respondError(c, err, "generate report")
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(report))
}

func (h *ReportHandler) ListReports(c fiber.Ctx) error {
	page, pageSize, err := pageParams(c, h.pageSize)
	if err != nil {
		return respondError(c, err, "list reports")
	}

	reports, total, err := h.reportService.List(c.Context(), callerFrom(c), page, pageSize)
	if err != nil {
		return respondError(c, err, "list reports")
	}
	return c.Status(http.StatusOK).JSON(utils.CreatePagedResponse(reports, page, pageSize, total))
}

func (h *ReportHandler) GetReport(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "get report")
	}

	report, err := h.reportService.GetByID(c.Context(), callerFrom(c), id)
	if err != nil {
		return respondError(c, err, "get report")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(report))
}

// DownloadReport redirects to a presigned object storage URL unless ?redirect=false.
func (h *ReportHandler) DownloadReport(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "download report")
	}

	url, err := h.reportService.DownloadURL(c.Context(), callerFrom(c), id)
	if err != nil {
		return respondError(c, err, "download report")
	}
	if c.Query("redirect") == "false" {
		return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{"url": url}))
	}
	return c.Redirect().Status(http.StatusFound).To(url)
}

func (h *ReportHandler) DeleteReport(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "delete report")
	}

	if err := h.reportService.Delete(c.Context(), callerFrom(c), id); err != nil {
		return respondError(c, err, "delete report")
	}
	return c.SendStatus(http.StatusNoContent)
}
