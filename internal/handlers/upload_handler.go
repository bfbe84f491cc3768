package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"monitoring-service/internal/models"
	"monitoring-service/internal/services"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type UploadService interface {
	Submit(ctx context.Context, caller models.Caller, regionID uuid.UUID, fileName string, data []byte) (*models.DataUpload, error)
	List(ctx context.Context, caller models.Caller, page, pageSize int) ([]models.DataUpload, int, error)
	Status(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.DataUpload, error)
}

type UploadHandler struct {
	uploadService UploadService
	pageSize      int
}

func NewUploadHandler(uploadService UploadService, pageSize int) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		pageSize:      normalizePageSize(pageSize),
	}
}

func (h *UploadHandler) RegisterRoutes(router fiber.Router) {
	uploadGroup := router.Group("/uploads")
	uploadGroup.Post("/", h.CreateUpload)
	uploadGroup.Get("/", h.ListUploads)
	uploadGroup.Get("/:id/status", h.GetUploadStatus)
}

// CreateUpload accepts a multipart "file" (csv or geojson) and a "region_id" form field.
// Processing happens asynchronously; poll the status endpoint for results.
func (h *UploadHandler) CreateUpload(c fiber.Ctx) error {
	regionID, err := uuid.Parse(c.FormValue("region_id"))
	if err != nil {
		return respondError(c, models.NewValidationError("region_id", "must be a valid UUID"), "upload file")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, models.NewValidationError("file", "is required"), "upload file")
	}
	if fileHeader.Size > services.MaxUploadSize {
		return respondError(c, models.NewValidationError("file", "exceeds the 50MB limit"), "upload file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, fmt.Errorf("failed to open uploaded file: %w", err), "upload file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxUploadSize+1))
	if err != nil {
		return respondError(c, fmt.Errorf("failed to read uploaded file: %w", err), "upload file")
	}

	upload, err := h.uploadService.Submit(c.Context(), callerFrom(c), regionID, fileHeader.Filename, data)
	if err != nil {
		return respondError(c, err, "upload file")
	}
	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(upload))
}

func (h *UploadHandler) ListUploads(c fiber.Ctx) error {
	page, pageSize, err := pageParams(c, h.pageSize)
	if err != nil {
		return respondError(c, err, "list uploads")
	}

	uploads, total, err := h.uploadService.List(c.Context(), callerFrom(c), page, pageSize)
	if err != nil {
		return respondError(c, err, "list uploads")
	}
	return c.Status(http.StatusOK).JSON(utils.CreatePagedResponse(uploads, page, pageSize, total))
}

func (h *UploadHandler) GetUploadStatus(c fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "get upload status")
	}

	upload, err := h.uploadService.Status(c.Context(), callerFrom(c), id)
	if err != nil {
		return respondError(c, err, "get upload status")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(upload))
}
