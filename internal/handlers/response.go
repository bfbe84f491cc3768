package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"monitoring-service/internal/models"
	"monitoring-service/internal/services"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const callerLocalKey = "caller"

// respondError maps domain errors onto HTTP statuses and the shared error envelope.
func respondError(c fiber.Ctx, err error, op string) error {
	var (
		validationErr  *models.ValidationError
		notFoundErr    *models.NotFoundError
		conflictErr    *models.ConflictError
		forbiddenErr   *models.ForbiddenError
		computationErr *models.ComputationError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateFieldErrorResponse("VALIDATION_ERROR", validationErr.Field, validationErr.Reason))
	case errors.As(err, &notFoundErr):
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", notFoundErr.Error()))
	case errors.As(err, &conflictErr):
		return c.Status(http.StatusConflict).JSON(
			utils.CreateErrorResponse("CONFLICT", conflictErr.Error()))
	case errors.As(err, &forbiddenErr):
		return c.Status(http.StatusForbidden).JSON(
			utils.CreateErrorResponse("FORBIDDEN", "You do not have permission to perform this action"))
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", err.Error()))
	case errors.As(err, &computationErr):
		slog.Error("Computation failed", "op", op, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("COMPUTATION_FAILED", "Failed to compute result"))
	}

	slog.Error("Request failed", "op", op, "path", c.Path(), "error", err)
	return c.Status(http.StatusInternalServerError).JSON(
		utils.CreateErrorResponse("INTERNAL_ERROR", "Failed to "+op))
}

func badRequest(c fiber.Ctx, code, message string) error {
	return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse(code, message))
}

func callerFrom(c fiber.Ctx) models.Caller {
	caller, _ := c.Locals(callerLocalKey).(models.Caller)
	return caller
}

func uuidParam(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, models.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

func optionalUUIDQuery(c fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.NewValidationError(name, "must be a valid UUID")
	}
	return &id, nil
}

// pageParams reads page and page_size. page_size above utils.MaxPageSize is rejected.
func pageParams(c fiber.Ctx, defaultPageSize int) (int, int, error) {
	page, err := utils.ParsePositiveInt("page", c.Query("page"), 1)
	if err != nil {
		return 0, 0, models.NewValidationError("page", err.Error())
	}
	pageSize, err := utils.ParsePositiveInt("page_size", c.Query("page_size"), defaultPageSize)
	if err != nil {
		return 0, 0, models.NewValidationError("page_size", err.Error())
	}
	if pageSize > utils.MaxPageSize {
		return 0, 0, models.NewValidationError("page_size", fmt.Sprintf("must not exceed %d", utils.MaxPageSize))
	}
	return page, pageSize, nil
}

// normalizePageSize falls back to utils.DefaultPageSize for unusable configured sizes.
func normalizePageSize(pageSize int) int {
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return utils.DefaultPageSize
	}
	return pageSize
}

func requiredFloatQuery(c fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, models.NewValidationError(name, "is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, models.NewValidationError(name, "must be a number")
	}
	return v, nil
}
