package handlers

import (
	"context"
	"net/http"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, caller models.Caller) (*models.User, error)
	AssignRole(ctx context.Context, caller models.Caller, userID uuid.UUID, role models.Role) error
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type assignRoleRequest struct {
	Role models.Role `json:"role"`
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	authGroup := router.Group("/auth")
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)
}

func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/auth/me", h.Me)
	router.Put("/users/:id/role", h.AssignRole)
}

func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	resp, err := h.authService.Register(c.Context(), req)
	if err != nil {
		return respondError(c, err, "register user")
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(resp))
}

func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	resp, err := h.authService.Login(c.Context(), req)
	if err != nil {
		return respondError(c, err, "log in")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(resp))
}

func (h *AuthHandler) Me(c fiber.Ctx) error {
	user, err := h.authService.Me(c.Context(), callerFrom(c))
	if err != nil {
		return respondError(c, err, "load current user")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(user))
}

func (h *AuthHandler) AssignRole(c fiber.Ctx) error {
	userID, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err, "assign role")
	}

	var req assignRoleRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "INVALID_REQUEST", "Invalid request body")
	}

	if err := h.authService.AssignRole(c.Context(), callerFrom(c), userID, req.Role); err != nil {
		return respondError(c, err, "assign role")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{
		"user_id": userID,
		"role":    req.Role,
	}))
}
