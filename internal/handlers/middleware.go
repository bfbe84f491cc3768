package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/gofiber/fiber/v3"
)

// TokenVerifier resolves a bearer token into the caller it was issued to.
type TokenVerifier interface {
	VerifyToken(token string) (models.Caller, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token and stores the caller in Locals.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(http.StatusUnauthorized).JSON(
				utils.CreateErrorResponse("UNAUTHORIZED", "Authorization bearer token is required"))
		}

		caller, err := m.verifier.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			slog.Warn("Rejected token", "path", c.Path(), "error", err)
			return c.Status(http.StatusUnauthorized).JSON(
				utils.CreateErrorResponse("UNAUTHORIZED", "Invalid or expired token"))
		}

		c.Locals(callerLocalKey, caller)
		return c.Next()
	}
}
