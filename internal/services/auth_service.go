package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	// bcrypt rejects anything longer
	maxPasswordBytes = 72
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	users      UserStore
	jwt        *JWTService
	adminEmail string
}

func NewAuthService(users UserStore, jwtService *JWTService, bootstrapAdminEmail string) *AuthService {
	return &AuthService{
		users:      users,
		jwt:        jwtService,
		adminEmail: normalizeEmail(bootstrapAdminEmail),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a public account, or an admin account for the bootstrap email.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.NewValidationError("email", "must be a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, models.NewValidationError("password", "must be at least 8 characters")
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, models.NewValidationError("password", "must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := models.RolePublic
	if s.adminEmail != "" && email == s.adminEmail {
		role = models.RoleAdmin
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Organization: strings.TrimSpace(req.Organization),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", user.ID, "role", user.Role)

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("Failed login attempt", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, caller models.Caller) (*models.User, error) {
	return s.users.GetByID(ctx, caller.UserID)
}

// AssignRole changes another user's role. Admin only.
func (s *AuthService) AssignRole(ctx context.Context, caller models.Caller, userID uuid.UUID, role models.Role) error {
	if !caller.Can(models.CapManageUsers) {
		return &models.ForbiddenError{Capability: models.CapManageUsers}
	}
	if !role.IsValid() {
		return models.NewValidationError("role", "must be one of admin, researcher, public")
	}
	return s.users.UpdateRole(ctx, userID, role)
}

func (s *AuthService) VerifyToken(token string) (models.Caller, error) {
	claims, err := s.jwt.VerifyToken(token)
	if err != nil {
		return models.Caller{}, err
	}
	return CallerFromClaims(claims)
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}
