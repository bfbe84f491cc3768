package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, role, organization, created_at`

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	query := `
		INSERT INTO users (` + userColumns + `) VALUES (
			:id, :email, :password_hash, :first_name, :last_name, :role, :organization, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		err = translateError(err, "user", user.ID.String())
		if models.IsConflict(err) {
			return err
		}
		slog.Error("Failed to create user", "email", user.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		err = translateError(err, "user", email)
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		err = translateError(err, "user", id.String())
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	err := utils.ExecWithCheck(ctx, r.db, `UPDATE users SET role = $1 WHERE id = $2`, utils.ExecUpdate, role, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return models.NewNotFoundError("user", id.String())
	}
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	slog.Info("Updated user role", "id", id, "role", role)
	return nil
}
