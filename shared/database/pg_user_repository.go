package database

import (
	"context"
	"errors"
	"fmt"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

const createUserQuery = `
INSERT INTO users (username, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, created_at, updated_at`

const selectUserColumns = `SELECT id, username, email, password_hash, created_at, updated_at FROM users`

// CreateUser inserts a new user into the database.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.logger.Debug("Creating user", zap.String("username", user.Username), zap.String("email", user.Email))
	err := r.db.QueryRow(ctx, createUserQuery, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pgErr, ok := isUniqueViolation(err); ok {
			logFields := []zap.Field{zap.String("username", user.Username), zap.String("email", user.Email)}
			switch pgErr.ConstraintName {
			case "users_email_key":
				r.logger.Warn("Attempted to create duplicate user by email", logFields...)
				return models.ErrEmailAlreadyExists
			default:
				r.logger.Warn("Attempted to create duplicate user", append(logFields, zap.String("constraint", pgErr.ConstraintName))...)
				return models.ErrUserAlreadyExists
			}
		}
		r.logger.Error("Failed to create user in postgres", zap.Error(err), zap.String("username", user.Username))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", zap.Stringer("userID", user.ID), zap.String("username", user.Username))
	return nil
}

// GetUserByUsername retrieves a user by their username.
func (r *pgUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username", username)
}

// GetUserByEmail retrieves a user by their email.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", email)
}

// GetUserByID retrieves a user by their ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, "id", id)
}

// getOne looks a user up by one column. column is never user input.
func (r *pgUserRepository) getOne(ctx context.Context, column string, value any) (*models.User, error) {
	query := selectUserColumns + ` WHERE ` + column + ` = $1`
	user := &models.User{}
	err := r.db.QueryRow(ctx, query, value).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("User not found", zap.String("by", column), zap.Any("value", value))
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user from postgres", zap.Error(err), zap.String("by", column))
		return nil, fmt.Errorf("failed to get user by %s from postgres: %w", column, err)
	}
	return user, nil
}
