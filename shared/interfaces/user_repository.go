package interfaces

import (
	"context"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data persistence (e.g., PostgreSQL).
type UserRepository interface {
	// CreateUser inserts a new user into the database.
	// Returns models.ErrUserAlreadyExists or models.ErrEmailAlreadyExists on duplicates.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername returns models.ErrUserNotFound if the user does not exist.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetUserByEmail returns models.ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
