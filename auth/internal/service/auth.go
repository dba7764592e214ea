package service

import (
	"context"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// AuthService registers users and issues, rotates and revokes their tokens.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.TokenDetails, error)
	// Logout revokes the access token identified by accessUUID and, when
	// refreshToken is a valid refresh token of the same user, that one too.
	Logout(ctx context.Context, userID uuid.UUID, accessUUID, refreshToken string) error
	// Refresh rotates a refresh token. Presenting a token that was already
	// rotated revokes every token of the user.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error)
	// VerifyAccessToken checks signature, expiry and that the token was not revoked.
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}
