package models

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a private type so keys never collide with other packages.
type contextKey string

const (
	// UserContextKey holds the authenticated user's uuid.UUID.
	UserContextKey contextKey = "userID"
	// AccessUUIDContextKey holds the JTI of the access token used for the request.
	AccessUUIDContextKey contextKey = "accessUUID"
)

// GetUserIDFromContext extracts the UserID placed by the auth middleware.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}
