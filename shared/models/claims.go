package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in Claims.TokenType.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents the JWT claims issued by the auth service and verified by
// every other service.
type Claims struct {
	UserID               uuid.UUID `json:"user_id"`
	TokenType            string    `json:"typ,omitempty"`
	jwt.RegisteredClaims           // Issuer, Subject, ExpiresAt, ID (JTI)...
}
