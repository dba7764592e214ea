package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"adventure-server/shared/models"

	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token and returns its claims. Errors are
// models.ErrTokenInvalid, models.ErrTokenExpired or models.ErrTokenMalformed.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

// authOutcome is the framework-neutral result of checking an Authorization header.
type authOutcome struct {
	claims  *models.Claims
	message string
	status  int
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func authenticate(ctx context.Context, verifier TokenVerifier, header string, log *zap.Logger) authOutcome {
	if header == "" {
		log.Debug("Authorization header missing")
		return authOutcome{status: http.StatusUnauthorized, message: "Unauthorized: Missing token"}
	}
	token, ok := bearerToken(header)
	if !ok {
		log.Warn("Malformed Authorization header")
		return authOutcome{status: http.StatusUnauthorized, message: "Unauthorized: Malformed token header"}
	}

	claims, err := verifier(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenExpired):
			return authOutcome{status: http.StatusUnauthorized, message: "Unauthorized: Token expired"}
		case errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenNotFound):
			log.Debug("Token verification failed", zap.Error(err))
			return authOutcome{status: http.StatusUnauthorized, message: "Unauthorized: Invalid token"}
		}
		log.Error("Unexpected token verification error", zap.Error(err))
		return authOutcome{status: http.StatusInternalServerError, message: "Internal server error during token verification"}
	}
	return authOutcome{claims: claims}
}
