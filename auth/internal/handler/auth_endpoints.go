package handler

import (
	"context"
	"fmt"
	"net/http"
	"unicode"

	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}

	if len(req.Username) < minUsernameLength || len(req.Username) > maxUsernameLength {
		badRequest(c, fmt.Sprintf("Username length must be between %d and %d characters", minUsernameLength, maxUsernameLength))
		return
	}
	if !usernameRegex.MatchString(req.Username) {
		badRequest(c, "Username can only contain letters, numbers, underscores, and hyphens")
		return
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		badRequest(c, fmt.Sprintf("Password length must be between %d and %d characters", minPasswordLength, maxPasswordLength))
		return
	}
	if !hasLetterAndDigit(req.Password) {
		badRequest(c, "Password must contain at least one letter and one digit")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	registrationsTotal.Inc()

	c.JSON(http.StatusCreated, meResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		h.handleServiceError(c, err)
		return
	}
	loginsTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tokens, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		tokenVerificationsTotal.WithLabelValues("refresh", "failure").Inc()
		h.handleServiceError(c, err)
		return
	}
	refreshesTotal.Inc()
	tokenVerificationsTotal.WithLabelValues("refresh", "success").Inc()

	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) logout(c *gin.Context) {
	userID, accessUUID, ok := authContext(c)
	if !ok {
		h.handleServiceError(c, fmt.Errorf("auth context missing on logout"))
		return
	}

	// The body is optional; a missing or empty one only revokes the access token.
	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	if err := h.authService.Logout(c.Request.Context(), userID, accessUUID, req.RefreshToken); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *AuthHandler) getMe(c *gin.Context) {
	userID, _, ok := authContext(c)
	if !ok {
		h.handleServiceError(c, fmt.Errorf("auth context missing on /me"))
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, meResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

// verifyAccess is the TokenVerifier used by the auth middleware.
func (h *AuthHandler) verifyAccess(ctx context.Context, token string) (*models.Claims, error) {
	claims, err := h.authService.VerifyAccessToken(ctx, token)
	if err != nil {
		tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
		return nil, err
	}
	tokenVerificationsTotal.WithLabelValues("access", "success").Inc()
	return claims, nil
}

func authContext(c *gin.Context) (uuid.UUID, string, bool) {
	rawID, exists := c.Get(string(models.UserContextKey))
	if !exists {
		return uuid.Nil, "", false
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, "", false
	}
	accessUUID := c.GetString(string(models.AccessUUIDContextKey))
	return userID, accessUUID, accessUUID != ""
}

func hasLetterAndDigit(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}
