package handler

import (
	"adventure-server/auth/internal/service"
	sharedMiddleware "adventure-server/shared/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.Named("AuthHandler"),
	}
}

// RegisterRoutes mounts the /auth group. Logout and /auth/me require an
// access token that is still present in the token store.
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	requireAuth := sharedMiddleware.GinAuth(h.verifyAccess, h.logger)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", requireAuth, h.logout)
		authGroup.GET("/me", requireAuth, h.getMe)
	}
}
