package middleware

import (
	"net/http"

	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinAuth is the gin counterpart of EchoAuth. The claims are stored under
// models.UserContextKey and models.AccessUUIDContextKey.
func GinAuth(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("GinAuth")
	return func(c *gin.Context) {
		out := authenticate(c.Request.Context(), verifier, c.GetHeader("Authorization"),
			log.With(zap.String("path", c.FullPath())))
		if out.claims == nil {
			c.AbortWithStatusJSON(out.status, models.ErrorResponse{Code: authErrorCode(out.status), Message: out.message})
			return
		}
		c.Request = c.Request.WithContext(models.WithUserID(c.Request.Context(), out.claims.UserID))
		c.Set(string(models.UserContextKey), out.claims.UserID)
		c.Set(string(models.AccessUUIDContextKey), out.claims.ID)
		c.Next()
	}
}

func authErrorCode(status int) int {
	if status == http.StatusUnauthorized {
		return models.ErrCodeUnauthorized
	}
	return models.ErrCodeInternal
}
