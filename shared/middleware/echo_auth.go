package middleware

import (
	"adventure-server/shared/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EchoAuth rejects requests without a valid access token and stores the user
// id in both the request context and the echo context.
func EchoAuth(verifier TokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	log := logger.Named("EchoAuth")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			out := authenticate(req.Context(), verifier, req.Header.Get(echo.HeaderAuthorization),
				log.With(zap.String("path", c.Path())))
			if out.claims == nil {
				return c.JSON(out.status, map[string]string{"message": out.message})
			}

			ctx := models.WithUserID(req.Context(), out.claims.UserID)
			c.SetRequest(req.WithContext(ctx))
			c.Set(string(models.UserContextKey), out.claims.UserID)
			c.Set(string(models.AccessUUIDContextKey), out.claims.ID)
			return next(c)
		}
	}
}
