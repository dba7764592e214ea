package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"adventure-server/gameplay-service/internal/scenarios"
	"adventure-server/gameplay-service/internal/service"
	"adventure-server/shared/interfaces"
	sharedMiddleware "adventure-server/shared/middleware"
	sharedModels "adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIError is the error body of every failed request.
type APIError struct {
	Message string `json:"message"`
}

// GameplayHandler serves the character and adventure API.
type GameplayHandler struct {
	characters     service.CharacterService
	progression    service.ProgressionService
	catalog        *scenarios.Catalog
	idempotency    interfaces.IdempotencyStore
	idempotencyTTL time.Duration
	verifier       sharedMiddleware.TokenVerifier
	logger         *zap.Logger
}

// NewGameplayHandler creates the handler. idempotency may be nil, in which
// case Idempotency-Key headers are ignored.
func NewGameplayHandler(
	characters service.CharacterService,
	progression service.ProgressionService,
	catalog *scenarios.Catalog,
	idempotency interfaces.IdempotencyStore,
	idempotencyTTL time.Duration,
	verifier sharedMiddleware.TokenVerifier,
	logger *zap.Logger,
) *GameplayHandler {
	return &GameplayHandler{
		characters:     characters,
		progression:    progression,
		catalog:        catalog,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		verifier:       verifier,
		logger:         logger.Named("GameplayHandler"),
	}
}

// RegisterRoutes registers every route on e.
func (h *GameplayHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authMiddleware := sharedMiddleware.EchoAuth(h.verifier, h.logger)

	e.GET("/templates", h.listTemplates, authMiddleware)

	characters := e.Group("/characters", authMiddleware)
	{
		characters.POST("", h.createCharacter)
		characters.GET("", h.listCharacters)
		characters.GET("/:id", h.getCharacter)
		characters.DELETE("/:id", h.deleteCharacter)
		characters.GET("/:id/export", h.exportCharacter)
		characters.GET("/:id/export.pdf", h.exportCharacterPDF)
		characters.GET("/:id/adventures", h.listAdventures)
	}

	adventures := e.Group("/adventures", authMiddleware)
	{
		adventures.POST("", h.initializeAdventure)
		adventures.GET("/:id", h.getAdventure)
		adventures.DELETE("/:id", h.deleteAdventure)
		adventures.GET("/:id/scene", h.getScene)
		adventures.POST("/:id/choice", h.makeChoice)
		adventures.GET("/:id/decisions", h.listDecisions)
	}
}

func (h *GameplayHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *GameplayHandler) listTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.List())
}

// --- helpers --- //

func actorFrom(c echo.Context) sharedModels.Actor {
	return sharedModels.ActorFromContext(c.Request().Context())
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// bindAndValidate decodes the body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid request body", sharedModels.ErrBadRequest)
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %w", sharedModels.ErrBadRequest, err)
	}
	return nil
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid id format"})
}

// attachmentName turns a character name into a safe file name.
func attachmentName(name, ext string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if clean == "" {
		clean = "character"
	}
	return clean + ext
}

func (h *GameplayHandler) handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, sharedModels.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, sharedModels.ErrTemplateNotFound),
		errors.Is(err, service.ErrProgressMissing),
		errors.Is(err, service.ErrNoBuildAvailable):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, sharedModels.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found or access denied"}
	case errors.Is(err, sharedModels.ErrInvalidChoice),
		errors.Is(err, sharedModels.ErrBadRequest),
		errors.Is(err, sharedModels.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, sharedModels.ErrStaleChoice),
		errors.Is(err, sharedModels.ErrAdventureCompleted),
		errors.Is(err, sharedModels.ErrRequestInProgress):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	default:
		h.logger.Error("Unhandled service error",
			zap.String("method", c.Request().Method), zap.String("path", c.Path()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}
