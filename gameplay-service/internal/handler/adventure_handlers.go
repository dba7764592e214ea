package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"adventure-server/gameplay-service/internal/service"
	sharedModels "adventure-server/shared/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"

	// choicePendingTTL bounds how long a crashed attempt blocks retries of its key.
	choicePendingTTL = 30 * time.Second
)

// initializeAdventure starts a new adventure or resumes an existing one.
func (h *GameplayHandler) initializeAdventure(c echo.Context) error {
	var req initializeAdventureRequest
	if err := bindAndValidate(c, &req); err != nil {
		return h.handleServiceError(c, err)
	}
	session, err := h.progression.Initialize(c.Request().Context(), actorFrom(c), service.InitializeRequest{
		CharacterID:  req.CharacterID,
		AdventureID:  req.AdventureID,
		TemplateSlug: req.Template,
	})
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *GameplayHandler) getAdventure(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	session, err := h.progression.GetAdventure(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *GameplayHandler) deleteAdventure(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	if err := h.progression.DeleteAdventure(c.Request().Context(), actorFrom(c), id); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GameplayHandler) getScene(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	node, err := h.progression.RenderCurrentNode(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

// makeChoice applies a choice. With an Idempotency-Key header the first
// response is stored and replayed for retries of the same key.
func (h *GameplayHandler) makeChoice(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	var req choiceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return h.handleServiceError(c, err)
	}
	slot, err := sharedModels.ParseChoiceSlot(string(req.Slot))
	if err != nil {
		return h.handleServiceError(c, err)
	}

	ctx := c.Request().Context()
	actor := actorFrom(c)
	log := h.logger.With(zap.Stringer("adventureID", id), zap.Stringer("userID", actor.UserID))

	var storeKey string
	if key := c.Request().Header.Get(headerIdempotencyKey); key != "" && h.idempotency != nil && actor.Authenticated() {
		storeKey = actor.UserID.String() + ":" + id.String() + ":" + key
		reserved, err := h.idempotency.Reserve(ctx, storeKey, choicePendingTTL)
		switch {
		case err != nil:
			log.Warn("Idempotency reservation failed, processing choice anyway", zap.Error(err))
			storeKey = ""
		case !reserved:
			cached, found, err := h.idempotency.Get(ctx, storeKey)
			if err != nil {
				return h.handleServiceError(c, err)
			}
			if !found {
				// Reservation expired between the two calls.
				return h.handleServiceError(c, sharedModels.ErrRequestInProgress)
			}
			log.Info("Replaying stored choice response", zap.String("key", key))
			c.Response().Header().Set(headerReplayed, "true")
			return c.JSONBlob(http.StatusOK, cached)
		}
	}

	outcome, err := h.progression.Choose(ctx, actor, service.ChooseRequest{
		AdventureID:      id,
		Slot:             slot,
		ExpectedSequence: req.ExpectedSequence,
	})
	var body []byte
	if err == nil {
		body, err = json.Marshal(outcome)
	}
	if err != nil {
		if storeKey != "" {
			if relErr := h.idempotency.Release(context.WithoutCancel(ctx), storeKey); relErr != nil {
				log.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		return h.handleServiceError(c, err)
	}
	if storeKey != "" {
		if err := h.idempotency.Complete(context.WithoutCancel(ctx), storeKey, body, h.idempotencyTTL); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (h *GameplayHandler) listDecisions(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	decisions, err := h.progression.ListDecisions(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, decisions)
}
