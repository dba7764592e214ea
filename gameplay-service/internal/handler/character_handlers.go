package handler

import (
	"fmt"
	"net/http"

	"adventure-server/gameplay-service/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *GameplayHandler) createCharacter(c echo.Context) error {
	var req createCharacterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return h.handleServiceError(c, err)
	}
	character, err := h.characters.Create(c.Request().Context(), actorFrom(c), service.CreateCharacterRequest{
		Name:   req.Name,
		Class:  req.Class,
		Race:   req.Race,
		Gender: req.Gender,
	})
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, character)
}

func (h *GameplayHandler) listCharacters(c echo.Context) error {
	characters, err := h.characters.List(c.Request().Context(), actorFrom(c))
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, characters)
}

func (h *GameplayHandler) getCharacter(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	character, err := h.characters.Get(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, character)
}

func (h *GameplayHandler) deleteCharacter(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	if err := h.characters.Delete(c.Request().Context(), actorFrom(c), id); err != nil {
		return h.handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// exportCharacter serves the build document as a downloadable JSON file.
func (h *GameplayHandler) exportCharacter(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	export, err := h.characters.Export(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	name := ""
	if export.Build != nil {
		name = export.Build.Name
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, attachmentName(name, ".json")))
	return c.JSON(http.StatusOK, export)
}

func (h *GameplayHandler) exportCharacterPDF(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	pdf, character, err := h.characters.ExportPDF(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, attachmentName(character.Name, ".pdf")))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func (h *GameplayHandler) listAdventures(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return badID(c)
	}
	adventures, err := h.progression.ListAdventures(c.Request().Context(), actorFrom(c), id)
	if err != nil {
		return h.handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, adventures)
}
