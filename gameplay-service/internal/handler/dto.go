package handler

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

type createCharacterRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	Class  string `json:"class" validate:"required,max=32"`
	Race   string `json:"race" validate:"required,max=32"`
	Gender string `json:"gender" validate:"required,max=32"`
}

type initializeAdventureRequest struct {
	CharacterID *uuid.UUID `json:"characterId" validate:"required_without=AdventureID"`
	AdventureID *uuid.UUID `json:"adventureId" validate:"required_without=CharacterID"`
	Template    string     `json:"template" validate:"omitempty,max=64"`
}

type choiceRequest struct {
	Slot             slotValue `json:"slot" validate:"required"`
	ExpectedSequence *int      `json:"expectedSequence" validate:"omitempty,min=1"`
}

// slotValue accepts a positional name ("top-left") or a choice index (1 or "1").
type slotValue string

func (s *slotValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = slotValue(str)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = slotValue(strconv.Itoa(n))
	return nil
}
