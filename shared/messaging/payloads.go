package messaging

import (
	"github.com/google/uuid"
)

// AvatarTaskPayload asks the image generator for a character portrait.
type AvatarTaskPayload struct {
	TaskID      string    `json:"taskId"`
	UserID      uuid.UUID `json:"userId"`
	CharacterID uuid.UUID `json:"characterId"`
	Prompt      string    `json:"prompt"`
	Size        string    `json:"size,omitempty"` // e.g. "1024x1024"; empty means the worker default
}

// AvatarResultPayload reports the outcome of an AvatarTaskPayload.
type AvatarResultPayload struct {
	TaskID       string    `json:"taskId"`
	CharacterID  uuid.UUID `json:"characterId"`
	Success      bool      `json:"success"`
	AvatarRef    string    `json:"avatarRef,omitempty"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
}
