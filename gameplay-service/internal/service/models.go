package service

import (
	"strings"
	"time"

	"adventure-server/shared/models"

	"github.com/google/uuid"
)

// NamePlaceholder is replaced by the character's current name in prompts and
// result texts.
const NamePlaceholder = "{character.name}"

// InitializeRequest starts or resumes an adventure. Exactly one of the ids is
// expected; when both are set the adventure id wins.
type InitializeRequest struct {
	CharacterID  *uuid.UUID
	AdventureID  *uuid.UUID
	TemplateSlug string
}

// ChooseRequest picks a slot on the current node. ExpectedSequence, when set,
// must equal the node the client was looking at.
type ChooseRequest struct {
	AdventureID      uuid.UUID
	Slot             models.ChoiceSlot
	ExpectedSequence *int
}

// RenderedOption is one visible choice.
type RenderedOption struct {
	Slot  string `json:"slot"`
	Index int    `json:"index"`
	Label string `json:"label"`
}

// RenderedNode is a scenario node prepared for display.
type RenderedNode struct {
	AdventureID uuid.UUID        `json:"adventureId"`
	Sequence    int              `json:"sequence"`
	Prompt      string           `json:"prompt"`
	Options     []RenderedOption `json:"options"`
	Stats       models.Stats     `json:"stats"`
}

// AdventureSession is everything a client needs to show an adventure. Node is
// nil once the adventure has completed.
type AdventureSession struct {
	Adventure *models.Adventure      `json:"adventure"`
	Character *models.Character      `json:"character"`
	Progress  *models.ProgressRecord `json:"progress,omitempty"`
	Node      *RenderedNode          `json:"node,omitempty"`
}

// ChoiceOutcome is the result of one Choose call. Exactly one of Next and
// Export is set: Next while the adventure continues, Export once it completed.
type ChoiceOutcome struct {
	AdventureID  uuid.UUID           `json:"adventureId"`
	Slot         string              `json:"slot"`
	ResultText   string              `json:"resultText"`
	StatsBefore  models.Stats        `json:"statsBefore"`
	StatsAfter   models.Stats        `json:"statsAfter"`
	Decision     *models.Decision    `json:"decision"`
	Completed    bool                `json:"completed"`
	Next         *RenderedNode       `json:"next,omitempty"`
	Export       *models.BuildExport `json:"export,omitempty"`
	DisplayDelay time.Duration       `json:"-"`
	// DisplayDelayMs is DisplayDelay for JSON clients.
	DisplayDelayMs int64 `json:"displayDelayMs"`
}

// RenderNode substitutes the character name and drops undefined slots.
func RenderNode(node *models.ScenarioNode, characterName string, stats models.Stats) *RenderedNode {
	out := &RenderedNode{
		AdventureID: node.AdventureID,
		Sequence:    node.Sequence,
		Prompt:      substituteName(node.Prompt, characterName),
		Options:     make([]RenderedOption, 0, models.MaxChoices),
		Stats:       stats,
	}
	for i := 1; i <= models.MaxChoices; i++ {
		slot := models.ChoiceSlot(i)
		c, ok := node.Choice(slot)
		if !ok {
			continue
		}
		out.Options = append(out.Options, RenderedOption{
			Slot:  slot.String(),
			Index: i,
			Label: substituteName(c.Label, characterName),
		})
	}
	return out
}

func substituteName(text, name string) string {
	return strings.ReplaceAll(text, NamePlaceholder, name)
}
