package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxChoices is the number of choice slots on a scenario node.
const MaxChoices = 4

// ChoiceSlot is one of the four fixed option positions, mapped to choice indices 1 to 4.
type ChoiceSlot int

const (
	SlotTopLeft     ChoiceSlot = 1
	SlotBottomLeft  ChoiceSlot = 2
	SlotTopRight    ChoiceSlot = 3
	SlotBottomRight ChoiceSlot = 4
)

var slotNames = map[ChoiceSlot]string{
	SlotTopLeft:     "top-left",
	SlotBottomLeft:  "bottom-left",
	SlotTopRight:    "top-right",
	SlotBottomRight: "bottom-right",
}

// String returns the positional name of the slot.
func (s ChoiceSlot) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return "slot(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is one of the four slots.
func (s ChoiceSlot) Valid() bool {
	return s >= SlotTopLeft && s <= SlotBottomRight
}

// ParseChoiceSlot accepts a positional name ("top-left") or a choice index ("1").
func ParseChoiceSlot(s string) (ChoiceSlot, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for slot, name := range slotNames {
		if v == name || v == strings.ReplaceAll(name, "-", "_") {
			return slot, nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && ChoiceSlot(n).Valid() {
		return ChoiceSlot(n), nil
	}
	return 0, fmt.Errorf("%w: unknown slot %q", ErrInvalidChoice, s)
}

// ScenarioChoice is the content of one slot. An empty Label means the slot is absent.
type ScenarioChoice struct {
	Label        string    `json:"label,omitempty"`
	ResultText   string    `json:"result,omitempty"`
	Delta        StatDelta `json:"delta,omitempty"`
	NextSequence *int      `json:"next,omitempty"` // nil marks a terminal choice
}

// Defined reports whether the slot carries a choice.
func (c ScenarioChoice) Defined() bool {
	return strings.TrimSpace(c.Label) != ""
}

// ScenarioNode is one step of an adventure's narrative graph.
type ScenarioNode struct {
	ID          uuid.UUID                  `db:"id" json:"id"`
	AdventureID uuid.UUID                  `db:"adventure_id" json:"adventureId"`
	Sequence    int                        `db:"sequence" json:"sequence"`
	Prompt      string                     `db:"prompt" json:"prompt"`
	Choices     [MaxChoices]ScenarioChoice `json:"choices"`
}

// Choice returns the choice at slot and whether it is defined.
func (n *ScenarioNode) Choice(slot ChoiceSlot) (ScenarioChoice, bool) {
	if !slot.Valid() {
		return ScenarioChoice{}, false
	}
	c := n.Choices[int(slot)-1]
	return c, c.Defined()
}
