package models

import (
	"encoding/json"
	"fmt"
)

// BuildExport is the importer document: {"success": true, "build": {...}}.
type BuildExport struct {
	Success bool   `json:"success"`
	Build   *Build `json:"build"`
}

// NewBuildExport wraps b. A nil build yields success=false.
func NewBuildExport(b *Build) *BuildExport {
	return &BuildExport{Success: b != nil, Build: b}
}

// Build is a complete character sheet in the Pathbuilder 2e export shape.
type Build struct {
	Name                  string                `json:"name"`
	Class                 string                `json:"class"`
	DualClass             *string               `json:"dualClass"`
	Level                 int                   `json:"level"`
	Ancestry              string                `json:"ancestry"`
	Heritage              string                `json:"heritage"`
	Background            string                `json:"background"`
	Alignment             string                `json:"alignment"`
	Gender                string                `json:"gender"`
	Age                   string                `json:"age"`
	Deity                 string                `json:"deity"`
	Size                  int                   `json:"size"`
	SizeName              string                `json:"sizeName"`
	KeyAbility            string                `json:"keyability"`
	Languages             []string              `json:"languages"`
	Attributes            BuildAttributes       `json:"attributes"`
	Abilities             BuildAbilities        `json:"abilities"`
	Proficiencies         map[string]int        `json:"proficiencies"`
	Feats                 []Feat                `json:"feats"`
	Specials              []string              `json:"specials"`
	Lores                 []Lore                `json:"lores"`
	Equipment             []EquipmentItem       `json:"equipment"`
	SpecificProficiencies SpecificProficiencies `json:"specificProficiencies"`
	Weapons               []Weapon              `json:"weapons"`
	Money                 Money                 `json:"money"`
	Armor                 []Armor               `json:"armor"`
	SpellCasters          []SpellCaster         `json:"spellCasters"`
	Formula               []Formula             `json:"formula"`
	ACTotal               ACTotal               `json:"acTotal"`
	Pets                  []json.RawMessage     `json:"pets"`
}

type BuildAttributes struct {
	AncestryHP      int `json:"ancestryhp"`
	ClassHP         int `json:"classhp"`
	BonusHP         int `json:"bonushp"`
	BonusHPPerLevel int `json:"bonushpPerLevel"`
	Speed           int `json:"speed"`
	SpeedBonus      int `json:"speedBonus"`
}

type BuildAbilities struct {
	Str int `json:"str"`
	Dex int `json:"dex"`
	Con int `json:"con"`
	Int int `json:"int"`
	Wis int `json:"wis"`
	Cha int `json:"cha"`
}

type SpecificProficiencies struct {
	Trained   []string `json:"trained"`
	Expert    []string `json:"expert"`
	Master    []string `json:"master"`
	Legendary []string `json:"legendary"`
}

type Weapon struct {
	Name        string   `json:"name"`
	Qty         int      `json:"qty"`
	Prof        string   `json:"prof"`
	Die         string   `json:"die"`
	Pot         int      `json:"pot"`
	Str         string   `json:"str"`
	Mat         *string  `json:"mat"`
	Display     string   `json:"display"`
	Runes       []string `json:"runes"`
	DamageType  string   `json:"damageType"`
	Attack      int      `json:"attack"`
	DamageBonus int      `json:"damageBonus"`
}

type Money struct {
	CP int `json:"cp"`
	SP int `json:"sp"`
	GP int `json:"gp"`
	PP int `json:"pp"`
}

type Armor struct {
	Name    string   `json:"name"`
	Qty     int      `json:"qty"`
	Prof    string   `json:"prof"`
	Pot     int      `json:"pot"`
	Res     string   `json:"res"`
	Mat     *string  `json:"mat"`
	Display string   `json:"display"`
	Worn    bool     `json:"worn"`
	Runes   []string `json:"runes"`
}

type SpellLevel struct {
	SpellLevel int      `json:"spellLevel"`
	List       []string `json:"list"`
}

type SpellCaster struct {
	Name             string       `json:"name"`
	MagicTradition   string       `json:"magicTradition"`
	SpellcastingType string       `json:"spellcastingType"`
	Ability          string       `json:"ability"`
	Proficiency      int          `json:"proficiency"`
	FocusPoints      int          `json:"focusPoints"`
	Innate           bool         `json:"innate"`
	PerDay           []int        `json:"perDay"`
	Spells           []SpellLevel `json:"spells"`
	Prepared         []SpellLevel `json:"prepared"`
	BlendedSpells    []SpellLevel `json:"blendedSpells"`
}

type Formula struct {
	Type  string   `json:"type"`
	Known []string `json:"known"`
}

type ACTotal struct {
	ACProfBonus    int  `json:"acProfBonus"`
	ACAbilityBonus int  `json:"acAbilityBonus"`
	ACItemBonus    int  `json:"acItemBonus"`
	ACTotal        int  `json:"acTotal"`
	ShieldBonus    *int `json:"shieldBonus"`
}

// Feat is encoded as the tuple [name, extra|null, type, level, ...]. Elements
// after level (slot, choice type, parent) are carried through untouched.
type Feat struct {
	Name  string
	Extra *string
	Type  string
	Level int
	Rest  []json.RawMessage
}

func (f Feat) MarshalJSON() ([]byte, error) {
	tuple := make([]any, 0, 4+len(f.Rest))
	tuple = append(tuple, f.Name, f.Extra, f.Type, f.Level)
	for _, r := range f.Rest {
		tuple = append(tuple, r)
	}
	return json.Marshal(tuple)
}

func (f *Feat) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("feat: %w", err)
	}
	if len(raw) < 4 {
		return fmt.Errorf("feat: expected at least 4 elements, got %d", len(raw))
	}
	var out Feat
	if err := decodeTuple(raw[:4], &out.Name, &out.Extra, &out.Type, &out.Level); err != nil {
		return fmt.Errorf("feat: %w", err)
	}
	if len(raw) > 4 {
		out.Rest = append([]json.RawMessage(nil), raw[4:]...)
	}
	*f = out
	return nil
}

// Lore is encoded as the tuple [name, proficiency].
type Lore struct {
	Name        string
	Proficiency int
}

func (l Lore) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.Name, l.Proficiency})
}

func (l *Lore) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("lore: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("lore: expected 2 elements, got %d", len(raw))
	}
	var out Lore
	if err := decodeTuple(raw, &out.Name, &out.Proficiency); err != nil {
		return fmt.Errorf("lore: %w", err)
	}
	*l = out
	return nil
}

// EquipmentItem is encoded as [name, qty] or [name, qty, container].
type EquipmentItem struct {
	Name      string
	Qty       int
	Container string
}

func (e EquipmentItem) MarshalJSON() ([]byte, error) {
	if e.Container == "" {
		return json.Marshal([]any{e.Name, e.Qty})
	}
	return json.Marshal([]any{e.Name, e.Qty, e.Container})
}

func (e *EquipmentItem) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("equipment: %w", err)
	}
	var out EquipmentItem
	switch len(raw) {
	case 2:
		if err := decodeTuple(raw, &out.Name, &out.Qty); err != nil {
			return fmt.Errorf("equipment: %w", err)
		}
	case 3:
		if err := decodeTuple(raw, &out.Name, &out.Qty, &out.Container); err != nil {
			return fmt.Errorf("equipment: %w", err)
		}
	default:
		return fmt.Errorf("equipment: expected 2 or 3 elements, got %d", len(raw))
	}
	*e = out
	return nil
}

func decodeTuple(raw []json.RawMessage, dst ...any) error {
	for i := range dst {
		if err := json.Unmarshal(raw[i], dst[i]); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of b.
func (b *Build) Clone() *Build {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	var out Build
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// AddEquipment merges qty of name into the equipment list.
func (b *Build) AddEquipment(name string, qty int) {
	for i := range b.Equipment {
		if b.Equipment[i].Name == name {
			b.Equipment[i].Qty += qty
			return
		}
	}
	b.Equipment = append(b.Equipment, EquipmentItem{Name: name, Qty: qty})
}
