// Package scenarios holds the authored adventure templates that are copied
// into per-adventure scenario rows when an adventure starts.
package scenarios

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"adventure-server/shared/models"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTemplate wraps every template validation failure.
var ErrInvalidTemplate = errors.New("invalid adventure template")

// Template is a validated adventure graph.
type Template struct {
	Slug        string
	Title       string
	Description string
	Start       int
	Rewards     Rewards
	Nodes       []TemplateNode // sorted by sequence
}

// Rewards are merged into the exported build when the adventure completes.
type Rewards struct {
	Gold      int
	Equipment []models.EquipmentItem
}

// TemplateNode is the authored content of one scenario node.
type TemplateNode struct {
	Sequence int
	Prompt   string
	Choices  [models.MaxChoices]models.ScenarioChoice
}

// TotalStages is the number of nodes in the template.
func (t *Template) TotalStages() int {
	return len(t.Nodes)
}

// Node returns the node at sequence.
func (t *Template) Node(sequence int) (TemplateNode, bool) {
	i := sort.Search(len(t.Nodes), func(i int) bool { return t.Nodes[i].Sequence >= sequence })
	if i < len(t.Nodes) && t.Nodes[i].Sequence == sequence {
		return t.Nodes[i], true
	}
	return TemplateNode{}, false
}

// Instantiate copies every node into scenario rows owned by adventureID.
func (t *Template) Instantiate(adventureID uuid.UUID) []*models.ScenarioNode {
	nodes := make([]*models.ScenarioNode, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		node := &models.ScenarioNode{
			ID:          uuid.New(),
			AdventureID: adventureID,
			Sequence:    n.Sequence,
			Prompt:      n.Prompt,
		}
		for i, c := range n.Choices {
			node.Choices[i] = copyChoice(c)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func copyChoice(c models.ScenarioChoice) models.ScenarioChoice {
	out := c
	if c.Delta != nil {
		out.Delta = append(models.StatDelta(nil), c.Delta...)
	}
	if c.NextSequence != nil {
		next := *c.NextSequence
		out.NextSequence = &next
	}
	return out
}

type templateFile struct {
	Slug        string     `yaml:"slug"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Start       int        `yaml:"start"`
	Rewards     rewardFile `yaml:"rewards"`
	Nodes       []nodeFile `yaml:"nodes"`
}

type rewardFile struct {
	Gold      int `yaml:"gold"`
	Equipment []struct {
		Name string `yaml:"name"`
		Qty  int    `yaml:"qty"`
	} `yaml:"equipment"`
}

type nodeFile struct {
	Sequence int          `yaml:"sequence"`
	Prompt   string       `yaml:"prompt"`
	Choices  []choiceFile `yaml:"choices"`
}

type choiceFile struct {
	Slot   string    `yaml:"slot"`
	Label  string    `yaml:"label"`
	Result string    `yaml:"result"`
	Delta  yaml.Node `yaml:"delta"`
	Next   *int      `yaml:"next"`
}

// Parse decodes and validates a YAML template.
func Parse(r io.Reader) (*Template, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f templateFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return f.toTemplate()
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(data []byte) (*Template, error) {
	return Parse(bytes.NewReader(data))
}

func (f *templateFile) toTemplate() (*Template, error) {
	t := &Template{
		Slug:        strings.TrimSpace(f.Slug),
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Start:       f.Start,
		Rewards:     Rewards{Gold: f.Rewards.Gold},
	}
	if t.Slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidTemplate)
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidTemplate, t.Slug, fmt.Sprintf(format, args...))
	}
	if len(f.Nodes) == 0 {
		return nil, invalid("no nodes")
	}
	if f.Rewards.Gold < 0 {
		return nil, invalid("negative reward gold")
	}
	for _, e := range f.Rewards.Equipment {
		if strings.TrimSpace(e.Name) == "" || e.Qty <= 0 {
			return nil, invalid("reward equipment needs a name and a positive qty")
		}
		t.Rewards.Equipment = append(t.Rewards.Equipment, models.EquipmentItem{Name: e.Name, Qty: e.Qty})
	}

	sequences := make(map[int]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.Sequence <= 0 {
			return nil, invalid("sequence %d must be positive", n.Sequence)
		}
		if sequences[n.Sequence] {
			return nil, invalid("duplicate sequence %d", n.Sequence)
		}
		sequences[n.Sequence] = true
	}
	if t.Start == 0 {
		t.Start = 1
	}
	if !sequences[t.Start] {
		return nil, invalid("start sequence %d does not exist", t.Start)
	}

	for _, n := range f.Nodes {
		node, err := n.toNode(sequences)
		if err != nil {
			return nil, invalid("node %d: %v", n.Sequence, err)
		}
		t.Nodes = append(t.Nodes, node)
	}
	sort.Slice(t.Nodes, func(i, j int) bool { return t.Nodes[i].Sequence < t.Nodes[j].Sequence })
	return t, nil
}

func (n *nodeFile) toNode(sequences map[int]bool) (TemplateNode, error) {
	node := TemplateNode{Sequence: n.Sequence, Prompt: strings.TrimSpace(n.Prompt)}
	if node.Prompt == "" {
		return node, errors.New("prompt is required")
	}
	if len(n.Choices) == 0 {
		return node, errors.New("at least one choice is required")
	}
	if len(n.Choices) > models.MaxChoices {
		return node, fmt.Errorf("%d choices, at most %d allowed", len(n.Choices), models.MaxChoices)
	}

	for i, c := range n.Choices {
		slot := models.ChoiceSlot(i + 1)
		if c.Slot != "" {
			parsed, err := models.ParseChoiceSlot(c.Slot)
			if err != nil {
				return node, err
			}
			slot = parsed
		}
		if node.Choices[slot-1].Defined() {
			return node, fmt.Errorf("slot %s used twice", slot)
		}
		if strings.TrimSpace(c.Label) == "" {
			return node, fmt.Errorf("slot %s: label is required", slot)
		}
		if c.Next != nil && !sequences[*c.Next] {
			return node, fmt.Errorf("slot %s: next %d does not exist", slot, *c.Next)
		}
		delta, err := decodeDelta(&c.Delta)
		if err != nil {
			return node, fmt.Errorf("slot %s: %w", slot, err)
		}
		node.Choices[slot-1] = models.ScenarioChoice{
			Label:        strings.TrimSpace(c.Label),
			ResultText:   strings.TrimSpace(c.Result),
			Delta:        delta,
			NextSequence: c.Next,
		}
	}
	return node, nil
}

// decodeDelta routes the YAML value through the JSON codec of StatDelta so
// both the sparse and the list form are validated the same way.
func decodeDelta(node *yaml.Node) (models.StatDelta, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var delta models.StatDelta
	if err := json.Unmarshal(raw, &delta); err != nil {
		return nil, err
	}
	return delta, nil
}
