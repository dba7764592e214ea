package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// StatKey names one mutable attribute of Stats.
type StatKey string

const (
	StatHealth     StatKey = "health"
	StatMana       StatKey = "mana"
	StatStamina    StatKey = "stamina"
	StatStrength   StatKey = "strength"
	StatAgility    StatKey = "agility"
	StatIntellect  StatKey = "intellect"
	StatCharisma   StatKey = "charisma"
	StatGold       StatKey = "gold"
	StatExperience StatKey = "experience"
)

// AllStatKeys lists every key in declaration order.
var AllStatKeys = []StatKey{
	StatHealth, StatMana, StatStamina, StatStrength, StatAgility,
	StatIntellect, StatCharisma, StatGold, StatExperience,
}

// ParseStatKey validates s against the fixed set of stat keys.
func ParseStatKey(s string) (StatKey, error) {
	key := StatKey(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllStatKeys {
		if k == key {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stat %q", ErrInvalidStatDelta, s)
}

// Stats is the mutable snapshot of a character inside an adventure. Name is
// denormalised so prompts can be rendered without loading the character.
type Stats struct {
	Name       string `json:"name"`
	Health     int    `json:"health"`
	Mana       int    `json:"mana"`
	Stamina    int    `json:"stamina"`
	Strength   int    `json:"strength"`
	Agility    int    `json:"agility"`
	Intellect  int    `json:"intellect"`
	Charisma   int    `json:"charisma"`
	Gold       int    `json:"gold"`
	Experience int    `json:"experience"`
}

// Get returns the value of key.
func (s Stats) Get(key StatKey) int {
	switch key {
	case StatHealth:
		return s.Health
	case StatMana:
		return s.Mana
	case StatStamina:
		return s.Stamina
	case StatStrength:
		return s.Strength
	case StatAgility:
		return s.Agility
	case StatIntellect:
		return s.Intellect
	case StatCharisma:
		return s.Charisma
	case StatGold:
		return s.Gold
	case StatExperience:
		return s.Experience
	}
	return 0
}

func (s *Stats) set(key StatKey, v int) {
	switch key {
	case StatHealth:
		s.Health = v
	case StatMana:
		s.Mana = v
	case StatStamina:
		s.Stamina = v
	case StatStrength:
		s.Strength = v
	case StatAgility:
		s.Agility = v
	case StatIntellect:
		s.Intellect = v
	case StatCharisma:
		s.Charisma = v
	case StatGold:
		s.Gold = v
	case StatExperience:
		s.Experience = v
	}
}

// baseStatsByClass seeds a new progress record. Classes not listed get defaultBaseStats.
var baseStatsByClass = map[string]Stats{
	"fighter": {Health: 120, Mana: 20, Stamina: 60, Strength: 16, Agility: 12, Intellect: 10, Charisma: 10, Gold: 15},
	"wizard":  {Health: 80, Mana: 100, Stamina: 30, Strength: 8, Agility: 12, Intellect: 18, Charisma: 10, Gold: 20},
	"rogue":   {Health: 90, Mana: 30, Stamina: 50, Strength: 10, Agility: 18, Intellect: 12, Charisma: 14, Gold: 30},
	"cleric":  {Health: 100, Mana: 80, Stamina: 40, Strength: 12, Agility: 10, Intellect: 12, Charisma: 16, Gold: 15},
	"ranger":  {Health: 100, Mana: 40, Stamina: 60, Strength: 12, Agility: 16, Intellect: 12, Charisma: 10, Gold: 20},
	"bard":    {Health: 90, Mana: 60, Stamina: 40, Strength: 10, Agility: 14, Intellect: 12, Charisma: 18, Gold: 25},
}

var defaultBaseStats = Stats{Health: 100, Mana: 50, Stamina: 40, Strength: 12, Agility: 12, Intellect: 12, Charisma: 12, Gold: 10}

// BaseStatsFor returns the starting stats of a character of the given class.
func BaseStatsFor(name, class string) Stats {
	stats, ok := baseStatsByClass[strings.ToLower(strings.TrimSpace(class))]
	if !ok {
		stats = defaultBaseStats
	}
	stats.Name = name
	return stats
}

// StatOpKind is the operation a StatOp performs.
type StatOpKind string

const (
	// OpAdd adds Value (which may be negative) to the stat.
	OpAdd StatOpKind = "add"
	// OpSet replaces the stat with Value.
	OpSet StatOpKind = "set"
)

// ParseStatOpKind validates s. An empty string means OpAdd.
func ParseStatOpKind(s string) (StatOpKind, error) {
	switch StatOpKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", OpAdd:
		return OpAdd, nil
	case OpSet:
		return OpSet, nil
	}
	return "", fmt.Errorf("%w: unknown op %q", ErrInvalidStatDelta, s)
}

// StatOp is one adjustment of a single stat, optionally clamped.
type StatOp struct {
	Stat  StatKey    `json:"stat"`
	Op    StatOpKind `json:"op"`
	Value int        `json:"value"`
	Min   *int       `json:"min,omitempty"`
	Max   *int       `json:"max,omitempty"`
}

// NewStatOp builds a validated StatOp.
func NewStatOp(stat, op string, value int) (StatOp, error) {
	key, err := ParseStatKey(stat)
	if err != nil {
		return StatOp{}, err
	}
	kind, err := ParseStatOpKind(op)
	if err != nil {
		return StatOp{}, err
	}
	return StatOp{Stat: key, Op: kind, Value: value}, nil
}

// UnmarshalJSON validates the stat key and op while decoding.
func (o *StatOp) UnmarshalJSON(b []byte) error {
	type rawOp struct {
		Stat  string `json:"stat"`
		Op    string `json:"op"`
		Value int    `json:"value"`
		Min   *int   `json:"min"`
		Max   *int   `json:"max"`
	}
	var raw rawOp
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStatDelta, err)
	}
	op, err := NewStatOp(raw.Stat, raw.Op, raw.Value)
	if err != nil {
		return err
	}
	op.Min, op.Max = raw.Min, raw.Max
	*o = op
	return nil
}

func (o StatOp) apply(current int) int {
	var v int
	switch o.Op {
	case OpSet:
		v = o.Value
	default:
		v = current + o.Value
	}
	if o.Max != nil && v > *o.Max {
		v = *o.Max
	}
	if o.Min != nil && v < *o.Min {
		v = *o.Min
	}
	return v
}

// StatDelta is the ordered set of adjustments attached to a choice.
//
// Its JSON form is either a list of StatOp objects or the sparse map form
// {"mana": -10}, where every entry becomes an add.
type StatDelta []StatOp

// Apply returns stats with every op applied in order. The argument is not modified.
func (d StatDelta) Apply(stats Stats) Stats {
	out := stats
	for _, op := range d {
		out.set(op.Stat, op.apply(out.Get(op.Stat)))
	}
	return out
}

// IsEmpty reports whether the delta changes nothing.
func (d StatDelta) IsEmpty() bool {
	return len(d) == 0
}

// UnmarshalJSON accepts both the list form and the sparse map form.
func (d *StatDelta) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = nil
		return nil
	}
	switch trimmed[0] {
	case '[':
		var ops []StatOp
		if err := json.Unmarshal(trimmed, &ops); err != nil {
			return err
		}
		*d = ops
		return nil
	case '{':
		var sparse map[string]int
		if err := json.Unmarshal(trimmed, &sparse); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidStatDelta, err)
		}
		delta, err := SparseDelta(sparse)
		if err != nil {
			return err
		}
		*d = delta
		return nil
	}
	return fmt.Errorf("%w: expected list or object", ErrInvalidStatDelta)
}

// SparseDelta converts {"mana": -10}-style increments into a StatDelta. Keys
// are sorted so the result is deterministic.
func SparseDelta(sparse map[string]int) (StatDelta, error) {
	keys := make([]string, 0, len(sparse))
	for k := range sparse {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	delta := make(StatDelta, 0, len(keys))
	for _, k := range keys {
		op, err := NewStatOp(k, string(OpAdd), sparse[k])
		if err != nil {
			return nil, err
		}
		delta = append(delta, op)
	}
	return delta, nil
}
