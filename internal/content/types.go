package content

import (
	"encoding/json"
	"fmt"
	"sort"
)

// MatterData is the static game catalog.
//
// It is loaded once and never mutated afterwards. Every key in the dynamic
// state is validated against (and merged onto) this catalog.
type MatterData struct {
	Version      string                 `json:"version"`
	UI           UIConfig               `json:"ui"`
	Topics       map[string]Topic       `json:"topics"`
	Items        map[string]Item        `json:"items"`
	Categories   map[string]Category    `json:"categories"`
	Scientists   map[string]Scientist   `json:"scientists"`
	Achievements map[string]Achievement `json:"achievements"`
	Generators   map[string]Generator   `json:"generators"`
	Upgrades     map[string]Upgrade     `json:"upgrades"`

	// Narrative is evaluated in declaration order.
	Narrative []NarrativeRule `json:"narrative"`
}

// UIConfig lists the topics and scientists in display order.
type UIConfig struct {
	Topics     []string `json:"topics"`
	Scientists []string `json:"scientists"`
}

// Topic is a grid of item keys. Empty cells are "".
type Topic struct {
	Key   string     `json:"key"`
	Name  string     `json:"name"`
	Short string     `json:"short"`
	WP    string     `json:"wp"`
	Desc  string     `json:"desc"`
	Grid  [][]string `json:"grid"`
}

// UnmarshalJSON maps null grid cells to "".
func (t *Topic) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key   string      `json:"key"`
		Name  string      `json:"name"`
		Short string      `json:"short"`
		WP    string      `json:"wp"`
		Desc  string      `json:"desc"`
		Grid  [][]*string `json:"grid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Topic{Key: raw.Key, Name: raw.Name, Short: raw.Short, WP: raw.WP, Desc: raw.Desc}
	t.Grid = make([][]string, len(raw.Grid))
	for i, row := range raw.Grid {
		t.Grid[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				t.Grid[i][j] = *cell
			}
		}
	}
	return nil
}

// Item is a particle or element that can be held in inventory.
type Item struct {
	Key      string   `json:"key"`
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Short    string   `json:"short"`
	WP       string   `json:"wp"`
	Desc     string   `json:"desc"`
	Mass     string   `json:"mass"`
	Charge   *float64 `json:"charge,omitempty"`
	Spin     *float64 `json:"spin,omitempty"`
	Z        int      `json:"z,omitempty"`
}

type Category struct {
	Name  string `json:"name"`
	WP    string `json:"wp"`
	Desc  string `json:"desc"`
	Color string `json:"color"`
}

type Scientist struct {
	Name         string   `json:"name"`
	WP           string   `json:"wp"`
	Title        string   `json:"title"`
	Tagline      string   `json:"tagline"`
	Achievements []string `json:"achievements"`
}

type Achievement struct {
	Name string `json:"name"`
	Info string `json:"info"`
	Icon string `json:"icon"`
}

// Generator converts input items into output items at fixed per-unit rates.
type Generator struct {
	Key            string             `json:"key"`
	Name           string             `json:"name"`
	Desc           string             `json:"desc"`
	WP             string             `json:"wp"`
	Cost           map[string]float64 `json:"cost"`
	CostMultiplier float64            `json:"costMultiplier"`
	Inputs         map[string]float64 `json:"inputs"`
	Outputs        map[string]float64 `json:"outputs"`
}

// Multiplier returns the cost growth factor, defaulting to 1.
func (g Generator) Multiplier() float64 {
	if g.CostMultiplier <= 0 {
		return 1
	}
	return g.CostMultiplier
}

// EffectType names how an upgrade changes a generator's rates.
type EffectType string

const (
	EffectEfficiency  EffectType = "efficiency"
	EffectAddOutput   EffectType = "addOutput"
	EffectAddInput    EffectType = "addInput"
	EffectReduceInput EffectType = "reduceInput"
)

// UpgradeEffect targets a single generator. Target names the item for
// addOutput/addInput/reduceInput.
type UpgradeEffect struct {
	Generator string     `json:"generator"`
	Type      EffectType `json:"type"`
	Target    string     `json:"target,omitempty"`
	Value     float64    `json:"value"`
}

// Upgrade modifies generator rates while active.
// A nil Expiration means the upgrade is permanent.
type Upgrade struct {
	Key        string             `json:"key"`
	Name       string             `json:"name"`
	Desc       string             `json:"desc"`
	WP         string             `json:"wp"`
	Cost       map[string]float64 `json:"cost"`
	Expiration *float64           `json:"expiration,omitempty"`
	Effects    []UpgradeEffect    `json:"effects"`
	RevealAt   *RevealAt          `json:"revealAt,omitempty"`
}

// RevealAt is UI metadata: the generator count at which the upgrade is teased.
type RevealAt struct {
	Generator string `json:"generator"`
	Count     int    `json:"count"`
}

// ConditionType selects what a narrative condition inspects.
type ConditionType string

const (
	ConditionItem      ConditionType = "item"
	ConditionGenerator ConditionType = "generator"
	ConditionUpgrade   ConditionType = "upgrade"
	ConditionEvent     ConditionType = "event"
	ConditionGameTime  ConditionType = "gameTime"
)

// Operator is a narrative comparison operator.
type Operator string

const (
	OpGTE Operator = ">="
	OpGT  Operator = ">"
	OpLTE Operator = "<="
	OpLT  Operator = "<"
	OpEQ  Operator = "=="
	OpHas Operator = "has"
)

// Value is a narrative condition operand: either a number or a boolean.
type Value struct {
	Number float64
	Bool   bool
	IsBool bool
}

// NumberValue returns a numeric operand.
func NumberValue(n float64) Value { return Value{Number: n} }

// BoolValue returns a boolean operand.
func BoolValue(b bool) Value { return Value{Bool: b, IsBool: true} }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsBool {
		return json.Marshal(v.Bool)
	}
	return json.Marshal(v.Number)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("condition value must be a number or bool: %s", data)
	}
	*v = NumberValue(n)
	return nil
}

// Condition is one clause of a narrative rule. All clauses must hold.
type Condition struct {
	Type  ConditionType `json:"type"`
	Key   string        `json:"key,omitempty"`
	Op    Operator      `json:"op"`
	Value Value         `json:"value"`
}

// NarrativeEffectType names a narrative effect.
type NarrativeEffectType string

const (
	GrantItem       NarrativeEffectType = "grantItem"
	GrantGenerator  NarrativeEffectType = "grantGenerator"
	UnlockItem      NarrativeEffectType = "unlockItem"
	UnlockGenerator NarrativeEffectType = "unlockGenerator"
	UnlockUpgrade   NarrativeEffectType = "unlockUpgrade"
	RevealGenerator NarrativeEffectType = "revealGenerator"
	RevealUpgrade   NarrativeEffectType = "revealUpgrade"
	RemoveItem      NarrativeEffectType = "removeItem"
	RemoveGenerator NarrativeEffectType = "removeGenerator"
	UnlockScientist NarrativeEffectType = "unlockScientist"
)

// NarrativeEffect is applied when its rule fires. Count defaults to 1.
type NarrativeEffect struct {
	Type  NarrativeEffectType `json:"type"`
	Key   string              `json:"key"`
	Count *float64            `json:"count,omitempty"`
}

// Amount returns the effect count, defaulting to 1.
func (e NarrativeEffect) Amount() float64 {
	if e.Count == nil {
		return 1
	}
	return *e.Count
}

// NarrativeRule is a scripted condition/effect binding that fires at most once.
type NarrativeRule struct {
	Key         string            `json:"key"`
	Arc         string            `json:"arc"`
	Conditions  []Condition       `json:"conditions"`
	Cooldown    *float64          `json:"cooldown,omitempty"`
	MinGameTime *float64          `json:"minGameTime,omitempty"`
	Effects     []NarrativeEffect `json:"effects"`
	Speaker     string            `json:"speaker,omitempty"`
	Message     string            `json:"message"`
	Modal       bool              `json:"modal"`
	Teaser      string            `json:"teaser,omitempty"`
}

// Throttles reports whether the rule has a positive cooldown.
func (r NarrativeRule) Throttles() bool {
	return r.Cooldown != nil && *r.Cooldown > 0
}

// Rule returns the narrative rule with the given key.
func (m *MatterData) Rule(key string) (NarrativeRule, bool) {
	for _, r := range m.Narrative {
		if r.Key == key {
			return r, true
		}
	}
	return NarrativeRule{}, false
}

// ItemKeys returns item keys in lexicographic order.
func (m *MatterData) ItemKeys() []string { return sortedKeys(m.Items) }

// GeneratorKeys returns generator keys in lexicographic order.
func (m *MatterData) GeneratorKeys() []string { return sortedKeys(m.Generators) }

// UpgradeKeys returns upgrade keys in lexicographic order.
func (m *MatterData) UpgradeKeys() []string { return sortedKeys(m.Upgrades) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
