package state

import (
	"github.com/roach88/matter/internal/content"
)

// DefaultLeadScientist leads the lab in a new game.
const DefaultLeadScientist = "curie"

// defaultTopicItems selects the initially highlighted item per topic.
var defaultTopicItems = map[string]string{
	"sm": "photon",
	"pt": "Cu",
}

// CreateInitialState builds a fresh state with every catalog key present
// at its zero default: items unavailable with count 0, generators hidden,
// upgrades hidden and not acquired, and an empty narrative.
func CreateInitialState(m *content.MatterData) SavedState {
	s := SavedState{
		Version:            CurrentVersion,
		LeadScientist:      leadScientist(m),
		UnlockedScientists: []string{},
		Active: ActiveState{
			Topic: "sm",
			Item:  make(map[string]string),
		},
		Settings:   Settings{NumberFormat: FormatScientific},
		Items:      make(map[string]ItemState, len(m.Items)),
		Generators: make(map[string]GeneratorState, len(m.Generators)),
		Upgrades:   make(map[string]UpgradeState, len(m.Upgrades)),
		Narrative: NarrativeState{
			Triggered:  []string{},
			MessageLog: []LogEntry{},
			ModalQueue: []ModalEntry{},
		},
	}

	if len(m.UI.Topics) > 0 {
		s.Active.Topic = m.UI.Topics[0]
	}
	for _, topic := range m.UI.Topics {
		if item := topicItem(m, topic); item != "" {
			s.Active.Item[topic] = item
		}
	}

	for k := range m.Items {
		s.Items[k] = ItemState{}
	}
	for k := range m.Generators {
		s.Generators[k] = GeneratorState{}
	}
	for k := range m.Upgrades {
		s.Upgrades[k] = UpgradeState{}
	}

	return s
}

func leadScientist(m *content.MatterData) string {
	if _, ok := m.Scientists[DefaultLeadScientist]; ok || len(m.UI.Scientists) == 0 {
		return DefaultLeadScientist
	}
	return m.UI.Scientists[0]
}

// topicItem returns the preferred item for a topic, falling back to the
// first non-empty grid cell.
func topicItem(m *content.MatterData, topic string) string {
	if item, ok := defaultTopicItems[topic]; ok {
		if _, exists := m.Items[item]; exists {
			return item
		}
	}
	t, ok := m.Topics[topic]
	if !ok {
		return ""
	}
	for _, row := range t.Grid {
		for _, cell := range row {
			if cell != "" {
				return cell
			}
		}
	}
	return ""
}

// Clone returns a deep copy. Mutating the copy never affects s.
func (s SavedState) Clone() SavedState {
	out := s
	out.UnlockedScientists = cloneSlice(s.UnlockedScientists)
	out.Active.Item = cloneMap(s.Active.Item)
	out.Items = cloneMap(s.Items)
	out.Generators = cloneMap(s.Generators)
	out.Upgrades = make(map[string]UpgradeState, len(s.Upgrades))
	for k, u := range s.Upgrades {
		if u.Durability != nil {
			d := *u.Durability
			u.Durability = &d
		}
		out.Upgrades[k] = u
	}
	out.Narrative = s.Narrative.clone()
	if s.Prediction != nil {
		p := s.Prediction.Clone()
		out.Prediction = &p
	}
	return out
}

func (n NarrativeState) clone() NarrativeState {
	out := n
	out.Triggered = cloneSlice(n.Triggered)
	out.MessageLog = cloneSlice(n.MessageLog)
	out.ModalQueue = cloneSlice(n.ModalQueue)
	if n.CurrentModal != nil {
		m := *n.CurrentModal
		out.CurrentModal = &m
	}
	return out
}

// Clone returns a deep copy of the prediction.
func (p Prediction) Clone() Prediction {
	out := p
	out.Solution = cloneMap(p.Solution)
	out.Model.Constraints = cloneMap(p.Model.Constraints)
	if p.Model.Variables != nil {
		out.Model.Variables = make(map[string]map[string]float64, len(p.Model.Variables))
		for k, v := range p.Model.Variables {
			out.Model.Variables[k] = cloneMap(v)
		}
	}
	out.Result.Items = cloneMap(p.Result.Items)
	out.Result.Generators = cloneMap(p.Result.Generators)
	if p.NextBreakpoint != nil {
		bp := *p.NextBreakpoint
		out.NextBreakpoint = &bp
	}
	return out
}

// WithoutPrediction returns a copy with the derived cache dropped.
func (s SavedState) WithoutPrediction() SavedState {
	out := s
	out.Prediction = nil
	return out
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[V any](s []V) []V {
	if s == nil {
		return nil
	}
	out := make([]V, len(s))
	copy(out, s)
	return out
}

// Float returns a pointer to v, for Durability and similar optional fields.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
