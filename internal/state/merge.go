package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Partial is a persisted snapshot as read back from storage. Every field is
// optional so that absent values can be told apart from zero values.
type Partial struct {
	Version            *int                        `json:"version"`
	LeadScientist      *string                     `json:"leadScientist"`
	UnlockedScientists []string                    `json:"unlockedScientists"`
	Active             *PartialActive              `json:"active"`
	Settings           *PartialSettings            `json:"settings"`
	Items              map[string]PartialItem      `json:"items"`
	Generators         map[string]PartialGenerator `json:"generators"`
	Upgrades           map[string]PartialUpgrade   `json:"upgrades"`
	Narrative          *PartialNarrative           `json:"narrative"`
	Prediction         *Prediction                 `json:"prediction"`
}

type PartialActive struct {
	Topic *string           `json:"topic"`
	Item  map[string]string `json:"item"`
}

type PartialSettings struct {
	NumberFormat *string `json:"numberFormat"`
}

type PartialItem struct {
	Available *bool    `json:"available"`
	Count     *float64 `json:"count"`
}

type PartialGenerator struct {
	Visible   *bool `json:"visible"`
	Available *bool `json:"available"`
	Count     *int  `json:"count"`
}

type PartialUpgrade struct {
	Visible    *bool    `json:"visible"`
	Available  *bool    `json:"available"`
	Acquired   *bool    `json:"acquired"`
	Durability *float64 `json:"durability"`
}

type PartialNarrative struct {
	Triggered     []string     `json:"triggered"`
	LastEventTime *float64     `json:"lastEventTime"`
	GameTime      *float64     `json:"gameTime"`
	MessageLog    []LogEntry   `json:"messageLog"`
	ModalQueue    []ModalEntry `json:"modalQueue"`
	CurrentModal  *string      `json:"currentModal"`
}

// MergeReport lists keys that differed between the saved snapshot and the
// current catalog.
type MergeReport struct {
	// Added are catalog keys missing from the save; they received defaults.
	Added map[string][]string
	// Pruned are saved keys no longer present in the catalog; they were dropped.
	Pruned map[string][]string
}

// Empty reports whether the save matched the catalog exactly.
func (r MergeReport) Empty() bool {
	return len(r.Added) == 0 && len(r.Pruned) == 0
}

func (r *MergeReport) note(kind string, added, pruned []string) {
	if len(added) > 0 {
		if r.Added == nil {
			r.Added = make(map[string][]string)
		}
		r.Added[kind] = added
	}
	if len(pruned) > 0 {
		if r.Pruned == nil {
			r.Pruned = make(map[string][]string)
		}
		r.Pruned[kind] = pruned
	}
}

// MergeState overlays a persisted snapshot onto a freshly created initial
// state, field by field per entity kind:
//
//   - keys present only in initial keep their defaults,
//   - keys present in both take the saved value (field-wise: a saved record
//     lacking a field keeps the initial value of that field),
//   - keys present only in the save belong to removed catalog entries and
//     are pruned.
//
// initial is not modified.
func MergeState(initial SavedState, saved Partial) (SavedState, MergeReport) {
	out := initial.Clone()
	var report MergeReport

	if saved.Version != nil {
		out.Version = *saved.Version
	}
	if saved.LeadScientist != nil {
		out.LeadScientist = *saved.LeadScientist
	}
	if saved.UnlockedScientists != nil {
		out.UnlockedScientists = cloneSlice(saved.UnlockedScientists)
	}
	if saved.Active != nil {
		if saved.Active.Topic != nil {
			out.Active.Topic = *saved.Active.Topic
		}
		for k, v := range saved.Active.Item {
			out.Active.Item[k] = v
		}
	}
	if saved.Settings != nil && saved.Settings.NumberFormat != nil {
		out.Settings.NumberFormat = *saved.Settings.NumberFormat
	}

	added, pruned := mergeEntries(out.Items, saved.Items, func(cur ItemState, p PartialItem) ItemState {
		if p.Available != nil {
			cur.Available = *p.Available
		}
		if p.Count != nil {
			cur.Count = ClampItemCount(*p.Count)
		}
		return cur
	})
	report.note("items", added, pruned)

	added, pruned = mergeEntries(out.Generators, saved.Generators, func(cur GeneratorState, p PartialGenerator) GeneratorState {
		if p.Visible != nil {
			cur.Visible = *p.Visible
		}
		if p.Available != nil {
			cur.Available = *p.Available
		}
		if p.Count != nil {
			cur.Count = ClampGeneratorCount(*p.Count)
		}
		return cur
	})
	report.note("generators", added, pruned)

	added, pruned = mergeEntries(out.Upgrades, saved.Upgrades, func(cur UpgradeState, p PartialUpgrade) UpgradeState {
		if p.Visible != nil {
			cur.Visible = *p.Visible
		}
		if p.Available != nil {
			cur.Available = *p.Available
		}
		if p.Acquired != nil {
			cur.Acquired = *p.Acquired
		}
		if p.Durability != nil {
			cur.Durability = Float(max(0, *p.Durability))
		}
		return cur
	})
	report.note("upgrades", added, pruned)

	if n := saved.Narrative; n != nil {
		if n.Triggered != nil {
			out.Narrative.Triggered = cloneSlice(n.Triggered)
		}
		if n.LastEventTime != nil {
			out.Narrative.LastEventTime = *n.LastEventTime
		}
		if n.GameTime != nil {
			out.Narrative.GameTime = max(0, *n.GameTime)
		}
		if n.MessageLog != nil {
			log := n.MessageLog
			if len(log) > MessageLogCap {
				log = log[len(log)-MessageLogCap:]
			}
			out.Narrative.MessageLog = cloneSlice(log)
		}
		if n.ModalQueue != nil {
			out.Narrative.ModalQueue = cloneSlice(n.ModalQueue)
		}
		if n.CurrentModal != nil {
			out.Narrative.CurrentModal = String(*n.CurrentModal)
		}
	}

	if saved.Prediction != nil {
		p := saved.Prediction.Clone()
		out.Prediction = &p
	}

	return out, report
}

// mergeEntries applies saved records onto dst in place and returns the
// sorted keys that were only in dst (added) or only in saved (pruned).
func mergeEntries[S, P any](dst map[string]S, saved map[string]P, apply func(S, P) S) (added, pruned []string) {
	if saved == nil {
		return nil, nil
	}
	for k, cur := range dst {
		p, ok := saved[k]
		if !ok {
			added = append(added, k)
			continue
		}
		dst[k] = apply(cur, p)
	}
	for k := range saved {
		if _, ok := dst[k]; !ok {
			pruned = append(pruned, k)
		}
	}
	sort.Strings(added)
	sort.Strings(pruned)
	return added, pruned
}

// Serialize encodes the full state as JSON.
func Serialize(s SavedState) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("serialize state: %w", err)
	}
	return string(data), nil
}

// Deserialize parses a persisted snapshot. It fails closed: malformed JSON,
// a non-object top level, or mistyped fields all yield ok=false.
func Deserialize(data string) (Partial, bool) {
	trimmed := bytes.TrimSpace([]byte(data))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Partial{}, false
	}
	var p Partial
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Partial{}, false
	}
	return p, true
}
