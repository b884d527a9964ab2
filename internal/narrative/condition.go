// Package narrative evaluates scripted story rules against the game state.
//
// Rules are checked in catalog order. A rule fires at most once; firing
// applies its effects, appends to the message log and may queue a modal.
// A rule with a positive cooldown ends the current pass so that story beats
// are spaced out, while cooldown-free rules can fire together.
package narrative

import (
	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// EvaluateCondition reports whether c holds in s. Missing keys read as
// zero (or false); an operand of the wrong kind never matches.
func EvaluateCondition(c content.Condition, s state.SavedState) bool {
	var actual float64

	switch c.Type {
	case content.ConditionItem:
		if c.Key == "" {
			return false
		}
		actual = s.Items[c.Key].Count

	case content.ConditionGenerator:
		if c.Key == "" {
			return false
		}
		actual = float64(s.Generators[c.Key].Count)

	case content.ConditionUpgrade:
		if c.Key == "" {
			return false
		}
		u := s.Upgrades[c.Key]
		if c.Op == content.OpHas {
			return c.Value.IsBool && u.Active() == c.Value.Bool
		}
		if u.Durability != nil {
			actual = *u.Durability
		}

	case content.ConditionEvent:
		if c.Key == "" {
			return false
		}
		return c.Value.IsBool && s.Narrative.HasTriggered(c.Key) == c.Value.Bool

	case content.ConditionGameTime:
		actual = s.Narrative.GameTime

	default:
		return false
	}

	if c.Value.IsBool {
		return false
	}
	return compare(actual, c.Op, c.Value.Number)
}

func compare(actual float64, op content.Operator, want float64) bool {
	switch op {
	case content.OpGTE:
		return actual >= want
	case content.OpGT:
		return actual > want
	case content.OpLTE:
		return actual <= want
	case content.OpLT:
		return actual < want
	case content.OpEQ:
		return actual == want
	default:
		return false
	}
}

// conditionsHold reports whether every condition of r holds. A rule with
// no conditions always holds.
func conditionsHold(r content.NarrativeRule, s state.SavedState) bool {
	for _, c := range r.Conditions {
		if !EvaluateCondition(c, s) {
			return false
		}
	}
	return true
}

// CheckEvents returns the rules that are eligible to fire in s, in catalog
// order: not yet triggered, past their cooldown and minimum game time, and
// with every condition holding.
func CheckEvents(m *content.MatterData, s state.SavedState) []content.NarrativeRule {
	var eligible []content.NarrativeRule
	n := s.Narrative
	for _, r := range m.Narrative {
		if n.HasTriggered(r.Key) {
			continue
		}
		if r.Cooldown != nil && n.GameTime-n.LastEventTime < *r.Cooldown {
			continue
		}
		if r.MinGameTime != nil && n.GameTime < *r.MinGameTime {
			continue
		}
		if conditionsHold(r, s) {
			eligible = append(eligible, r)
		}
	}
	return eligible
}
