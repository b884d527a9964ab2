package content

import (
	"fmt"
	"math"
)

// Validate checks referential integrity of a decoded catalog.
// Returns all errors found (does not fail-fast).
func Validate(m *MatterData) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	if len(m.Items) == 0 {
		add(ErrEmptyCatalog, "items", "catalog declares no items")
	}

	for _, t := range m.UI.Topics {
		if _, ok := m.Topics[t]; !ok {
			add(ErrUnknownTopic, "ui.topics", "unknown topic %q", t)
		}
	}
	for _, s := range m.UI.Scientists {
		if _, ok := m.Scientists[s]; !ok {
			add(ErrUnknownScientist, "ui.scientists", "unknown scientist %q", s)
		}
	}

	for _, tk := range sortedKeys(m.Topics) {
		for r, row := range m.Topics[tk].Grid {
			for c, cell := range row {
				if cell == "" {
					continue
				}
				if _, ok := m.Items[cell]; !ok {
					add(ErrUnknownItem, fmt.Sprintf("topics.%s.grid[%d][%d]", tk, r, c), "unknown item %q", cell)
				}
			}
		}
	}

	checkRates := func(field string, rates map[string]float64) {
		for _, k := range sortedKeys(rates) {
			if _, ok := m.Items[k]; !ok {
				add(ErrUnknownItem, field, "unknown item %q", k)
			}
			if rates[k] < 0 {
				add(ErrNegativeRate, field, "%s is negative (%v)", k, rates[k])
			}
		}
	}

	for _, gk := range m.GeneratorKeys() {
		g := m.Generators[gk]
		checkRates("generators."+gk+".cost", g.Cost)
		checkRates("generators."+gk+".inputs", g.Inputs)
		checkRates("generators."+gk+".outputs", g.Outputs)
	}

	for _, uk := range m.UpgradeKeys() {
		u := m.Upgrades[uk]
		checkRates("upgrades."+uk+".cost", u.Cost)
		for i, eff := range u.Effects {
			field := fmt.Sprintf("upgrades.%s.effects[%d]", uk, i)
			if _, ok := m.Generators[eff.Generator]; !ok {
				add(ErrUnknownGenerator, field, "unknown generator %q", eff.Generator)
			}
			if eff.Type == EffectEfficiency {
				continue
			}
			if eff.Target == "" {
				add(ErrMissingTarget, field, "%s requires a target item", eff.Type)
			} else if _, ok := m.Items[eff.Target]; !ok {
				add(ErrUnknownItem, field, "unknown item %q", eff.Target)
			}
		}
		if u.RevealAt != nil {
			if _, ok := m.Generators[u.RevealAt.Generator]; !ok {
				add(ErrUnknownGenerator, "upgrades."+uk+".revealAt", "unknown generator %q", u.RevealAt.Generator)
			}
		}
	}

	seen := make(map[string]bool, len(m.Narrative))
	for _, r := range m.Narrative {
		if seen[r.Key] {
			add(ErrDuplicateRule, "narrative."+r.Key, "duplicate rule key")
		}
		seen[r.Key] = true
	}

	for _, r := range m.Narrative {
		for i, c := range r.Conditions {
			field := fmt.Sprintf("narrative.%s.conditions[%d]", r.Key, i)
			errs = append(errs, validateCondition(m, seen, field, c)...)
		}
		for i, e := range r.Effects {
			field := fmt.Sprintf("narrative.%s.effects[%d]", r.Key, i)
			if code, ok := effectTargetExists(m, e); !ok {
				add(code, field, "%s references unknown key %q", e.Type, e.Key)
			}
			if e.Type == GrantGenerator || e.Type == RemoveGenerator {
				if n := e.Amount(); n < 1 || n != math.Trunc(n) {
					add(ErrFractionalCount, field, "%s count must be a whole number >= 1, got %v", e.Type, n)
				}
			}
		}
	}

	return errs
}

func validateCondition(m *MatterData, rules map[string]bool, field string, c Condition) []ValidationError {
	var errs []ValidationError
	fail := func(code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	switch c.Type {
	case ConditionItem:
		if _, ok := m.Items[c.Key]; !ok {
			fail(ErrUnknownItem, "unknown item %q", c.Key)
		}
	case ConditionGenerator:
		if _, ok := m.Generators[c.Key]; !ok {
			fail(ErrUnknownGenerator, "unknown generator %q", c.Key)
		}
	case ConditionUpgrade:
		if _, ok := m.Upgrades[c.Key]; !ok {
			fail(ErrUnknownUpgrade, "unknown upgrade %q", c.Key)
		}
	case ConditionEvent:
		if !rules[c.Key] {
			fail(ErrUnknownRule, "unknown rule %q", c.Key)
		}
	}

	boolOperand := c.Op == OpHas || c.Type == ConditionEvent
	if boolOperand != c.Value.IsBool {
		fail(ErrConditionOperand, "operator %q on %s does not accept this operand", c.Op, c.Type)
	}
	return errs
}

// effectTargetExists reports whether a narrative effect's key names a
// catalog entry of the right kind.
func effectTargetExists(m *MatterData, e NarrativeEffect) (string, bool) {
	switch e.Type {
	case GrantItem, UnlockItem, RemoveItem:
		_, ok := m.Items[e.Key]
		return ErrUnknownItem, ok
	case GrantGenerator, UnlockGenerator, RevealGenerator, RemoveGenerator:
		_, ok := m.Generators[e.Key]
		return ErrUnknownGenerator, ok
	case UnlockUpgrade, RevealUpgrade:
		_, ok := m.Upgrades[e.Key]
		return ErrUnknownUpgrade, ok
	case UnlockScientist:
		_, ok := m.Scientists[e.Key]
		return ErrUnknownScientist, ok
	}
	return "", true
}
