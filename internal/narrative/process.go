package narrative

import (
	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// ProcessEvents runs one narrative pass over s and returns the new state
// together with the rules that fired, in order.
//
// Each eligible rule is re-checked against the state left by the rules
// before it. The pass stops after the first rule with a positive cooldown;
// later rules wait for the next pass.
func ProcessEvents(m *content.MatterData, s state.SavedState) (state.SavedState, []content.NarrativeRule) {
	var fired []content.NarrativeRule
	next := s
	for _, r := range CheckEvents(m, s) {
		if next.Narrative.HasTriggered(r.Key) || !conditionsHold(r, next) {
			continue
		}
		next = ApplyEvent(r, next)
		fired = append(fired, r)
		if r.Throttles() {
			break
		}
	}
	return next, fired
}

// Trigger fires the rule named key regardless of its conditions, cooldown
// and minimum game time. It reports false, leaving s unchanged, when the
// rule does not exist or has already fired.
func Trigger(m *content.MatterData, s state.SavedState, key string) (state.SavedState, content.NarrativeRule, bool) {
	r, ok := m.Rule(key)
	if !ok || s.Narrative.HasTriggered(key) {
		return s, content.NarrativeRule{}, false
	}
	return ApplyEvent(r, s), r, true
}
