package solver

import (
	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// NextBreakpoint returns the earliest moment the given rates stop being
// valid, or nil if nothing will change.
//
// A net-consumed item with stock I and delta -d runs out after I/d seconds.
// An active upgrade with durability D expires after D seconds. Items are
// scanned first, then upgrades, both in key order; only a strictly smaller
// time replaces the current candidate, so the first minimum wins.
func NextBreakpoint(m *content.MatterData, s state.SavedState, deltas map[string]float64) *state.Breakpoint {
	var next *state.Breakpoint
	consider := func(t float64, typ, key string) {
		if next == nil || t < next.TimeUntil {
			next = &state.Breakpoint{TimeUntil: t, Type: typ, Key: key}
		}
	}

	for _, item := range m.ItemKeys() {
		delta := deltas[item]
		if delta >= 0 {
			continue
		}
		count := s.Items[item].Count
		if count <= 0 {
			continue
		}
		consider(count/-delta, state.BreakpointResourceDepleted, item)
	}

	for _, key := range m.UpgradeKeys() {
		u := s.Upgrades[key]
		if !u.Active() || u.Durability == nil {
			continue
		}
		consider(*u.Durability, state.BreakpointUpgradeExpired, key)
	}
	return next
}
