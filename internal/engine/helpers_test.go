package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/solver"
	"github.com/roach88/matter/internal/state"
)

// silentMatter is the default catalog without narrative rules, so tests
// can drive the economy without beats firing underneath them.
func silentMatter(t *testing.T) *content.MatterData {
	t.Helper()
	m := *content.MustDefault()
	m.Narrative = nil
	return &m
}

// economy builds a state with the given counts and a fresh prediction.
func economy(t *testing.T, m *content.MatterData, items map[string]float64, gens map[string]int) state.SavedState {
	t.Helper()
	s := state.CreateInitialState(m)
	for k, v := range items {
		it, ok := s.Items[k]
		require.True(t, ok, "unknown item %s", k)
		it.Count = v
		s.Items[k] = it
	}
	for k, v := range gens {
		g, ok := s.Generators[k]
		require.True(t, ok, "unknown generator %s", k)
		g.Count = v
		s.Generators[k] = g
	}
	s.Prediction = solver.Solve(m, s)
	return s
}
