package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/solver"
	"github.com/roach88/matter/internal/state"
	"github.com/roach88/matter/internal/testutil"
)

func TestSimulateTick_NoPrediction(t *testing.T) {
	m := silentMatter(t)
	s := state.CreateInitialState(m)
	s.Generators["flashlight"] = state.GeneratorState{Count: 5}

	res := SimulateTick(m, s, 2500, SimConfig{Logger: testutil.DiscardLogger()})

	assert.InDelta(t, 2.5, res.State.Narrative.GameTime, 1e-12)
	assert.Zero(t, res.State.Items["photon"].Count, "no prediction, no production")
	assert.Zero(t, res.Segments)
	assert.Nil(t, res.State.Prediction)
}

func TestSimulateTick_IgnoresBadDT(t *testing.T) {
	m := silentMatter(t)
	s := economy(t, m, nil, map[string]int{"flashlight": 1})

	for _, dt := range []float64{-1000, math.NaN(), math.Inf(1), math.Inf(-1)} {
		res := SimulateTick(m, s, dt, SimConfig{Logger: testutil.DiscardLogger()})

		assert.Zero(t, res.State.Narrative.GameTime, "dt=%v", dt)
		assert.Zero(t, res.State.Items["photon"].Count, "dt=%v", dt)
	}
}

func TestSimulateTick_DoesNotMutateInput(t *testing.T) {
	m := silentMatter(t)
	s := economy(t, m, map[string]float64{"photon": 1000}, map[string]int{"solarpanel": 1})

	_ = SimulateTick(m, s, 4000, SimConfig{Logger: testutil.DiscardLogger()})

	assert.Equal(t, 1000.0, s.Items["photon"].Count)
	require.NotNil(t, s.Prediction.NextBreakpoint)
	assert.Equal(t, 10.0, s.Prediction.NextBreakpoint.TimeUntil)
}

func TestSimulateTick_BreakpointAhead(t *testing.T) {
	m := silentMatter(t)
	s := economy(t, m, map[string]float64{"photon": 1000}, map[string]int{"solarpanel": 1})

	res := SimulateTick(m, s, 4000, SimConfig{Logger: testutil.DiscardLogger()})

	assert.InDelta(t, 600, res.State.Items["photon"].Count, 1e-9)
	assert.InDelta(t, 4, res.State.Items["electron"].Count, 1e-9)
	assert.Equal(t, 1, res.Segments)

	bp := res.State.Prediction.NextBreakpoint
	require.NotNil(t, bp)
	assert.InDelta(t, 6, bp.TimeUntil, 1e-9, "breakpoint stays relative to now")
	assert.Equal(t, state.BreakpointResourceDepleted, bp.Type)
}

func TestSimulateTick_CrossesDepletion(t *testing.T) {
	m := silentMatter(t)
	s := economy(t, m, map[string]float64{"photon": 1000}, map[string]int{"solarpanel": 1})

	res := SimulateTick(m, s, 20000, SimConfig{Logger: testutil.DiscardLogger()})

	assert.Equal(t, 0.0, res.State.Items["photon"].Count, "depleted item snaps to zero")
	assert.InDelta(t, 10, res.State.Items["electron"].Count, 1e-9)
	assert.Equal(t, 2, res.Segments)
	assert.InDelta(t, 20, res.State.Narrative.GameTime, 1e-12)

	p := res.State.Prediction
	require.NotNil(t, p)
	assert.Nil(t, p.NextBreakpoint)
	assert.Zero(t, p.Result.Generators["solarpanel"].Utilization)
}

func TestSimulateTick_SegmentLimit(t *testing.T) {
	m := silentMatter(t)
	s := economy(t, m,
		map[string]float64{"photon": 1000},
		map[string]int{"solarpanel": 1, "flashlight": 1},
	)
	// flashlight refills 1/s while the panel burns 100/s
	res := SimulateTick(m, s, 60000, SimConfig{MaxSegments: 1, Logger: testutil.DiscardLogger()})

	assert.Equal(t, 1, res.Segments)
	assert.InDelta(t, 60, res.State.Narrative.GameTime, 1e-12, "game time always advances in full")
	assert.Equal(t, 0.0, res.State.Items["photon"].Count)
}

func TestSimulateTick_UpgradeExpiry(t *testing.T) {
	m := silentMatter(t)
	s := state.CreateInitialState(m)
	s.Generators["flashlight"] = state.GeneratorState{Count: 1}
	s.Upgrades["turboboost"] = state.UpgradeState{Acquired: true, Durability: state.Float(60)}
	s.Prediction = solver.Solve(m, s)
	require.InDelta(t, 3, s.Prediction.Result.Items["photon"].Delta, 1e-9)

	res := SimulateTick(m, s, 100000, SimConfig{Logger: testutil.DiscardLogger()})

	// 60 s at 3/s, then 40 s at 1/s
	assert.InDelta(t, 220, res.State.Items["photon"].Count, 1e-9)
	assert.Equal(t, 2, res.Segments)

	u := res.State.Upgrades["turboboost"]
	require.NotNil(t, u.Durability)
	assert.Zero(t, *u.Durability)
	assert.False(t, u.Active())
	assert.InDelta(t, 1, res.State.Prediction.Result.Items["photon"].Delta, 1e-9)
}

func TestSimulateTick_PermanentUpgradeDoesNotDecay(t *testing.T) {
	m := silentMatter(t)
	s := state.CreateInitialState(m)
	s.Generators["flashlight"] = state.GeneratorState{Count: 1}
	s.Upgrades["lipobat"] = state.UpgradeState{Acquired: true}
	s.Prediction = solver.Solve(m, s)

	res := SimulateTick(m, s, 10000, SimConfig{Logger: testutil.DiscardLogger()})

	assert.Nil(t, res.State.Upgrades["lipobat"].Durability)
	assert.InDelta(t, 20, res.State.Items["photon"].Count, 1e-9)
}

func TestSimulateTick_NarrativeGrantResolves(t *testing.T) {
	m := content.MustDefault()
	s := state.CreateInitialState(m)
	s.Prediction = solver.Solve(m, s)

	res := SimulateTick(m, s, 1000, SimConfig{Logger: testutil.DiscardLogger()})

	require.Len(t, res.Fired, 1)
	assert.Equal(t, "welcome", res.Fired[0].Key)
	assert.Equal(t, 1, res.State.Generators["flashlight"].Count)
	assert.InDelta(t, 1, res.State.Prediction.Result.Items["photon"].Delta, 1e-9,
		"granted flashlight is in the new prediction")
}
