package solver

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

type setup struct {
	items      map[string]float64
	generators map[string]int
	upgrades   map[string]*float64 // acquired, with durability
}

func build(t *testing.T, m *content.MatterData, su setup) state.SavedState {
	t.Helper()
	s := state.CreateInitialState(m)
	for k, v := range su.items {
		require.Contains(t, s.Items, k)
		it := s.Items[k]
		it.Count = v
		s.Items[k] = it
	}
	for k, v := range su.generators {
		require.Contains(t, s.Generators, k)
		g := s.Generators[k]
		g.Count = v
		s.Generators[k] = g
	}
	for k, d := range su.upgrades {
		require.Contains(t, s.Upgrades, k)
		u := s.Upgrades[k]
		u.Acquired = true
		u.Durability = d
		s.Upgrades[k] = u
	}
	return s
}

func TestSolve_NoGenerators(t *testing.T) {
	m := content.MustDefault()
	p := Solve(m, state.CreateInitialState(m), quiet)

	require.NotNil(t, p)
	assert.Zero(t, p.Result.Items["photon"].Delta)
	assert.Empty(t, p.Solution)
	assert.Nil(t, p.NextBreakpoint)
	assert.Len(t, p.Result.Generators, len(m.Generators))
	assert.Zero(t, p.Result.Generators["flashlight"].UtilizationMax)
}

func TestSolve_Flashlights(t *testing.T) {
	m := content.MustDefault()
	s := build(t, m, setup{generators: map[string]int{"flashlight": 10}})

	p := Solve(m, s, quiet)
	assert.Equal(t, 10.0, p.Result.Items["photon"].Delta)
	assert.Equal(t, 10.0, p.Result.Items["photon"].MaxDelta)
	assert.Equal(t, 1.0, p.Result.Generators["flashlight"].Utilization)
	assert.Equal(t, 1.0, p.Result.Generators["flashlight"].UtilizationMax)
	assert.Nil(t, p.NextBreakpoint)
}

func TestSolve_SolarPanelStarved(t *testing.T) {
	m := content.MustDefault()
	s := build(t, m, setup{generators: map[string]int{"solarpanel": 1}})

	p := Solve(m, s, quiet)
	assert.Zero(t, p.Result.Generators["solarpanel"].Utilization)
	assert.Equal(t, 1.0, p.Result.Generators["solarpanel"].UtilizationMax)
	assert.Zero(t, p.Result.Items["electron"].Delta)
	assert.Equal(t, 1.0, p.Result.Items["electron"].MaxDelta)
	assert.Nil(t, p.NextBreakpoint, "nothing left to deplete")
}

func TestSolve_SolarPanelFed(t *testing.T) {
	m := content.MustDefault()
	s := build(t, m, setup{
		items:      map[string]float64{"photon": 100},
		generators: map[string]int{"solarpanel": 1},
	})

	p := Solve(m, s, quiet)
	assert.Equal(t, 1.0, p.Result.Generators["solarpanel"].Utilization)
	assert.Equal(t, 1.0, p.Result.Items["electron"].Delta)
	assert.Equal(t, -100.0, p.Result.Items["photon"].Delta)

	require.NotNil(t, p.NextBreakpoint)
	assert.Equal(t, state.Breakpoint{TimeUntil: 1, Type: state.BreakpointResourceDepleted, Key: "photon"}, *p.NextBreakpoint)
}

func TestSolve_PartialUtilization(t *testing.T) {
	m := content.MustDefault()
	s := build(t, m, setup{
		items:      map[string]float64{"photon": 100},
		generators: map[string]int{"solarpanel": 2},
	})

	p := Solve(m, s, quiet)
	assert.InDelta(t, 0.5, p.Result.Generators["solarpanel"].Utilization, 1e-12)
	assert.InDelta(t, 1.0, p.Result.Items["electron"].Delta, 1e-9)
	assert.InDelta(t, 2.0, p.Result.Items["electron"].MaxDelta, 1e-9)
}

func TestSolve_BalancedChain(t *testing.T) {
	m := content.MustDefault()
	s := build(t, m, setup{
		items:      map[string]float64{"photon": 100},
		generators: map[string]int{"flashlight": 100, "solarpanel": 1},
	})

	p := Solve(m, s, quiet)
	assert.InDelta(t, 0, p.Result.Items["photon"].Delta, 1e-9)
	assert.Equal(t, 1.0, p.Result.Items["electron"].Delta)
	assert.Equal(t, 1.0, p.Result.Generators["flashlight"].Utilization)
	assert.Equal(t, 1.0, p.Result.Generators["solarpanel"].Utilization)
	assert.Nil(t, p.NextBreakpoint)
}

func TestSolve_UtilizationBounds(t *testing.T) {
	m := content.MustDefault()
	cases := []setup{
		{generators: map[string]int{"flashlight": 3, "solarpanel": 7}, items: map[string]float64{"photon": 42}},
		{generators: map[string]int{"laser": 1, "solarpanel": 250}},
		{generators: map[string]int{"flashlight": 1, "laserpointer": 2, "laser": 3, "solarpanel": 4}, items: map[string]float64{"photon": 1e6}},
	}
	for _, c := range cases {
		p := Solve(m, build(t, m, c), quiet)
		for gk, gp := range p.Result.Generators {
			assert.GreaterOrEqual(t, gp.Utilization, 0.0, gk)
			assert.LessOrEqual(t, gp.Utilization, 1.0, gk)
		}
	}
}

func TestSolve_ModelShape(t *testing.T) {
	m := content.MustDefault()
	s := build(t, m, setup{
		items:      map[string]float64{"photon": 5},
		generators: map[string]int{"solarpanel": 2},
	})

	model := Solve(m, s, quiet).Model
	assert.Equal(t, "priority", model.Optimize)
	assert.Equal(t, "max", model.OpType)
	assert.Equal(t, state.Bound{Max: 5}, model.Constraints["photon"])
	assert.Equal(t, state.Bound{Max: 1}, model.Constraints["solarpanel"])
	require.Contains(t, model.Variables, "solarpanel")
	assert.NotContains(t, model.Variables, "flashlight", "unowned generators are not variables")

	v := model.Variables["solarpanel"]
	assert.Equal(t, 200.0, v["photon"])
	assert.Equal(t, -2.0, v["electron"])
	assert.Equal(t, 1.0, v["solarpanel"])
	assert.Equal(t, 0.0, v["flashlight"])
}

func TestEffectiveRates(t *testing.T) {
	m := content.MustDefault()

	base := build(t, m, setup{})
	assert.Equal(t, map[string]float64{"photon": 1}, EffectiveRates(m, base, "flashlight").Outputs)

	boosted := build(t, m, setup{upgrades: map[string]*float64{
		"lipobat":    nil,
		"turboboost": state.Float(10),
	}})
	assert.Equal(t, map[string]float64{"photon": 6}, EffectiveRates(m, boosted, "flashlight").Outputs)

	expired := build(t, m, setup{upgrades: map[string]*float64{"turboboost": state.Float(0)}})
	assert.False(t, IsUpgradeActive(expired, "turboboost"))
	assert.Equal(t, map[string]float64{"photon": 1}, EffectiveRates(m, expired, "flashlight").Outputs)

	cooled := build(t, m, setup{upgrades: map[string]*float64{"solarcooling": nil}})
	r := EffectiveRates(m, cooled, "solarpanel")
	assert.Equal(t, map[string]float64{"photon": 150}, r.Inputs)
	assert.Equal(t, map[string]float64{"electron": 1.5}, r.Outputs)
}

func TestEffectiveRates_FlatEffectsAreNotScaled(t *testing.T) {
	m := *content.MustDefault()
	m.Upgrades = map[string]content.Upgrade{
		"overclock": {Key: "overclock", Effects: []content.UpgradeEffect{
			{Generator: "solarpanel", Type: content.EffectEfficiency, Value: 2},
			{Generator: "solarpanel", Type: content.EffectAddOutput, Target: "photon", Value: 5},
			{Generator: "solarpanel", Type: content.EffectReduceInput, Target: "photon", Value: 500},
			{Generator: "solarpanel", Type: content.EffectAddInput, Target: "electron", Value: 0.25},
		}},
	}
	s := build(t, &m, setup{upgrades: map[string]*float64{"overclock": nil}})

	r := EffectiveRates(&m, s, "solarpanel")
	assert.Equal(t, map[string]float64{"photon": 0, "electron": 0.25}, r.Inputs)
	assert.Equal(t, map[string]float64{"electron": 2, "photon": 5}, r.Outputs)
	assert.Equal(t, 5.0, r.Net("photon"))
}

func TestNextBreakpoint(t *testing.T) {
	m := content.MustDefault()

	t.Run("depletion is stock over rate", func(t *testing.T) {
		s := build(t, m, setup{items: map[string]float64{"photon": 250}})
		bp := NextBreakpoint(m, s, map[string]float64{"photon": -100})
		require.NotNil(t, bp)
		assert.Equal(t, 2.5, bp.TimeUntil)
	})

	t.Run("empty stock is not a breakpoint", func(t *testing.T) {
		s := build(t, m, setup{})
		assert.Nil(t, NextBreakpoint(m, s, map[string]float64{"photon": -100}))
	})

	t.Run("expiring upgrade", func(t *testing.T) {
		s := build(t, m, setup{upgrades: map[string]*float64{"turboboost": state.Float(12), "lipobat": nil}})
		bp := NextBreakpoint(m, s, nil)
		require.NotNil(t, bp)
		assert.Equal(t, state.Breakpoint{TimeUntil: 12, Type: state.BreakpointUpgradeExpired, Key: "turboboost"}, *bp)
	})

	t.Run("earliest wins", func(t *testing.T) {
		s := build(t, m, setup{
			items:    map[string]float64{"photon": 300},
			upgrades: map[string]*float64{"turboboost": state.Float(2)},
		})
		bp := NextBreakpoint(m, s, map[string]float64{"photon": -100})
		require.NotNil(t, bp)
		assert.Equal(t, "turboboost", bp.Key)
	})

	t.Run("ties go to items, then key order", func(t *testing.T) {
		s := build(t, m, setup{
			items:    map[string]float64{"photon": 200, "electron": 2},
			upgrades: map[string]*float64{"turboboost": state.Float(2)},
		})
		bp := NextBreakpoint(m, s, map[string]float64{"photon": -100, "electron": -1})
		require.NotNil(t, bp)
		assert.Equal(t, state.Breakpoint{TimeUntil: 2, Type: state.BreakpointResourceDepleted, Key: "electron"}, *bp)
	})
}
