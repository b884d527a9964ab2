package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

var (
	extremeCounts = []int{-1, 0, 1, 2, 10, 1000, state.MaxGeneratorCount, math.MaxInt}
	extremeItems  = []float64{-5, 0, 1, 250, 1e6, 1e308, math.MaxFloat64}
	extremeDTs    = []float64{0, 16, 100, 1000, 60_000, 1e7, 1e12, -5, math.Inf(1), math.NaN()}
)

func pick[T any](r *rand.Rand, xs []T) T {
	return xs[r.IntN(len(xs))]
}

// randomAction draws from every action the runner can receive, biased
// towards ticks and purchases.
func randomAction(r *rand.Rand, m *content.MatterData) reducer.Action {
	gens, items, ups := m.GeneratorKeys(), m.ItemKeys(), m.UpgradeKeys()

	switch r.IntN(12) {
	case 0, 1, 2:
		return reducer.Tick{DT: pick(r, extremeDTs)}
	case 3, 4:
		return reducer.PurchaseGenerator{Generator: pick(r, gens), Count: pick(r, extremeCounts)}
	case 5:
		return reducer.SellGenerator{Generator: pick(r, gens), Count: pick(r, extremeCounts)}
	case 6:
		return reducer.PurchaseUpgrade{Upgrade: pick(r, ups)}
	case 7:
		return reducer.UpdateItemCount{Item: pick(r, items), Count: pick(r, extremeItems)}
	case 8:
		return reducer.UpdateGeneratorCount{Generator: pick(r, gens), Count: pick(r, extremeCounts)}
	case 9:
		return reducer.TriggerNarrativeEvent{EventKey: pick(r, m.Narrative).Key}
	case 10:
		if r.IntN(2) == 0 {
			return reducer.DismissNarrativeModal{}
		}
		return reducer.UpdatePrediction{}
	default:
		if r.IntN(20) == 0 {
			return reducer.ResetState{}
		}
		return reducer.Tick{DT: 100}
	}
}

func checkInvariants(s state.SavedState) error {
	for k, it := range s.Items {
		if math.IsNaN(it.Count) || math.IsInf(it.Count, 0) || it.Count < 0 {
			return fmt.Errorf("item %s count %v", k, it.Count)
		}
	}
	for k, g := range s.Generators {
		if g.Count < 0 || g.Count > state.MaxGeneratorCount {
			return fmt.Errorf("generator %s count %d", k, g.Count)
		}
	}
	for k, u := range s.Upgrades {
		if u.Durability != nil && !(*u.Durability >= 0) {
			return fmt.Errorf("upgrade %s durability %v", k, *u.Durability)
		}
	}
	if !(s.Narrative.GameTime >= 0) {
		return fmt.Errorf("game time %v", s.Narrative.GameTime)
	}
	return nil
}

func TestGame_RandomSequencesKeepCountsInRange(t *testing.T) {
	m := content.MustDefault()

	for seed := uint64(1); seed <= 8; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			r := rand.New(rand.NewPCG(seed, seed*7919))
			g := newGame(t, m)
			g.Dispatch(reducer.ResetState{})

			for step := 0; step < 400; step++ {
				a := randomAction(r, m)
				g.Dispatch(a)
				require.NoError(t, checkInvariants(g.State()), "step %d after %#v", step, a)
			}
			require.Equal(t, int64(401), g.Seq())
		})
	}
}

func TestGame_RandomSequencesSurviveSaveLoad(t *testing.T) {
	m := content.MustDefault()
	r := rand.New(rand.NewPCG(42, 42))
	g := newGame(t, m)
	g.Dispatch(reducer.ResetState{})

	for step := 0; step < 200; step++ {
		switch a := randomAction(r, m).(type) {
		case reducer.UpdateItemCount:
			// keep the economy small enough for every rate to stay finite
			a.Count = math.Min(a.Count, 1e6)
			g.Dispatch(a)
		case reducer.UpdateGeneratorCount:
			a.Count = min(a.Count, 1000)
			g.Dispatch(a)
		case reducer.Tick:
			a.DT = math.Min(a.DT, 60_000)
			g.Dispatch(a)
		default:
			g.Dispatch(a)
		}
	}

	data, err := g.Save()
	require.NoError(t, err)

	restored := newGame(t, m)
	require.True(t, restored.Load(data))
	require.NoError(t, checkInvariants(restored.State()))
}
