// Package solver predicts steady production rates.
//
// Every owned generator is a decision variable in [0,1] (its utilisation).
// Item rows stop the net consumption rate of an item from exceeding the
// inventory on hand; the objective maximises total utilisation. The
// all-zero point satisfies every row, so the program is always feasible.
package solver

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

const (
	tolerance = 1e-10
	snap      = 1e-9
)

type options struct {
	logger *slog.Logger
}

// Option configures Solve.
type Option func(*options)

// WithLogger sets the logger used for solver diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Solve builds and solves the production model for s and returns a fresh
// prediction. It never fails: if the simplex reports an error the zero
// utilisation is used and a warning is logged.
func Solve(m *content.MatterData, s state.SavedState, opts ...Option) *state.Prediction {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	p := buildProblem(m, s)
	x := solveProblem(p, o.logger)

	solution := make(map[string]float64, len(p.vars))
	for j, gk := range p.vars {
		solution[gk] = x[j]
	}

	res := state.Result{
		Items:      make(map[string]state.ItemPrediction, len(p.items)),
		Generators: make(map[string]state.GeneratorPrediction, len(m.Generators)),
	}
	deltas := make(map[string]float64, len(p.items))
	for _, item := range m.ItemKeys() {
		var delta, maxDelta float64
		for _, gk := range p.vars {
			maxChange := float64(s.Generators[gk].Count) * p.rates[gk].Net(item)
			maxDelta += maxChange
			delta += solution[gk] * maxChange
		}
		res.Items[item] = state.ItemPrediction{Delta: delta, MaxDelta: maxDelta}
		deltas[item] = delta
	}
	for _, gk := range m.GeneratorKeys() {
		gp := state.GeneratorPrediction{}
		if s.Generators[gk].Count > 0 {
			gp.Utilization = solution[gk]
			gp.UtilizationMax = 1
		}
		res.Generators[gk] = gp
	}

	return &state.Prediction{
		Model:          p.model,
		Solution:       solution,
		Result:         res,
		NextBreakpoint: NextBreakpoint(m, s, deltas),
	}
}

// solveProblem runs the simplex on p and returns one utilisation per
// variable, clamped to [0,1].
//
// The inequality form G·x ≤ h is rewritten as [G | I]·[x; slack] = h. Since
// every h is non-negative the slack columns form a feasible starting basis.
func solveProblem(p problem, logger *slog.Logger) []float64 {
	nv := len(p.vars)
	x := make([]float64, nv)
	if nv == 0 {
		return x
	}

	rows := len(p.rows)
	cols := nv + rows
	a := mat.NewDense(rows, cols, nil)
	for i := range p.g {
		for j, v := range p.g[i] {
			a.Set(i, j, v)
		}
		a.Set(i, nv+i, 1)
	}
	c := make([]float64, cols)
	for j := 0; j < nv; j++ {
		c[j] = -1 // Simplex minimises
	}
	basic := make([]int, rows)
	for i := range basic {
		basic[i] = nv + i
	}

	_, optX, err := lp.Simplex(c, a, p.h, tolerance, basic)
	if err != nil {
		logger.Warn("simplex failed, assuming zero utilisation",
			"error", err,
			"variables", nv,
			"rows", rows,
		)
		return x
	}
	for j := 0; j < nv; j++ {
		x[j] = clampUnit(optX[j])
	}
	return x
}

func clampUnit(v float64) float64 {
	switch {
	case v < snap:
		return 0
	case v > 1-snap:
		return 1
	default:
		return v
	}
}
