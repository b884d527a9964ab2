package solver

import (
	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// objective is the name of the variable coefficient the model maximises.
const objective = "priority"

// problem is the LP in a form ready for the simplex: maximise Σx subject to
// G·x ≤ h, x ≥ 0. Rows are item rows followed by one utilisation row per
// variable.
type problem struct {
	vars  []string           // owned generators, in key order
	rates map[string]Rates   // effective rates per owned generator
	rows  []string           // constraint names, parallel to g and h
	g     [][]float64        // len(rows) × len(vars)
	h     []float64          // right-hand sides, all ≥ 0
	model state.Model        // inspection copy of the same LP
	items map[string]float64 // inventory per item
}

// buildProblem collects effective rates for every owned generator and lays
// out the constraint matrix. Items no owned generator touches get no row in
// the matrix but are still recorded in the model.
func buildProblem(m *content.MatterData, s state.SavedState) problem {
	p := problem{
		rates: make(map[string]Rates),
		items: make(map[string]float64, len(s.Items)),
		model: state.Model{
			Optimize:    objective,
			OpType:      "max",
			Constraints: make(map[string]state.Bound),
			Variables:   make(map[string]map[string]float64),
		},
	}

	itemKeys := m.ItemKeys()
	genKeys := m.GeneratorKeys()

	for _, key := range itemKeys {
		count := max(0, s.Items[key].Count)
		p.items[key] = count
		p.model.Constraints[key] = state.Bound{Max: count}
	}
	for _, key := range genKeys {
		p.model.Constraints[key] = state.Bound{Max: 1}
		if s.Generators[key].Count > 0 {
			p.vars = append(p.vars, key)
			p.rates[key] = EffectiveRates(m, s, key)
		}
	}

	for _, gk := range p.vars {
		count := float64(s.Generators[gk].Count)
		r := p.rates[gk]
		v := map[string]float64{objective: 1}
		for _, other := range genKeys {
			v[other] = 0
		}
		v[gk] = 1
		for _, item := range itemKeys {
			// positive = consumption
			v[item] = count * (r.Inputs[item] - r.Outputs[item])
		}
		p.model.Variables[gk] = v
	}

	for _, item := range itemKeys {
		row := make([]float64, len(p.vars))
		used := false
		for j, gk := range p.vars {
			row[j] = p.model.Variables[gk][item]
			if row[j] != 0 {
				used = true
			}
		}
		if !used {
			continue
		}
		p.rows = append(p.rows, item)
		p.g = append(p.g, row)
		p.h = append(p.h, p.items[item])
	}
	for j, gk := range p.vars {
		row := make([]float64, len(p.vars))
		row[j] = 1
		p.rows = append(p.rows, gk)
		p.g = append(p.g, row)
		p.h = append(p.h, 1)
	}
	return p
}
