package solver

import (
	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

// Rates are per-unit, per-second item flows of one generator.
type Rates struct {
	Inputs  map[string]float64
	Outputs map[string]float64
}

// IsUpgradeActive reports whether key is acquired and not expired.
func IsUpgradeActive(s state.SavedState, key string) bool {
	u, ok := s.Upgrades[key]
	return ok && u.Active()
}

// EffectiveRates returns the rates of generator key after applying every
// active upgrade that targets it.
//
// Efficiency effects multiply together and scale the base rates only. Flat
// effects (addOutput, addInput, reduceInput) are applied afterwards, in
// upgrade key order then effect order; reduceInput floors at zero.
func EffectiveRates(m *content.MatterData, s state.SavedState, key string) Rates {
	def := m.Generators[key]

	efficiency := 1.0
	var flat []content.UpgradeEffect
	for _, uk := range m.UpgradeKeys() {
		if !IsUpgradeActive(s, uk) {
			continue
		}
		for _, eff := range m.Upgrades[uk].Effects {
			if eff.Generator != key {
				continue
			}
			if eff.Type == content.EffectEfficiency {
				efficiency *= eff.Value
				continue
			}
			flat = append(flat, eff)
		}
	}

	r := Rates{
		Inputs:  make(map[string]float64, len(def.Inputs)),
		Outputs: make(map[string]float64, len(def.Outputs)),
	}
	for item, rate := range def.Inputs {
		r.Inputs[item] = rate * efficiency
	}
	for item, rate := range def.Outputs {
		r.Outputs[item] = rate * efficiency
	}

	for _, eff := range flat {
		if eff.Target == "" {
			continue
		}
		switch eff.Type {
		case content.EffectAddOutput:
			r.Outputs[eff.Target] += eff.Value
		case content.EffectAddInput:
			r.Inputs[eff.Target] += eff.Value
		case content.EffectReduceInput:
			r.Inputs[eff.Target] = max(0, r.Inputs[eff.Target]-eff.Value)
		}
	}
	return r
}

// Net returns output minus input for item, per unit at full utilisation.
func (r Rates) Net(item string) float64 {
	return r.Outputs[item] - r.Inputs[item]
}
