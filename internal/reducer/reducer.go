// Package reducer maps (catalog, state, action) to the next state.
//
// Reduce is total and pure. Invalid requests (unknown keys, unaffordable
// purchases, unknown action types) return the input state unchanged together
// with a non-nil error describing why; callers log the error and carry on.
// Time steps, solver runs and narrative actions are owned by the engine and
// pass through unchanged.
package reducer

import (
	"errors"
	"fmt"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/state"
)

var (
	ErrUnknownKey    = errors.New("unknown key")
	ErrUnknownAction = errors.New("unknown action")
	ErrUnaffordable  = errors.New("unaffordable")
	ErrInvalidCount  = errors.New("invalid count")
	ErrInvalidValue  = errors.New("invalid value")
	ErrAlreadyActive = errors.New("upgrade already active")
)

// Reduce applies a to s. On error the returned state is s itself.
func Reduce(m *content.MatterData, s state.SavedState, a Action) (state.SavedState, error) {
	switch act := a.(type) {
	case SetTopic:
		if _, ok := m.Topics[act.Topic]; !ok {
			return s, fmt.Errorf("%w: topic %q", ErrUnknownKey, act.Topic)
		}
		next := s.Clone()
		next.Active.Topic = act.Topic
		return next, nil

	case SetTopicItem:
		if _, ok := m.Topics[act.Topic]; !ok {
			return s, fmt.Errorf("%w: topic %q", ErrUnknownKey, act.Topic)
		}
		if _, ok := m.Items[act.Item]; !ok {
			return s, fmt.Errorf("%w: item %q", ErrUnknownKey, act.Item)
		}
		next := s.Clone()
		if next.Active.Item == nil {
			next.Active.Item = make(map[string]string)
		}
		next.Active.Item[act.Topic] = act.Item
		return next, nil

	case SetLeadScientist:
		if _, ok := m.Scientists[act.Scientist]; !ok {
			return s, fmt.Errorf("%w: scientist %q", ErrUnknownKey, act.Scientist)
		}
		next := s.Clone()
		next.LeadScientist = act.Scientist
		return next, nil

	case UpdateGeneratorCount:
		g, ok := s.Generators[act.Generator]
		if !ok {
			return s, fmt.Errorf("%w: generator %q", ErrUnknownKey, act.Generator)
		}
		next := s.Clone()
		g.Count = state.ClampGeneratorCount(act.Count)
		next.Generators[act.Generator] = g
		return next, nil

	case UpdateItemCount:
		it, ok := s.Items[act.Item]
		if !ok {
			return s, fmt.Errorf("%w: item %q", ErrUnknownKey, act.Item)
		}
		next := s.Clone()
		it.Count = state.ClampItemCount(act.Count)
		next.Items[act.Item] = it
		return next, nil

	case UpdateSettings:
		next := s.Clone()
		if act.NumberFormat != nil {
			switch *act.NumberFormat {
			case state.FormatScientific, state.FormatCompact, state.FormatFull:
				next.Settings.NumberFormat = *act.NumberFormat
			default:
				return s, fmt.Errorf("%w: number format %q", ErrInvalidValue, *act.NumberFormat)
			}
		}
		return next, nil

	case PurchaseGenerator:
		return purchaseGenerator(m, s, act)

	case SellGenerator:
		return sellGenerator(m, s, act)

	case PurchaseUpgrade:
		return purchaseUpgrade(m, s, act)

	case ResetState:
		return state.CreateInitialState(m), nil

	case UpdatePrediction, Tick, DismissNarrativeModal, TriggerNarrativeEvent, LoadState:
		return s, nil

	case Unknown:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, act.Type)

	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func purchaseGenerator(m *content.MatterData, s state.SavedState, act PurchaseGenerator) (state.SavedState, error) {
	if act.Count <= 0 {
		return s, fmt.Errorf("%w: purchase %d %s", ErrInvalidCount, act.Count, act.Generator)
	}
	def, ok := m.Generators[act.Generator]
	if !ok {
		return s, fmt.Errorf("%w: generator %q", ErrUnknownKey, act.Generator)
	}

	gs := s.Generators[act.Generator]
	if act.Count > state.MaxGeneratorCount-gs.Count {
		return s, fmt.Errorf("%w: purchase %d %s with %d owned exceeds %d",
			ErrInvalidCount, act.Count, act.Generator, gs.Count, state.MaxGeneratorCount)
	}
	cost := PurchaseCost(def, gs.Count, act.Count)
	if !CanAfford(s, cost) {
		return s, fmt.Errorf("%w: %d %s", ErrUnaffordable, act.Count, act.Generator)
	}

	next := s.Clone()
	deduct(next, cost)
	gs.Count += act.Count
	next.Generators[act.Generator] = gs
	return next, nil
}

func sellGenerator(m *content.MatterData, s state.SavedState, act SellGenerator) (state.SavedState, error) {
	def, ok := m.Generators[act.Generator]
	if !ok {
		return s, fmt.Errorf("%w: generator %q", ErrUnknownKey, act.Generator)
	}
	gs := s.Generators[act.Generator]
	if act.Count <= 0 || act.Count > gs.Count {
		return s, fmt.Errorf("%w: sell %d of %d %s", ErrInvalidCount, act.Count, gs.Count, act.Generator)
	}

	refund := SellRefund(def, gs.Count, act.Count)

	next := s.Clone()
	for item, amount := range refund {
		it, ok := next.Items[item]
		if !ok {
			continue
		}
		it.Count = state.ClampItemCount(it.Count + amount)
		next.Items[item] = it
	}
	gs.Count -= act.Count
	next.Generators[act.Generator] = gs
	return next, nil
}

func purchaseUpgrade(m *content.MatterData, s state.SavedState, act PurchaseUpgrade) (state.SavedState, error) {
	def, ok := m.Upgrades[act.Upgrade]
	if !ok {
		return s, fmt.Errorf("%w: upgrade %q", ErrUnknownKey, act.Upgrade)
	}
	us := s.Upgrades[act.Upgrade]
	if us.Active() {
		return s, fmt.Errorf("%w: %s", ErrAlreadyActive, act.Upgrade)
	}
	if !CanAfford(s, def.Cost) {
		return s, fmt.Errorf("%w: upgrade %s", ErrUnaffordable, act.Upgrade)
	}

	next := s.Clone()
	deduct(next, def.Cost)
	us.Acquired = true
	us.Durability = nil
	if def.Expiration != nil {
		us.Durability = state.Float(*def.Expiration)
	}
	next.Upgrades[act.Upgrade] = us
	return next, nil
}

// deduct subtracts cost from a state the caller already owns (a clone).
func deduct(s state.SavedState, cost map[string]float64) {
	for item, amount := range cost {
		it, ok := s.Items[item]
		if !ok {
			continue
		}
		it.Count = state.ClampItemCount(it.Count - amount)
		s.Items[item] = it
	}
}

// ChangesEconomy reports whether an action can alter inventory, ownership
// or upgrade state, and so invalidate a cached prediction.
func ChangesEconomy(a Action) bool {
	switch a.(type) {
	case UpdateGeneratorCount, UpdateItemCount, PurchaseGenerator, SellGenerator, PurchaseUpgrade, ResetState:
		return true
	}
	return false
}
