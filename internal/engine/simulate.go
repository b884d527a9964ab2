package engine

import (
	"log/slog"
	"math"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/narrative"
	"github.com/roach88/matter/internal/solver"
	"github.com/roach88/matter/internal/state"
)

// DefaultMaxSegments bounds how many breakpoints one tick may cross.
const DefaultMaxSegments = 64

// TickResult is the outcome of one simulated tick.
type TickResult struct {
	State state.SavedState
	// Fired lists the narrative rules triggered at the end of the tick.
	Fired []content.NarrativeRule
	// Segments counts the constant-rate stretches the tick was split into.
	Segments int
}

// SimConfig tunes SimulateTick. The zero value uses the defaults.
type SimConfig struct {
	MaxSegments int
	Logger      *slog.Logger
}

func (c SimConfig) withDefaults() SimConfig {
	if c.MaxSegments <= 0 {
		c.MaxSegments = DefaultMaxSegments
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// SimulateTick advances s by dtMillis of game time.
//
// A dt that is negative or not finite counts as zero.
// Game time always advances by the full dt. Without a cached prediction
// nothing else changes before the narrative pass. Otherwise the tick is
// walked in segments: a segment ends early at the next breakpoint, where
// the depleted item is set to exactly zero or the upgrade expires, and
// the solver is re-run before the rest of the tick is simulated with the
// fresh rates. Counts and durabilities are clamped at zero throughout.
//
// If the narrative pass grants or removes items or generators, the
// prediction is recomputed so the next tick uses the new composition.
func SimulateTick(m *content.MatterData, s state.SavedState, dtMillis float64, cfg SimConfig) TickResult {
	cfg = cfg.withDefaults()

	seconds := dtMillis / 1000
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}

	next := s.Clone()
	next.Narrative.GameTime += seconds

	segments := 0
	if next.Prediction != nil {
		remaining := seconds
		for remaining > 0 {
			if segments == cfg.MaxSegments {
				cfg.Logger.Debug("tick segment limit reached",
					"segments", segments,
					"dropped_seconds", remaining,
				)
				break
			}
			segments++
			step, resolve := advance(next, remaining)
			remaining -= step
			if resolve {
				next.Prediction = solver.Solve(m, next, solver.WithLogger(cfg.Logger))
			}
		}
	}

	after, fired := narrative.ProcessEvents(m, next)
	if after.Prediction != nil && changesEconomy(fired) {
		after.Prediction = solver.Solve(m, after, solver.WithLogger(cfg.Logger))
	}

	return TickResult{State: after, Fired: fired, Segments: segments}
}

// advance applies one constant-rate segment of at most remaining seconds
// to s in place (s must be a private clone). It returns the segment length
// and whether the rates are now stale.
func advance(s state.SavedState, remaining float64) (float64, bool) {
	p := s.Prediction
	step := remaining
	resolve := false
	depleted := ""

	if bp := p.NextBreakpoint; bp != nil && bp.TimeUntil <= remaining {
		step = bp.TimeUntil
		resolve = true
		if bp.Type == state.BreakpointResourceDepleted {
			depleted = bp.Key
		}
	} else if bp != nil {
		// still ahead; keep it relative to the new now
		bp.TimeUntil -= step
	}

	for key, ip := range p.Result.Items {
		it, ok := s.Items[key]
		if !ok || ip.Delta == 0 {
			continue
		}
		it.Count = state.ClampItemCount(it.Count + ip.Delta*step)
		s.Items[key] = it
	}
	// floating error must not leave a sliver behind
	if it, ok := s.Items[depleted]; ok {
		it.Count = 0
		s.Items[depleted] = it
	}

	for key, u := range s.Upgrades {
		if !u.Acquired || u.Durability == nil {
			continue
		}
		before := *u.Durability
		after := max(0, before-step)
		if after == before {
			continue
		}
		if after <= 0 && before > 0 {
			resolve = true
		}
		u.Durability = state.Float(after)
		s.Upgrades[key] = u
	}

	return step, resolve
}

func changesEconomy(fired []content.NarrativeRule) bool {
	for _, r := range fired {
		for _, e := range r.Effects {
			switch e.Type {
			case content.GrantItem, content.GrantGenerator, content.RemoveItem, content.RemoveGenerator:
				return true
			}
		}
	}
	return false
}
