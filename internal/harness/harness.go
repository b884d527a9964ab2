package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

// Harness executes one scenario against a fresh game.
type Harness struct {
	game   *engine.Game
	logger *slog.Logger

	// fired collects narrative events of the action being dispatched
	fired []string
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load the catalog and create a fresh game
// 2. Apply setup steps
// 3. Dispatch flow steps, tracing each and checking expect clauses
// 4. Evaluate assertions against the trace and the final state
//
// An error is returned only when the scenario cannot be executed (missing
// catalog, undecodable action); failed expectations are reported in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	m, err := loadMatter(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))} // Suppress logs in tests
	h.game = engine.New(m, engine.WithLogger(h.logger))
	h.game.On(engine.EventNarrative, func(ev engine.Event) {
		h.fired = append(h.fired, ev.Rule.Key)
	})

	for i, step := range scenario.Setup {
		for _, a := range repeat(step) {
			act, err := actionFor(a)
			if err != nil {
				return nil, fmt.Errorf("setup step %d: %w", i, err)
			}
			h.game.Dispatch(act)
		}
	}

	result := NewResult()
	if err := h.executeFlow(scenario.Flow, result); err != nil {
		return nil, err
	}

	final, err := stateJSON(h.game.State())
	if err != nil {
		return nil, err
	}
	result.State = final

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadMatter returns the catalog a scenario runs against.
func loadMatter(s *Scenario) (*content.MatterData, error) {
	var m *content.MatterData
	if s.Content == "" {
		def, err := content.Default()
		if err != nil {
			return nil, err
		}
		m = def
	} else {
		loaded, err := content.LoadDir(s.Content)
		if err != nil {
			return nil, fmt.Errorf("load content: %w", err)
		}
		m = loaded
	}
	if s.Silent {
		silent := *m
		silent.Narrative = nil
		m = &silent
	}
	return m, nil
}

func (h *Harness) executeFlow(flow []Step, result *Result) error {
	for i, step := range flow {
		reps := repeat(step)
		for r, a := range reps {
			act, err := actionFor(a)
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}

			before, err := state.Fingerprint(h.game.State())
			if err != nil {
				return err
			}
			h.fired = nil
			h.game.Dispatch(act)
			after, err := state.Fingerprint(h.game.State())
			if err != nil {
				return err
			}

			ev := TraceEvent{
				Seq:     h.game.Seq(),
				Action:  act.Kind(),
				Args:    a.Args,
				Changed: before != after,
				Fired:   slices.Clone(h.fired),
			}
			result.Trace = append(result.Trace, ev)

			if r == len(reps)-1 && step.Expect != nil {
				for _, msg := range checkExpect(i, ev, step.Expect) {
					result.AddError(msg)
				}
			}

			h.logger.Debug("flow step applied", "step", i, "action", ev.Action, "seq", ev.Seq)
		}
	}
	return nil
}

func checkExpect(index int, ev TraceEvent, want *ExpectClause) []string {
	var errs []string
	if want.Fired != nil && !slices.Equal(want.Fired, nonNil(ev.Fired)) {
		errs = append(errs, fmt.Sprintf("flow[%d] %s: fired %v, expected %v", index, ev.Action, ev.Fired, want.Fired))
	}
	if want.Changed != nil && *want.Changed != ev.Changed {
		errs = append(errs, fmt.Sprintf("flow[%d] %s: changed=%v, expected %v", index, ev.Action, ev.Changed, *want.Changed))
	}
	return errs
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// repeat expands a step into the actions it dispatches.
func repeat(step Step) []Step {
	n := max(1, step.Repeat)
	one := step
	if step.Tick != 0 {
		one = Step{Action: "tick", Args: map[string]any{"dt": step.Tick}}
	}
	out := make([]Step, n)
	for i := range out {
		out[i] = one
	}
	return out
}

// actionFor builds the wire form of a step and decodes it, so scenarios
// exercise the same decoder as network clients.
func actionFor(step Step) (reducer.Action, error) {
	env := map[string]any{"type": step.Action}
	if len(step.Args) > 0 {
		env["payload"] = step.Args
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", step.Action, err)
	}
	a, err := reducer.DecodeAction(data)
	if err != nil {
		return nil, err
	}
	if u, ok := a.(reducer.Unknown); ok {
		return nil, fmt.Errorf("unknown action %q", u.Type)
	}
	return a, nil
}

func stateJSON(s state.SavedState) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
