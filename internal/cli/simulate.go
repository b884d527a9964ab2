package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/format"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Seconds float64
	Tick    float64 // milliseconds
	Save    string
	Out     string
	Actions []string
}

// SimulatedItem is one available item at the end of a simulation.
type SimulatedItem struct {
	Key   string  `json:"key"`
	Count float64 `json:"count"`
	Delta float64 `json:"delta"`
}

// SimulatedGenerator is one owned generator at the end of a simulation.
type SimulatedGenerator struct {
	Key         string  `json:"key"`
	Count       int     `json:"count"`
	Utilization float64 `json:"utilization"`
}

// SimulateResult summarises a headless run.
type SimulateResult struct {
	Seq        int64                `json:"seq"`
	GameTime   float64              `json:"game_time"`
	Items      []SimulatedItem      `json:"items"`
	Generators []SimulatedGenerator `json:"generators"`
	Breakpoint *state.Breakpoint    `json:"breakpoint,omitempty"`
	Fired      []string             `json:"fired"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the economy headless for a span of game time",
		Long: `Run a game without a host loop and report where it ends up.

The game starts from a fresh reset, or from a save file given with --save.
Each --action (wire JSON, {"type":...,"payload":{...}}) is dispatched in
order before the clock starts; the game is then ticked in --tick
millisecond steps until --seconds of game time have passed.

Examples:
  matter simulate --seconds 120
  matter simulate --action '{"type":"purchaseGenerator","payload":{"generator":"laserpointer","count":1}}'
  matter simulate --save ./game.json --seconds 3600 --out ./later.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Seconds, "seconds", 60, "game time to simulate, in seconds")
	cmd.Flags().Float64Var(&opts.Tick, "tick", 100, "tick size in milliseconds")
	cmd.Flags().StringVar(&opts.Save, "save", "", "start from this save file")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the final save to this file")
	cmd.Flags().StringArrayVar(&opts.Actions, "action", nil, "action to dispatch before ticking (repeatable)")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	if opts.Tick <= 0 {
		return NewExitError(ExitCommandError, "--tick must be positive")
	}
	if opts.Seconds < 0 {
		return NewExitError(ExitCommandError, "--seconds must not be negative")
	}

	actions := make([]reducer.Action, 0, len(opts.Actions))
	for _, raw := range opts.Actions {
		a, err := decodeCLIAction(raw)
		if err != nil {
			return err
		}
		actions = append(actions, a)
	}

	m, err := loadMatter(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	g := engine.New(m, engine.WithLogger(logger))

	var fired []string
	g.On(engine.EventNarrative, func(ev engine.Event) {
		fired = append(fired, ev.Rule.Key)
	})

	if opts.Save != "" {
		data, err := os.ReadFile(opts.Save)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read save", err)
		}
		if !g.Load(string(data)) {
			return NewExitError(ExitCommandError, fmt.Sprintf("save file %s is not a valid save", opts.Save))
		}
	} else {
		g.Dispatch(reducer.ResetState{})
	}

	for _, a := range actions {
		g.Dispatch(a)
	}

	total := opts.Seconds * 1000
	for elapsed := 0.0; elapsed < total; elapsed += opts.Tick {
		g.Tick(min(opts.Tick, total-elapsed))
	}

	if opts.Out != "" {
		data, err := g.Save()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to serialise state", err)
		}
		if err := os.WriteFile(opts.Out, []byte(data), 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write save", err)
		}
	}

	result := summarise(g, fired)
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	style := g.State().Settings.NumberFormat
	return f.Success(result, func(w io.Writer) {
		writeSimulateText(w, result, style)
	})
}

// decodeCLIAction decodes a wire action given on the command line.
func decodeCLIAction(raw string) (reducer.Action, error) {
	a, err := reducer.DecodeAction([]byte(raw))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid action", err)
	}
	if u, ok := a.(reducer.Unknown); ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q", u.Type))
	}
	return a, nil
}

func summarise(g *engine.Game, fired []string) SimulateResult {
	s := g.State()
	m := g.Matter()

	result := SimulateResult{
		Seq:        g.Seq(),
		GameTime:   s.Narrative.GameTime,
		Items:      []SimulatedItem{},
		Generators: []SimulatedGenerator{},
		Fired:      append([]string{}, fired...),
	}

	var pred state.Result
	if s.Prediction != nil {
		pred = s.Prediction.Result
		result.Breakpoint = s.Prediction.NextBreakpoint
	}

	for _, k := range m.ItemKeys() {
		it := s.Items[k]
		if !it.Available {
			continue
		}
		result.Items = append(result.Items, SimulatedItem{Key: k, Count: it.Count, Delta: pred.Items[k].Delta})
	}
	for _, k := range m.GeneratorKeys() {
		gen := s.Generators[k]
		if gen.Count == 0 {
			continue
		}
		result.Generators = append(result.Generators, SimulatedGenerator{
			Key:         k,
			Count:       gen.Count,
			Utilization: pred.Generators[k].Utilization,
		})
	}
	return result
}

func writeSimulateText(w io.Writer, r SimulateResult, style string) {
	fmt.Fprintf(w, "Game time %.1fs after %d transitions\n", r.GameTime, r.Seq)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Items:")
	for _, it := range r.Items {
		fmt.Fprintf(w, "  %-16s %12s  %s\n", it.Key, format.Compact(it.Count, style), format.Rate(it.Delta, style))
	}

	if len(r.Generators) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Generators:")
		for _, gen := range r.Generators {
			fmt.Fprintf(w, "  %-16s x%-4d %5.1f%%\n", gen.Key, gen.Count, gen.Utilization*100)
		}
	}

	fmt.Fprintln(w)
	if r.Breakpoint != nil {
		fmt.Fprintf(w, "Next breakpoint: %s %s in %.1fs\n", r.Breakpoint.Type, r.Breakpoint.Key, r.Breakpoint.TimeUntil)
	} else {
		fmt.Fprintln(w, "Next breakpoint: none (steady state)")
	}
	for _, k := range r.Fired {
		fmt.Fprintf(w, "  fired %s\n", k)
	}
}
