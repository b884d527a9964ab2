package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/format"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
	"github.com/roach88/matter/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database string
	Slot     string
}

// ApplyResult reports what applying actions to a slot did.
type ApplyResult struct {
	Slot     string  `json:"slot"`
	Created  bool    `json:"created"`
	Applied  int     `json:"applied"`
	Seq      int64   `json:"seq"`
	Changed  bool    `json:"changed"`
	Before   string  `json:"fingerprint_before,omitempty"`
	After    string  `json:"fingerprint_after"`
	GameTime float64 `json:"game_time"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <action-json>...",
		Short: "Apply actions to a stored save",
		Long: `Load a save slot, dispatch actions to it in order, and write it back.

Actions use the wire form {"type":...,"payload":{...}}. A missing slot is
created from a fresh game. The game must not be running against the same
slot, or its next autosave will overwrite the result.

Examples:
  matter apply --db ./matter.db '{"type":"tick","payload":{"dt":60000}}'
  matter apply --db ./matter.db --slot manual '{"type":"purchaseUpgrade","payload":{"upgrade":"lipobat"}}'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Slot, "slot", store.SlotAutosave, "save slot to modify")

	return cmd
}

func runApply(opts *ApplyOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()

	actions := make([]reducer.Action, 0, len(args))
	for _, raw := range args {
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

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	slot, found, err := st.ReadSlot(ctx, opts.Slot)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read slot", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	result := ApplyResult{Slot: opts.Slot, Created: !found}

	var g *engine.Game
	if found {
		g = engine.New(m, engine.WithLogger(logger), engine.WithClock(engine.NewClockAt(slot.Seq)))
		if !g.Load(slot.Data) {
			return NewExitError(ExitFailure, fmt.Sprintf("slot %q does not hold a valid save", opts.Slot))
		}
		result.Before = slot.Fingerprint
	} else {
		g = engine.New(m, engine.WithLogger(logger))
		g.Dispatch(reducer.ResetState{})
	}

	for _, a := range actions {
		g.Dispatch(a)
		result.Applied++
	}

	next, err := store.NewSlot(opts.Slot, g.State(), g.Seq())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to serialise state", err)
	}
	if err := st.WriteSlot(ctx, next); err != nil {
		return WrapExitError(ExitCommandError, "failed to write slot", err)
	}

	result.Seq = g.Seq()
	result.After = next.Fingerprint
	result.Changed = next.Fingerprint != result.Before
	result.GameTime = next.GameTime

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	style := g.State().Settings.NumberFormat
	return f.Success(result, func(w io.Writer) {
		verb := "updated"
		if result.Created {
			verb = "created"
		}
		fmt.Fprintf(w, "✓ slot %s %s: %d action(s) applied, seq %d\n", result.Slot, verb, result.Applied, result.Seq)
		if !result.Changed {
			fmt.Fprintln(w, "  state unchanged")
		}
		writeCounts(w, g.State(), g.Matter().ItemKeys(), style)
	})
}

// writeCounts prints the available items of s.
func writeCounts(w io.Writer, s state.SavedState, keys []string, style string) {
	for _, k := range keys {
		if it := s.Items[k]; it.Available {
			fmt.Fprintf(w, "  %-16s %s\n", k, format.Compact(it.Count, style))
		}
	}
}
