package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Action   string // optional - filter to one action type
	NoTicks  bool
}

// TraceEvent is one journaled action in the timeline.
type TraceEvent struct {
	Seq         int64           `json:"seq"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	// Changed is false when the action left the state as it was, e.g. a
	// rejected purchase.
	Changed bool `json:"changed"`
}

// TraceStats summarises a session's journal.
type TraceStats struct {
	Total    int            `json:"total"`
	Shown    int            `json:"shown"`
	Rejected int            `json:"rejected"`
	ByType   map[string]int `json:"by_type"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session        string       `json:"session"`
	ContentVersion string       `json:"content_version"`
	Timeline       []TraceEvent `json:"timeline"`
	Stats          TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the action journal of a session",
		Long: `Show the journaled actions of a recorded session in order.

Each entry lists its seq, action type and payload, and whether it changed
the state (actions the game rejected leave the fingerprint unchanged).

Examples:
  matter trace --db ./matter.db --session 0190f5c4-...
  matter trace --db ./matter.db --session 0190f5c4-... --no-ticks
  matter trace --db ./matter.db --session 0190f5c4-... --action purchaseGenerator --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Action, "action", "", "show only this action type")
	cmd.Flags().BoolVar(&opts.NoTicks, "no-ticks", false, "hide tick actions")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sess, ok, err := st.Session(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if !ok {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session %s not found", opts.Session), nil, nil)
	}

	entries, err := st.ReadJournal(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Session:        sess.ID,
		ContentVersion: sess.ContentVersion,
		Timeline:       []TraceEvent{},
		Stats:          TraceStats{Total: len(entries), ByType: map[string]int{}},
	}

	prev := ""
	for _, e := range entries {
		ev, err := traceEvent(e.Seq, e.Action, e.Fingerprint, prev)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("journal entry %d is corrupt", e.Seq), err)
		}
		prev = e.Fingerprint

		result.Stats.ByType[ev.Type]++
		if !ev.Changed {
			result.Stats.Rejected++
		}
		if opts.Action != "" && ev.Type != opts.Action {
			continue
		}
		if opts.NoTicks && ev.Type == (reducer.Tick{}).Kind() {
			continue
		}
		result.Timeline = append(result.Timeline, ev)
	}
	result.Stats.Shown = len(result.Timeline)

	return f.Success(result, func(w io.Writer) {
		writeTraceText(w, result, opts.Verbose)
	})
}

// traceEvent decodes one journal entry. prev is the fingerprint of the
// entry before it, empty for the first.
func traceEvent(seq int64, raw json.RawMessage, fingerprint, prev string) (TraceEvent, error) {
	a, err := reducer.DecodeAction(raw)
	if err != nil {
		return TraceEvent{}, err
	}

	var env struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return TraceEvent{}, err
	}

	return TraceEvent{
		Seq:         seq,
		Type:        a.Kind(),
		Payload:     env.Payload,
		Fingerprint: fingerprint,
		Changed:     prev == "" || fingerprint != prev,
	}, nil
}

func writeTraceText(w io.Writer, r TraceResult, verbose bool) {
	fmt.Fprintf(w, "Session %s (content %s)\n", r.Session, r.ContentVersion)
	fmt.Fprintln(w)

	for _, ev := range r.Timeline {
		marker := " "
		if !ev.Changed {
			marker = "·"
		}
		line := fmt.Sprintf("%s %6d  %-24s", marker, ev.Seq, ev.Type)
		if len(ev.Payload) > 0 {
			line += " " + string(ev.Payload)
		}
		if verbose {
			line += "  " + ev.Fingerprint
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d of %d action(s) shown, %d left the state unchanged\n", r.Stats.Shown, r.Stats.Total, r.Stats.Rejected)

	types := make([]string, 0, len(r.Stats.ByType))
	for k := range r.Stats.ByType {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		fmt.Fprintf(w, "  %-24s %d\n", k, r.Stats.ByType[k])
	}
}
