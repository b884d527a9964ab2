package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session        string `json:"session"`
	ContentVersion string `json:"content_version"`
	Entries        int    `json:"entries"`
	Applied        int    `json:"applied"`
	Deterministic  bool   `json:"deterministic"`
	// DivergedAt is the seq of the first entry whose replayed state did
	// not match its recorded fingerprint.
	DivergedAt  int64  `json:"diverged_at,omitempty"`
	Error       string `json:"error,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Re-apply each session's journal to its base state and check every
resulting state against the fingerprint recorded when the session ran.

Exit codes:
  0 - All sessions reproduce exactly
  1 - A session diverged or its journal is unreadable
  2 - Command error (database not found, etc.)

Examples:
  matter replay --db ./matter.db
  matter replay --db ./matter.db --session 0190f5c4-...
  matter replay --db ./matter.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	m, err := loadMatter(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, ok, err := st.Session(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		if !ok {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session %s not found", opts.Session), nil, nil)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	logger := newLogger(f.GetErrWriter(), opts.Verbose)
	for _, sess := range sessions {
		if sess.ContentVersion != m.Version {
			f.VerboseLog("session %s was recorded with content %s, replaying with %s", sess.ID, sess.ContentVersion, m.Version)
		}

		entries, err := st.ReadJournal(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read journal for session %s", sess.ID), err)
		}

		sr := ReplaySessionResult{
			Session:        sess.ID,
			ContentVersion: sess.ContentVersion,
			Entries:        len(entries),
			Deterministic:  true,
		}

		rr, err := engine.Replay(m, sess.Base, entries, engine.WithLogger(logger))
		sr.Applied = rr.Applied
		if err != nil {
			sr.Deterministic = false
			sr.Error = err.Error()
			var re *engine.RuntimeError
			if errors.As(err, &re) && re.Code == engine.ErrCodeDivergence {
				sr.DivergedAt = re.Seq
			}
			result.AllDeterministic = false
		} else if len(entries) > 0 {
			sr.Fingerprint = entries[len(entries)-1].Fingerprint
		}

		result.Sessions = append(result.Sessions, sr)
	}

	text := func(w io.Writer) { writeReplayText(w, result, opts.Verbose) }
	if !result.AllDeterministic {
		return f.Fail(ExitFailure, ErrCodeDivergence, "determinism verification failed", result, text)
	}
	return f.Success(result, text)
}

func writeReplayText(w io.Writer, result ReplayResult, verbose bool) {
	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Session: %s (%d/%d entries)\n", status, s.Session, s.Applied, s.Entries)
		if s.Error != "" {
			fmt.Fprintf(w, "  %s\n", s.Error)
		}
		if verbose && s.Fingerprint != "" {
			fmt.Fprintf(w, "  final fingerprint %s\n", s.Fingerprint)
		}
	}

	if result.AllDeterministic {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✓ All sessions reproduce exactly")
	}
}
