package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/store"
)

// SlotsOptions holds flags for the slots command.
type SlotsOptions struct {
	*RootOptions
	Database string
	Delete   string
	Export   string
}

// SlotInfo describes one stored save.
type SlotInfo struct {
	Name        string  `json:"name"`
	Seq         int64   `json:"seq"`
	GameTime    float64 `json:"game_time"`
	Fingerprint string  `json:"fingerprint"`
	SessionID   string  `json:"session_id,omitempty"`
	Bytes       int     `json:"bytes"`
}

// NewSlotsCommand creates the slots command.
func NewSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SlotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List, export or delete save slots",
		Long: `List the save slots in a database.

With --export the named slot's save JSON is written to stdout, suitable for
simulate --save. With --delete the named slot is removed.

Examples:
  matter slots --db ./matter.db
  matter slots --db ./matter.db --export autosave > game.json
  matter slots --db ./matter.db --delete manual`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlots(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete this slot")
	cmd.Flags().StringVar(&opts.Export, "export", "", "print this slot's save data")
	cmd.MarkFlagsMutuallyExclusive("delete", "export")

	return cmd
}

func runSlots(opts *SlotsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	switch {
	case opts.Export != "":
		slot, ok, err := st.ReadSlot(ctx, opts.Export)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read slot", err)
		}
		if !ok {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("slot %s not found", opts.Export), nil, nil)
		}
		fmt.Fprintln(cmd.OutOrStdout(), slot.Data)
		return nil

	case opts.Delete != "":
		ok, err := st.HasSlot(ctx, opts.Delete)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read slot", err)
		}
		if !ok {
			return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("slot %s not found", opts.Delete), nil, nil)
		}
		if err := st.DeleteSlot(ctx, opts.Delete); err != nil {
			return WrapExitError(ExitCommandError, "failed to delete slot", err)
		}
		return f.Success(map[string]string{"deleted": opts.Delete}, func(w io.Writer) {
			fmt.Fprintf(w, "✓ deleted slot %s\n", opts.Delete)
		})
	}

	slots, err := st.ListSlots(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list slots", err)
	}

	infos := make([]SlotInfo, len(slots))
	for i, s := range slots {
		infos[i] = SlotInfo{
			Name:        s.Name,
			Seq:         s.Seq,
			GameTime:    s.GameTime,
			Fingerprint: s.Fingerprint,
			SessionID:   s.SessionID,
			Bytes:       len(s.Data),
		}
	}

	return f.Success(infos, func(w io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintln(w, "No save slots.")
			return
		}
		for _, s := range infos {
			fmt.Fprintf(w, "%-10s seq %-8d %9.1fs  %s\n", s.Name, s.Seq, s.GameTime, shortFingerprint(s.Fingerprint))
			if opts.Verbose && s.SessionID != "" {
				fmt.Fprintf(w, "           session %s, %d bytes\n", s.SessionID, s.Bytes)
			}
		}
	})
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
