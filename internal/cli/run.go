package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/store"
	"github.com/roach88/matter/internal/stream"
)

// HostOptions holds flags shared by run and serve.
type HostOptions struct {
	*RootOptions
	Database string
	Tick     float64 // milliseconds
	Autosave float64 // seconds
	Addr     string

	// SessionGenerator names the journal session (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionGenerator engine.SessionIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HostOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Host a game in real time, persisting to SQLite",
		Long: `Host a game in real time.

The game resumes from the database's autosave slot (or starts fresh),
ticks at --tick milliseconds, autosaves every --autosave seconds and
journals every transition under a new session so the run can be replayed.

Example:
  matter run --db ./matter.db
  matter run --db ./matter.db --tick 50 --autosave 10 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts, cmd)
		},
	}

	addHostFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HostOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a game and stream it over websocket",
		Long: `Host a game and stream its state to websocket clients at /ws.

Every transition is pushed to clients as {"type":"state","seq":N,"payload":{...}};
fired narrative rules as {"type":"narrative",...}. Clients send actions in
wire form, {"type":"purchaseGenerator","payload":{"generator":"laserpointer","count":1}}.
With --db the game is persisted exactly as with run.

Example:
  matter serve --addr :8080
  matter serve --addr 127.0.0.1:8080 --db ./matter.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Addr == "" {
				return NewExitError(ExitCommandError, "--addr must not be empty")
			}
			return runHost(opts, cmd)
		},
	}

	addHostFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")

	return cmd
}

func addHostFlags(cmd *cobra.Command, opts *HostOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().Float64Var(&opts.Tick, "tick", 100, "tick interval in milliseconds")
	cmd.Flags().Float64Var(&opts.Autosave, "autosave", 30, "autosave interval in seconds (0 disables)")
}

func runHost(opts *HostOptions, cmd *cobra.Command) error {
	if opts.Tick <= 0 {
		return NewExitError(ExitCommandError, "--tick must be positive")
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)

	m, err := loadMatter(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var st *store.Store
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	g, err := openGame(ctx, m, st, logger)
	if err != nil {
		return err
	}

	runnerOpts := []engine.RunnerOption{
		engine.WithTickInterval(time.Duration(opts.Tick * float64(time.Millisecond))),
		engine.WithRunnerLogger(logger),
	}

	var sessionID string
	if st != nil {
		gen := opts.SessionGenerator
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		sessionID = gen.Generate()
		runnerOpts = append(runnerOpts, engine.WithRecorder(store.NewRecorder(st, sessionID, g.Matter().Version)))
		if opts.Autosave > 0 {
			every := time.Duration(opts.Autosave * float64(time.Second))
			runnerOpts = append(runnerOpts, engine.WithHook(every, func(ctx context.Context, g *engine.Game) {
				autosave(ctx, st, g, sessionID, logger)
			}))
		}
	}
	runner := engine.NewRunner(g, runnerOpts...)

	var srv *http.Server
	if opts.Addr != "" {
		hub := stream.NewHub(runner, stream.WithLogger(logger))
		stream.Attach(g, hub)
		if err := stream.Greet(g, hub); err != nil {
			return WrapExitError(ExitFailure, "failed to publish initial state", err)
		}
		go hub.Run(ctx)

		ln, err := net.Listen("tcp", opts.Addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
				cancel()
			}
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Streaming on ws://%s/ws\n", ln.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if sessionID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Game started. Session %s\n", sessionID)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Game started.")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	runErr := runner.Run(ctx)

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	if st != nil {
		autosave(context.Background(), st, g, sessionID, logger)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "runner error", runErr)
	}

	logger.Info("game stopped", "seq", g.Seq(), "game_time", g.State().Narrative.GameTime)
	return nil
}

// openGame resumes from the autosave slot when there is one, otherwise
// starts a fresh game.
func openGame(ctx context.Context, m *content.MatterData, st *store.Store, logger *slog.Logger) (*engine.Game, error) {
	if st != nil {
		slot, ok, err := st.LoadAutosave(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read autosave", err)
		}
		if ok {
			g := engine.New(m, engine.WithLogger(logger), engine.WithClock(engine.NewClockAt(slot.Seq)))
			if g.Load(slot.Data) {
				logger.Info("resumed autosave", "seq", slot.Seq, "game_time", slot.GameTime)
				return g, nil
			}
			logger.Warn("autosave unreadable, starting a new game", "seq", slot.Seq)
		}
	}

	g := engine.New(m, engine.WithLogger(logger))
	g.Dispatch(reducer.ResetState{})
	return g, nil
}

func autosave(ctx context.Context, st *store.Store, g *engine.Game, sessionID string, logger *slog.Logger) {
	slot, err := store.NewSlot(store.SlotAutosave, g.State(), g.Seq())
	if err != nil {
		logger.Error("autosave failed", "seq", g.Seq(), "error", err)
		return
	}
	slot.SessionID = sessionID
	if err := st.WriteSlot(ctx, slot); err != nil {
		logger.Error("autosave failed", "seq", g.Seq(), "error", err)
		return
	}
	logger.Debug("autosaved", "seq", g.Seq())
}
