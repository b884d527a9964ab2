package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

// DefaultTickInterval is the reference simulation cadence (10 Hz).
const DefaultTickInterval = 100 * time.Millisecond

// Recorder persists the transitions a Runner applies.
type Recorder interface {
	// Begin is called once before the first transition with the
	// serialised starting state.
	Begin(ctx context.Context, base string) error
	// Record is called after each applied action with the game's seq and
	// the fingerprint of the resulting state.
	Record(ctx context.Context, seq int64, a reducer.Action, fingerprint string) error
}

// Runner hosts a Game: it drains a FIFO of submitted actions and issues a
// Tick at a fixed cadence, all on the goroutine that calls Run.
//
// Thread-safety model:
//   - Enqueue, Stop: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - the Game (and its subscribers) are only touched from Run
type Runner struct {
	game     *Game
	queue    *actionQueue
	interval time.Duration
	recorder Recorder
	logger   *slog.Logger

	hookEvery time.Duration
	hook      func(ctx context.Context, g *Game)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickInterval sets the tick cadence. Zero disables ticking, so only
// enqueued actions are applied.
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.interval = d
	}
}

// WithRecorder journals every applied action.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithHook runs fn on the loop goroutine every interval, e.g. to autosave.
// A non-positive interval disables it.
func WithHook(every time.Duration, fn func(ctx context.Context, g *Game)) RunnerOption {
	return func(r *Runner) {
		r.hookEvery = every
		r.hook = fn
	}
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner for g.
func NewRunner(g *Game, opts ...RunnerOption) *Runner {
	r := &Runner{
		game:     g,
		queue:    newActionQueue(),
		interval: DefaultTickInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue submits a for application by the Run loop. It reports false
// once the runner has stopped.
func (r *Runner) Enqueue(a reducer.Action) bool {
	return r.queue.Enqueue(a)
}

// Stop closes the queue. Run applies what is already queued, then returns.
func (r *Runner) Stop() {
	r.queue.Close()
}

// Run applies queued actions in submission order and ticks the game until
// ctx is cancelled or Stop is called.
//
// Recorder failures are logged and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner starting", "tick", r.interval, "seq", r.game.Seq())

	if r.recorder != nil {
		base, err := r.game.Save()
		if err == nil {
			err = r.recorder.Begin(ctx, base)
		}
		if err != nil {
			r.logger.Error("journal begin failed", "error", err)
		}
	}

	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	var hookC <-chan time.Time
	if r.hook != nil && r.hookEvery > 0 {
		t := time.NewTicker(r.hookEvery)
		defer t.Stop()
		hookC = t.C
	}

	dt := float64(r.interval) / float64(time.Millisecond)
	for {
		if a, ok := r.queue.TryDequeue(); ok {
			r.apply(ctx, a)
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping: context cancelled", "seq", r.game.Seq())
			r.queue.Close()
			return ctx.Err()

		case <-tick:
			r.apply(ctx, reducer.Tick{DT: dt})

		case <-hookC:
			r.hook(ctx, r.game)

		case <-r.queue.Wait():
			if r.queue.Closed() && r.queue.Len() == 0 {
				r.logger.Info("runner stopping: queue closed", "seq", r.game.Seq())
				return nil
			}
		}
	}
}

func (r *Runner) apply(ctx context.Context, a reducer.Action) {
	r.game.Dispatch(a)
	if r.recorder == nil {
		return
	}
	fp, err := state.Fingerprint(r.game.State())
	if err != nil {
		r.logger.Error("fingerprint failed", "action", a.Kind(), "seq", r.game.Seq(), "error", err)
		return
	}
	if err := r.recorder.Record(ctx, r.game.Seq(), a, fp); err != nil {
		r.logger.Error("journal write failed",
			"action", a.Kind(),
			"seq", r.game.Seq(),
			"error", err,
		)
	}
}
