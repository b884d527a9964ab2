package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/narrative"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/solver"
	"github.com/roach88/matter/internal/state"
)

// Listener observes every transition. next and prev must not be mutated.
type Listener func(next state.SavedState, action reducer.Action, prev state.SavedState)

type listener struct {
	id int
	fn Listener
}

// Game owns one authoritative state value and replaces it on every
// transition.
//
// Game is not safe for concurrent use. Hosts that accept actions from
// several goroutines serialise them through a Runner.
type Game struct {
	matter      *content.MatterData
	state       state.SavedState
	clock       *Clock
	logger      *slog.Logger
	maxSegments int

	nextID    int
	listeners []listener
	events    *emitter
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger for rejected actions and load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Game) {
		g.logger = l
	}
}

// WithMaxSegments bounds how many breakpoints a single tick may cross.
func WithMaxSegments(n int) Option {
	return func(g *Game) {
		g.maxSegments = n
	}
}

// WithClock sets the transition counter, e.g. to resume numbering.
func WithClock(c *Clock) Option {
	return func(g *Game) {
		g.clock = c
	}
}

// WithState starts the game from s instead of a fresh initial state.
// No narrative pass or solve is run.
func WithState(s state.SavedState) Option {
	return func(g *Game) {
		g.state = s.Clone()
	}
}

// New creates a game for the given catalog.
func New(m *content.MatterData, opts ...Option) *Game {
	g := &Game{
		matter:      m,
		state:       state.CreateInitialState(m),
		clock:       NewClock(),
		logger:      slog.Default(),
		maxSegments: DefaultMaxSegments,
		events:      newEmitter(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current snapshot. Callers must not mutate it.
func (g *Game) State() state.SavedState { return g.state }

// Matter returns the static catalog.
func (g *Game) Matter() *content.MatterData { return g.matter }

// Seq returns the number of transitions applied so far.
func (g *Game) Seq() int64 { return g.clock.Current() }

// Dispatch applies a to the current state and notifies observers.
// Rejected actions leave the state unchanged; the rejection is logged,
// never returned.
func (g *Game) Dispatch(a reducer.Action) {
	prev := g.state
	next, fired := g.apply(a)
	g.state = next
	g.clock.Next()

	g.notify(next, a, prev)
	g.events.emit(Event{Type: EventStateChange, Action: a, Prev: prev, Next: next})
	for _, r := range fired {
		g.events.emit(Event{Type: EventNarrative, Action: a, Rule: r})
	}
	for _, ev := range derivedEvents(g.matter, a, prev, next) {
		g.events.emit(ev)
	}
}

// Tick advances the simulation by dtMillis.
func (g *Game) Tick(dtMillis float64) {
	g.Dispatch(reducer.Tick{DT: dtMillis})
}

func (g *Game) apply(a reducer.Action) (state.SavedState, []content.NarrativeRule) {
	m, s := g.matter, g.state

	switch act := a.(type) {
	case reducer.UpdatePrediction:
		next := s.Clone()
		next.Prediction = g.solve(next)
		return next, nil

	case reducer.Tick:
		res := SimulateTick(m, s, act.DT, SimConfig{MaxSegments: g.maxSegments, Logger: g.logger})
		if res.Segments > 1 {
			g.logger.Debug("tick crossed breakpoints", "segments", res.Segments, "dt", act.DT)
		}
		return res.State, res.Fired

	case reducer.ResetState:
		next, _ := reducer.Reduce(m, s, act)
		next, fired := narrative.ProcessEvents(m, next)
		next.Prediction = g.solve(next)
		return next, fired

	case reducer.DismissNarrativeModal:
		return narrative.DismissModal(s), nil

	case reducer.TriggerNarrativeEvent:
		next, r, ok := narrative.Trigger(m, s, act.EventKey)
		if !ok {
			g.logger.Debug("narrative trigger ignored", "event", act.EventKey)
			return s, nil
		}
		if next.Prediction != nil {
			next.Prediction = g.solve(next)
		}
		return next, []content.NarrativeRule{r}
	}

	next, err := reducer.Reduce(m, s, a)
	if err != nil {
		level := slog.LevelDebug
		if errors.Is(err, reducer.ErrUnknownAction) {
			level = slog.LevelWarn
		}
		g.logger.Log(context.Background(), level, "action rejected", "action", a.Kind(), "error", err)
		return s, nil
	}
	if next.Prediction != nil && reducer.ChangesEconomy(a) {
		next.Prediction = g.solve(next)
	}
	return next, nil
}

func (g *Game) solve(s state.SavedState) *state.Prediction {
	return solver.Solve(g.matter, s, solver.WithLogger(g.logger))
}

// Subscribe registers fn to run after every transition, in registration
// order. The returned function removes it.
func (g *Game) Subscribe(fn Listener) func() {
	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range g.listeners {
			if l.id == id {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

// On registers fn for events of type t (or EventAll). The returned
// function removes it.
func (g *Game) On(t EventType, fn func(Event)) func() {
	return g.events.on(t, fn)
}

func (g *Game) notify(next state.SavedState, a reducer.Action, prev state.SavedState) {
	ls := append([]listener(nil), g.listeners...)
	for _, l := range ls {
		l.fn(next, a, prev)
	}
}

// Save serialises the full current state.
func (g *Game) Save() (string, error) {
	return state.Serialize(g.state)
}

// Load replaces the state with a saved snapshot merged onto a fresh initial
// state, runs a narrative pass and notifies subscribers with a LoadState
// action. The saved prediction is kept unless the merge pruned stale keys
// or the narrative pass changed the economy, in which case it is re-solved. Malformed data leaves the game untouched and reports false.
func (g *Game) Load(data string) bool {
	saved, ok := state.Deserialize(data)
	if !ok {
		g.logger.Warn("load ignored: malformed save", "bytes", len(data))
		return false
	}

	merged, report := state.MergeState(state.CreateInitialState(g.matter), saved)
	if !report.Empty() {
		g.logger.Info("save merged against catalog",
			"added", report.Added,
			"pruned", report.Pruned,
		)
	}

	next, fired := narrative.ProcessEvents(g.matter, merged)
	// rates from pruned content must not outlive the load
	if next.Prediction != nil && (len(report.Pruned) > 0 || changesEconomy(fired)) {
		next.Prediction = g.solve(next)
	}

	prev := g.state
	g.state = next
	g.clock.Next()

	a := reducer.LoadState{}
	g.notify(next, a, prev)
	for _, r := range fired {
		g.events.emit(Event{Type: EventNarrative, Action: a, Rule: r})
	}
	return true
}
