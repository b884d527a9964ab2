// Package engine hosts the simulation: it owns the authoritative state,
// routes actions to the reducer, solver and narrative engine, and notifies
// observers after every transition.
//
// A Game is single-threaded. Dispatch applies one action synchronously:
//
//	g := engine.New(content.MustDefault())
//	g.Dispatch(reducer.ResetState{})
//	g.Tick(1000)
//
// A Runner wraps a Game for hosts with concurrent producers. It drains a
// FIFO of submitted actions on one goroutine, interleaved with a fixed
// cadence Tick, and can journal every transition through a Recorder.
//
// # Ticks and breakpoints
//
// Production rates are only valid until the next breakpoint, the moment an
// input runs out or a timed upgrade expires. A tick that spans a breakpoint
// is split: the simulation advances to the breakpoint, re-solves, and
// continues with fresh rates for the rest of the interval. SimConfig bounds
// the number of segments per tick.
//
// # Replay
//
// Transitions are pure functions of (state, action), so a journal of
// actions plus the snapshot they started from reproduces a session
// exactly. Replay re-applies a journal and compares each state's
// fingerprint with the recorded one.
package engine
