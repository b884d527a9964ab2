package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
)

// JournalEntry is one recorded transition: the action a Runner applied and
// the fingerprint of the state it produced.
type JournalEntry struct {
	Seq         int64           `json:"seq"`
	Action      json.RawMessage `json:"action"`
	Fingerprint string          `json:"fingerprint"`
}

// ReplayResult summarises a successful replay.
type ReplayResult struct {
	Applied int
	Final   state.SavedState
}

// Replay rebuilds a session from its base snapshot and re-applies every
// journal entry, checking each resulting state against its recorded
// fingerprint. An empty base starts from a fresh initial state.
//
// Transitions are deterministic, so the same base and entries always
// produce the same final state. The first mismatch stops the replay with
// a divergence error.
func Replay(m *content.MatterData, base string, entries []JournalEntry, opts ...Option) (ReplayResult, error) {
	start := state.CreateInitialState(m)
	if base != "" {
		saved, ok := state.Deserialize(base)
		if !ok {
			return ReplayResult{}, newBadJournalError(0, errors.New("base snapshot is malformed"))
		}
		start, _ = state.MergeState(start, saved)
	}

	var first int64 = 1
	if len(entries) > 0 {
		first = entries[0].Seq
	}
	opts = append(opts, WithState(start), WithClock(NewClockAt(first-1)))
	g := New(m, opts...)

	for i, e := range entries {
		a, err := reducer.DecodeAction(e.Action)
		if err != nil {
			return ReplayResult{Applied: i, Final: g.State()}, newBadJournalError(e.Seq, err)
		}
		g.Dispatch(a)
		if g.Seq() != e.Seq {
			return ReplayResult{Applied: i, Final: g.State()},
				newBadJournalError(e.Seq, fmt.Errorf("journal gap: expected seq %d", g.Seq()))
		}

		got, err := state.Fingerprint(g.State())
		if err != nil {
			return ReplayResult{Applied: i, Final: g.State()}, newBadJournalError(e.Seq, err)
		}
		if got != e.Fingerprint {
			return ReplayResult{Applied: i, Final: g.State()}, newDivergenceError(e.Seq, e.Fingerprint, got)
		}
	}

	return ReplayResult{Applied: len(entries), Final: g.State()}, nil
}
