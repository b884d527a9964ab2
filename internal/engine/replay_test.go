package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
	"github.com/roach88/matter/internal/testutil"
)

// recordSession plays a short opening through a Runner and returns the
// finished game with its journal.
func recordSession(t *testing.T) (*Game, *memRecorder) {
	t.Helper()
	g := newGame(t, content.MustDefault())
	rec := &memRecorder{}
	r := NewRunner(g, WithTickInterval(0), WithRecorder(rec), WithRunnerLogger(testutil.DiscardLogger()))

	actions := []reducer.Action{reducer.ResetState{}}
	for i := 0; i < 12; i++ {
		actions = append(actions, reducer.Tick{DT: 1000})
	}
	actions = append(actions,
		reducer.UpdateItemCount{Item: "photon", Count: 250},
		reducer.PurchaseGenerator{Generator: "laserpointer", Count: 1},
		reducer.Tick{DT: 5000},
		reducer.DismissNarrativeModal{},
		reducer.SetTopic{Topic: "pt"},
		reducer.Unknown{Type: "warp"},
	)
	for _, a := range actions {
		require.True(t, r.Enqueue(a))
	}
	r.Stop()
	require.NoError(t, r.Run(context.Background()))
	require.Len(t, rec.entries, len(actions))
	return g, rec
}

func fingerprint(t *testing.T, s state.SavedState) string {
	t.Helper()
	fp, err := state.Fingerprint(s)
	require.NoError(t, err)
	return fp
}

func TestReplay_ReproducesSession(t *testing.T) {
	g, rec := recordSession(t)

	res, err := Replay(g.Matter(), rec.base, rec.entries, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)

	assert.Equal(t, len(rec.entries), res.Applied)
	assert.Equal(t, fingerprint(t, g.State()), fingerprint(t, res.Final))
	assert.Equal(t, 1, res.Final.Generators["laserpointer"].Count)
}

func TestReplay_Divergence(t *testing.T) {
	g, rec := recordSession(t)
	entries := append([]JournalEntry(nil), rec.entries...)
	entries[3].Fingerprint = "0000"

	res, err := Replay(g.Matter(), rec.base, entries, WithLogger(testutil.DiscardLogger()))

	require.Error(t, err)
	assert.True(t, IsDivergenceError(err))
	assert.False(t, IsBadJournalError(err))
	assert.Equal(t, 3, res.Applied)

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, entries[3].Seq, re.Seq)
	assert.Equal(t, "0000", re.Details["want"])
}

func TestReplay_BadJournal(t *testing.T) {
	m := content.MustDefault()
	fp := fingerprint(t, state.CreateInitialState(m))

	tests := []struct {
		name    string
		base    string
		entries []JournalEntry
	}{
		{
			name: "malformed base",
			base: "not a snapshot",
		},
		{
			name:    "malformed action",
			entries: []JournalEntry{{Seq: 1, Action: json.RawMessage(`{"type":`), Fingerprint: fp}},
		},
		{
			name: "gap in sequence",
			entries: []JournalEntry{
				{Seq: 1, Action: json.RawMessage(`{"type":"setTopic","payload":{"topic":"sm"}}`), Fingerprint: fp},
				{Seq: 3, Action: json.RawMessage(`{"type":"setTopic","payload":{"topic":"sm"}}`), Fingerprint: fp},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Replay(m, tt.base, tt.entries, WithLogger(testutil.DiscardLogger()))
			require.Error(t, err)
			assert.True(t, IsBadJournalError(err), "got %v", err)
		})
	}
}

func TestReplay_Empty(t *testing.T) {
	m := content.MustDefault()

	res, err := Replay(m, "", nil)
	require.NoError(t, err)

	assert.Zero(t, res.Applied)
	assert.Equal(t, fingerprint(t, state.CreateInitialState(m)), fingerprint(t, res.Final))
}
