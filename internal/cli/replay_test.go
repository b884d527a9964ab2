package cli

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
	"github.com/roach88/matter/internal/engine"
	"github.com/roach88/matter/internal/reducer"
	"github.com/roach88/matter/internal/state"
	"github.com/roach88/matter/internal/store"
	"github.com/roach88/matter/internal/testutil"
)

// recordSession journals actions played on a fresh, reset game.
func recordSession(t *testing.T, dbPath, sessionID string, actions ...reducer.Action) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	m := content.MustDefault()
	g := engine.New(m, engine.WithLogger(testutil.DiscardLogger()))
	g.Dispatch(reducer.ResetState{})

	rec := store.NewRecorder(st, sessionID, m.Version)
	base, err := g.Save()
	require.NoError(t, err)
	require.NoError(t, rec.Begin(ctx, base))

	for _, a := range actions {
		g.Dispatch(a)
		fp, err := state.Fingerprint(g.State())
		require.NoError(t, err)
		require.NoError(t, rec.Record(ctx, g.Seq(), a, fp))
	}
}

func sampleActions() []reducer.Action {
	return []reducer.Action{
		reducer.Tick{DT: 1000},
		reducer.UpdateItemCount{Item: "photon", Count: 250},
		reducer.PurchaseGenerator{Generator: "laserpointer", Count: 1},
		reducer.Tick{DT: 2500},
		reducer.PurchaseGenerator{Generator: "laser", Count: 1},
		reducer.DismissNarrativeModal{},
		reducer.Tick{DT: 1000},
	}
}

func tamper(t *testing.T, dbPath string, seq int64) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`UPDATE journal SET fingerprint = 'tampered' WHERE seq = ?`, seq)
	require.NoError(t, err)
}

func TestReplay_Deterministic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "matter.db")
	recordSession(t, dbPath, "a", sampleActions()...)
	recordSession(t, dbPath, "b", reducer.Tick{DT: 500})

	out, err := execute(t, "replay", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.AllDeterministic)
	require.Equal(t, 2, result.TotalSessions)
	assert.Equal(t, "a", result.Sessions[0].Session)
	assert.Equal(t, 7, result.Sessions[0].Entries)
	assert.Equal(t, 7, result.Sessions[0].Applied)
	assert.NotEmpty(t, result.Sessions[0].Fingerprint)
	assert.Equal(t, content.MustDefault().Version, result.Sessions[0].ContentVersion)
}

func TestReplay_Divergence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "matter.db")
	recordSession(t, dbPath, "a", sampleActions()...)
	// seq 1 is the reset in the base; entries start at 2
	tamper(t, dbPath, 4)

	out, err := execute(t, "replay", "--db", dbPath, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeDivergence, resp.Error.Code)
	require.Len(t, result.Sessions, 1)

	s := result.Sessions[0]
	assert.False(t, s.Deterministic)
	assert.Equal(t, int64(4), s.DivergedAt)
	assert.Equal(t, 2, s.Applied)
	assert.Contains(t, s.Error, "REPLAY_DIVERGENCE")
}

func TestReplay_SingleSessionText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "matter.db")
	recordSession(t, dbPath, "a", sampleActions()...)
	recordSession(t, dbPath, "b", reducer.Tick{DT: 500})

	out, err := execute(t, "replay", "--db", dbPath, "--session", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 session(s)")
	assert.Contains(t, out, "✓ Session: b (1/1 entries)")
}

func TestReplay_NoSessions(t *testing.T) {
	out, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "matter.db"))
	require.NoError(t, err)
	assert.Equal(t, "No sessions found in database.\n", out)
}

func TestReplay_UnknownSession(t *testing.T) {
	_, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "matter.db"), "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
