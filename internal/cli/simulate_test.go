package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/state"
)

func simulate(t *testing.T, args ...string) SimulateResult {
	t.Helper()

	out, err := execute(t, append([]string{"simulate", "--format", "json"}, args...)...)
	require.NoError(t, err)

	var result SimulateResult
	resp := decodeResponse(t, out, &result)
	require.Equal(t, "ok", resp.Status)
	return result
}

func item(r SimulateResult, key string) (SimulatedItem, bool) {
	for _, it := range r.Items {
		if it.Key == key {
			return it, true
		}
	}
	return SimulatedItem{}, false
}

func TestSimulate_Flashlight(t *testing.T) {
	result := simulate(t, "--seconds", "10")

	assert.Equal(t, int64(101), result.Seq, "reset plus 100 ticks")
	assert.InDelta(t, 10.0, result.GameTime, 1e-9)

	photon, ok := item(result, "photon")
	require.True(t, ok)
	assert.InDelta(t, 10.0, photon.Count, 1e-6)
	assert.InDelta(t, 1.0, photon.Delta, 1e-9)

	require.Len(t, result.Generators, 1)
	assert.Equal(t, "flashlight", result.Generators[0].Key)
	assert.Contains(t, result.Fired, "welcome")
}

func TestSimulate_ActionsBeforeTicking(t *testing.T) {
	result := simulate(t,
		"--seconds", "1",
		"--tick", "1000",
		"--action", `{"type":"updateItemCount","payload":{"item":"photon","count":250}}`,
		"--action", `{"type":"purchaseGenerator","payload":{"generator":"laserpointer","count":1}}`,
	)

	assert.Equal(t, int64(4), result.Seq)
	photon, ok := item(result, "photon")
	require.True(t, ok)
	assert.InDelta(t, 150+101, photon.Count, 1e-6)
	assert.InDelta(t, 101, photon.Delta, 1e-9)
}

func TestSimulate_SaveAndResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.json")

	first := simulate(t, "--seconds", "10", "--tick", "1000", "--out", path)
	assert.InDelta(t, 10.0, first.GameTime, 1e-9)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, ok := state.Deserialize(string(data))
	require.True(t, ok)

	second := simulate(t, "--seconds", "5", "--tick", "1000", "--save", path)
	assert.InDelta(t, 15.0, second.GameTime, 1e-9)
	photon, ok := item(second, "photon")
	require.True(t, ok)
	assert.InDelta(t, 15.0, photon.Count, 1e-6)
}

func TestSimulate_TextOutput(t *testing.T) {
	out, err := execute(t, "simulate", "--seconds", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Game time 2.0s")
	assert.Contains(t, out, "photon")
	assert.Contains(t, out, "flashlight")
	assert.Contains(t, out, "fired welcome")
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown action", []string{"--action", `{"type":"warp"}`}, `unknown action "warp"`},
		{"malformed action", []string{"--action", `{"type":`}, "invalid action"},
		{"zero tick", []string{"--tick", "0"}, "--tick must be positive"},
		{"negative seconds", []string{"--seconds", "-1"}, "--seconds must not be negative"},
		{"missing save", []string{"--save", "/nonexistent/game.json"}, "failed to read save"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"simulate"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSimulate_InvalidSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2]"), 0644))

	_, err := execute(t, "simulate", "--save", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a valid save")
}
