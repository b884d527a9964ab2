package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matter/internal/content"
)

func TestCreateInitialState(t *testing.T) {
	m := content.MustDefault()
	s := CreateInitialState(m)

	assert.Equal(t, CurrentVersion, s.Version)
	assert.Equal(t, "curie", s.LeadScientist)
	assert.Empty(t, s.UnlockedScientists)
	assert.Equal(t, "sm", s.Active.Topic)
	assert.Equal(t, map[string]string{"sm": "photon", "pt": "Cu"}, s.Active.Item)
	assert.Equal(t, FormatScientific, s.Settings.NumberFormat)

	assert.Len(t, s.Items, len(m.Items))
	assert.Len(t, s.Generators, len(m.Generators))
	assert.Len(t, s.Upgrades, len(m.Upgrades))

	for k, it := range s.Items {
		assert.Equal(t, ItemState{}, it, "item %s", k)
	}
	for k, g := range s.Generators {
		assert.Equal(t, GeneratorState{}, g, "generator %s", k)
	}
	for k, u := range s.Upgrades {
		assert.Equal(t, UpgradeState{}, u, "upgrade %s", k)
	}

	assert.NotNil(t, s.Narrative.Triggered)
	assert.Empty(t, s.Narrative.Triggered)
	assert.Zero(t, s.Narrative.GameTime)
	assert.Nil(t, s.Narrative.CurrentModal)
	assert.Nil(t, s.Prediction)
}

func TestCreateInitialState_TopicFallback(t *testing.T) {
	m := &content.MatterData{
		UI: content.UIConfig{Topics: []string{"chem"}},
		Topics: map[string]content.Topic{
			"chem": {Key: "chem", Grid: [][]string{{"", ""}, {"", "water"}}},
		},
		Items: map[string]content.Item{"water": {Key: "water"}},
	}

	s := CreateInitialState(m)
	assert.Equal(t, "chem", s.Active.Topic)
	assert.Equal(t, map[string]string{"chem": "water"}, s.Active.Item)
}

func TestUpgradeState_Active(t *testing.T) {
	tests := []struct {
		name string
		u    UpgradeState
		want bool
	}{
		{"not acquired", UpgradeState{}, false},
		{"permanent", UpgradeState{Acquired: true}, true},
		{"time left", UpgradeState{Acquired: true, Durability: Float(3)}, true},
		{"expired", UpgradeState{Acquired: true, Durability: Float(0)}, false},
		{"durability without purchase", UpgradeState{Durability: Float(3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.u.Active())
		})
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := CreateInitialState(content.MustDefault())
	s.Upgrades["turboboost"] = UpgradeState{Acquired: true, Durability: Float(10)}
	s.Narrative.CurrentModal = String("welcome")
	s.Prediction = &Prediction{
		Solution:       map[string]float64{"flashlight": 1},
		NextBreakpoint: &Breakpoint{TimeUntil: 1, Type: BreakpointUpgradeExpired, Key: "turboboost"},
	}

	c := s.Clone()
	c.Items["photon"] = ItemState{Count: 5}
	*c.Upgrades["turboboost"].Durability = 1
	*c.Narrative.CurrentModal = "other"
	c.Narrative.Triggered = append(c.Narrative.Triggered, "x")
	c.Prediction.Solution["flashlight"] = 0
	c.Prediction.NextBreakpoint.TimeUntil = 99

	assert.Zero(t, s.Items["photon"].Count)
	assert.Equal(t, 10.0, *s.Upgrades["turboboost"].Durability)
	assert.Equal(t, "welcome", *s.Narrative.CurrentModal)
	assert.Empty(t, s.Narrative.Triggered)
	assert.Equal(t, 1.0, s.Prediction.Solution["flashlight"])
	assert.Equal(t, 1.0, s.Prediction.NextBreakpoint.TimeUntil)
}

func TestSerialize_RoundTrip(t *testing.T) {
	m := content.MustDefault()
	s := CreateInitialState(m)
	s.Items["photon"] = ItemState{Available: true, Count: 123.5}
	s.Generators["flashlight"] = GeneratorState{Visible: true, Available: true, Count: 3}
	s.Upgrades["turboboost"] = UpgradeState{Visible: true, Available: true, Acquired: true, Durability: Float(12.25)}
	s.Narrative.Triggered = []string{"welcome"}
	s.Narrative.MessageLog = []LogEntry{{EventKey: "welcome", Message: "hi", Speaker: "curie"}}
	s.Narrative.ModalQueue = []ModalEntry{{Type: ModalNarrative, Key: "welcome"}}
	s.Narrative.CurrentModal = String("welcome")
	s.Narrative.GameTime = 42

	data, err := Serialize(s)
	require.NoError(t, err)

	p, ok := Deserialize(data)
	require.True(t, ok)

	merged, report := MergeState(CreateInitialState(m), p)
	assert.True(t, report.Empty(), "unexpected merge report: %+v", report)
	assert.Equal(t, s, merged)
}

func TestDeserialize_FailsClosed(t *testing.T) {
	inputs := []string{
		"",
		"not json",
		"[]",
		"42",
		`"string"`,
		"null",
		`{"items": {"photon": {"count": "many"}}}`,
		`{"version": 1`,
	}

	for _, in := range inputs {
		_, ok := Deserialize(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestMergeState_NewCatalogKeyGetsDefault(t *testing.T) {
	m := content.MustDefault()

	saved := `{
		"items": {"photon": {"available": true, "count": 50}},
		"generators": {"flashlight": {"visible": true, "available": true, "count": 2}},
		"narrative": {"triggered": ["welcome"], "gameTime": 12}
	}`
	p, ok := Deserialize(saved)
	require.True(t, ok)

	merged, report := MergeState(CreateInitialState(m), p)

	assert.Equal(t, ItemState{Available: true, Count: 50}, merged.Items["photon"])
	assert.Equal(t, ItemState{}, merged.Items["electron"], "missing key receives default")
	assert.Equal(t, 2, merged.Generators["flashlight"].Count)
	assert.Equal(t, GeneratorState{}, merged.Generators["laser"])
	assert.Len(t, merged.Upgrades, len(m.Upgrades))
	assert.Equal(t, []string{"welcome"}, merged.Narrative.Triggered)
	assert.Equal(t, 12.0, merged.Narrative.GameTime)
	assert.Equal(t, "curie", merged.LeadScientist)

	assert.Contains(t, report.Added["items"], "electron")
	assert.Contains(t, report.Added["generators"], "laser")
	assert.Empty(t, report.Pruned)
}

func TestMergeState_FieldWise(t *testing.T) {
	m := content.MustDefault()
	initial := CreateInitialState(m)
	initial.Items["photon"] = ItemState{Available: true, Count: 1}

	p, ok := Deserialize(`{"items": {"photon": {"count": 9}}}`)
	require.True(t, ok)

	merged, _ := MergeState(initial, p)
	assert.Equal(t, ItemState{Available: true, Count: 9}, merged.Items["photon"])
	assert.Equal(t, 1.0, initial.Items["photon"].Count, "initial must not be modified")
}

func TestMergeState_PrunesRemovedKeys(t *testing.T) {
	m := content.MustDefault()

	p, ok := Deserialize(`{
		"items": {"unobtainium": {"available": true, "count": 3}},
		"generators": {"warpcore": {"count": 1}},
		"upgrades": {"flux": {"acquired": true}}
	}`)
	require.True(t, ok)

	merged, report := MergeState(CreateInitialState(m), p)

	assert.NotContains(t, merged.Items, "unobtainium")
	assert.NotContains(t, merged.Generators, "warpcore")
	assert.NotContains(t, merged.Upgrades, "flux")
	assert.Equal(t, []string{"unobtainium"}, report.Pruned["items"])
	assert.Equal(t, []string{"warpcore"}, report.Pruned["generators"])
	assert.Equal(t, []string{"flux"}, report.Pruned["upgrades"])
}

func TestMergeState_ClampsNegatives(t *testing.T) {
	p, ok := Deserialize(`{"items": {"photon": {"count": -4}}, "generators": {"laser": {"count": -1}}}`)
	require.True(t, ok)

	merged, _ := MergeState(CreateInitialState(content.MustDefault()), p)
	assert.Zero(t, merged.Items["photon"].Count)
	assert.Zero(t, merged.Generators["laser"].Count)
}

func TestMergeState_CapsMessageLog(t *testing.T) {
	log := make([]LogEntry, MessageLogCap+5)
	for i := range log {
		log[i] = LogEntry{EventKey: "e", Timestamp: float64(i)}
	}
	merged, _ := MergeState(CreateInitialState(content.MustDefault()), Partial{
		Narrative: &PartialNarrative{MessageLog: log},
	})

	require.Len(t, merged.Narrative.MessageLog, MessageLogCap)
	assert.Equal(t, 5.0, merged.Narrative.MessageLog[0].Timestamp)
}

func TestFingerprint(t *testing.T) {
	m := content.MustDefault()
	a := CreateInitialState(m)
	b := CreateInitialState(m)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)

	b.Prediction = &Prediction{Solution: map[string]float64{"flashlight": 1}}
	fb, err = Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb, "prediction is excluded")

	b.Items["photon"] = ItemState{Count: 1}
	fb, err = Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func TestMarshalCanonical(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"b":    1.5,
		"a":    []any{true, nil, "x<y"},
		"café": "café",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null,"x<y"],"b":1.5,"café":"café"}`, string(data))
}
