package state

import "math"

// CurrentVersion is the save format version written by CreateInitialState.
const CurrentVersion = 1

// Number format settings.
const (
	FormatScientific = "scientific"
	FormatCompact    = "compact"
	FormatFull       = "full"
)

// Modal types queued in NarrativeState.ModalQueue.
const (
	ModalNarrative       = "narrative"
	ModalScientistUnlock = "scientistUnlock"
)

// MaxGeneratorCount bounds how many units of one generator a game can own.
// Purchases that would pass it are rejected; direct writes are clamped.
const MaxGeneratorCount = 1_000_000

// ClampGeneratorCount limits n to [0, MaxGeneratorCount].
func ClampGeneratorCount(n int) int {
	return min(MaxGeneratorCount, max(0, n))
}

// ClampItemCount keeps an inventory finite and non-negative. NaN counts
// as empty.
func ClampItemCount(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, math.MaxFloat64)
}

// MessageLogCap bounds NarrativeState.MessageLog; the oldest entries are evicted.
const MessageLogCap = 50

// SavedState is the dynamic game state. It is the unit of persistence.
//
// Values are treated as immutable once published: transitions build a new
// value (see Clone) rather than writing into the maps of an existing one.
type SavedState struct {
	Version            int                       `json:"version"`
	LeadScientist      string                    `json:"leadScientist"`
	UnlockedScientists []string                  `json:"unlockedScientists"`
	Active             ActiveState               `json:"active"`
	Settings           Settings                  `json:"settings"`
	Items              map[string]ItemState      `json:"items"`
	Generators         map[string]GeneratorState `json:"generators"`
	Upgrades           map[string]UpgradeState   `json:"upgrades"`
	Narrative          NarrativeState            `json:"narrative"`
	Prediction         *Prediction               `json:"prediction,omitempty"`
}

type ActiveState struct {
	Topic string            `json:"topic"`
	Item  map[string]string `json:"item"`
}

type Settings struct {
	NumberFormat string `json:"numberFormat" jsonschema:"enum=scientific,enum=compact,enum=full"`
}

type ItemState struct {
	Available bool    `json:"available"`
	Count     float64 `json:"count" jsonschema:"minimum=0"`
}

type GeneratorState struct {
	Visible   bool `json:"visible"`
	Available bool `json:"available"`
	Count     int  `json:"count" jsonschema:"minimum=0"`
}

// UpgradeState tracks purchase and decay of an upgrade.
// A nil Durability means permanent; zero means expired.
type UpgradeState struct {
	Visible    bool     `json:"visible"`
	Available  bool     `json:"available"`
	Acquired   bool     `json:"acquired"`
	Durability *float64 `json:"durability,omitempty" jsonschema:"minimum=0"`
}

// Active reports whether the upgrade currently applies its effects.
func (u UpgradeState) Active() bool {
	return u.Acquired && (u.Durability == nil || *u.Durability > 0)
}

type NarrativeState struct {
	Triggered     []string     `json:"triggered"`
	LastEventTime float64      `json:"lastEventTime"`
	GameTime      float64      `json:"gameTime" jsonschema:"minimum=0"`
	MessageLog    []LogEntry   `json:"messageLog"`
	ModalQueue    []ModalEntry `json:"modalQueue"`
	CurrentModal  *string      `json:"currentModal"`
}

// HasTriggered reports whether a rule key has already fired.
func (n NarrativeState) HasTriggered(key string) bool {
	for _, k := range n.Triggered {
		if k == key {
			return true
		}
	}
	return false
}

type LogEntry struct {
	EventKey  string  `json:"eventKey"`
	Timestamp float64 `json:"timestamp"`
	Message   string  `json:"message"`
	Speaker   string  `json:"speaker,omitempty"`
}

type ModalEntry struct {
	Type string `json:"type" jsonschema:"enum=narrative,enum=scientistUnlock"`
	Key  string `json:"key"`
}

// Prediction is the cached solver output. It is derived, never authoritative.
type Prediction struct {
	Model          Model              `json:"model"`
	Solution       map[string]float64 `json:"solution"`
	Result         Result             `json:"result"`
	NextBreakpoint *Breakpoint        `json:"nextBreakpoint"`
}

// Model is the linear program the solver built: maximise the sum of
// generator utilisations subject to per-item inventory rows and
// per-generator utilisation rows.
type Model struct {
	Optimize    string                        `json:"optimize"`
	OpType      string                        `json:"opType"`
	Constraints map[string]Bound              `json:"constraints"`
	Variables   map[string]map[string]float64 `json:"variables"`
}

type Bound struct {
	Max float64 `json:"max"`
}

type Result struct {
	Items      map[string]ItemPrediction      `json:"items"`
	Generators map[string]GeneratorPrediction `json:"generators"`
}

type ItemPrediction struct {
	Delta    float64 `json:"delta"`
	MaxDelta float64 `json:"maxdelta"`
}

type GeneratorPrediction struct {
	Utilization    float64 `json:"utilization"`
	UtilizationMax float64 `json:"utilizationMax"`
}

// Breakpoint types.
const (
	BreakpointResourceDepleted = "resourceDepleted"
	BreakpointUpgradeExpired   = "upgradeExpired"
)

// Breakpoint is the next moment at which the solved rates stop being valid.
type Breakpoint struct {
	TimeUntil float64 `json:"timeUntil"`
	Type      string  `json:"type" jsonschema:"enum=resourceDepleted,enum=upgradeExpired"`
	Key       string  `json:"key"`
}
