package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted game session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Content is a catalog directory, relative to the scenario file.
	// Empty selects the built-in catalog.
	Content string `yaml:"content,omitempty"`

	// Silent drops the catalog's narrative rules, so the economy can be
	// tested without beats granting or unlocking anything.
	Silent bool `yaml:"silent,omitempty"`

	// Setup actions establish the starting state. They are applied in
	// order, are not traced and carry no expectations.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the traced part of the session.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step dispatches one action, or advances time when Tick is set.
type Step struct {
	// Action is the wire name, e.g. "purchaseGenerator".
	Action string `yaml:"action,omitempty"`

	// Args is the action payload.
	Args map[string]any `yaml:"args,omitempty"`

	// Tick is shorthand for a tick action of this many milliseconds.
	Tick float64 `yaml:"tick,omitempty"`

	// Repeat dispatches the step this many times. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// Expect is checked against the last repetition.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies what a step should do.
type ExpectClause struct {
	// Fired is the exact list of rules the step triggers.
	Fired []string `yaml:"fired,omitempty"`

	// Changed, if set, requires the step to change (or not change) state.
	Changed *bool `yaml:"changed,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": action appears in trace with args (subset match)
	// - "trace_order": actions appear in order
	// - "trace_count": action appears exactly Count times
	// - "narrative_order": rules fired in this order
	// - "final_state": value at Path equals Expect
	Type string `yaml:"type"`

	Action  string         `yaml:"action,omitempty"`
	Args    map[string]any `yaml:"args,omitempty"`
	Count   int            `yaml:"count,omitempty"`
	Actions []string       `yaml:"actions,omitempty"`

	// Rules is the expected firing order (used by narrative_order).
	Rules []string `yaml:"rules,omitempty"`

	// Path is a dotted path into the state JSON, e.g. "items.photon.count"
	// (used by final_state).
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value at Path.
	Expect any `yaml:"expect,omitempty"`

	// Tolerance bounds numeric comparisons. Zero uses DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertNarrativeOrder = "narrative_order"
	AssertFinalState     = "final_state"
)

// DefaultTolerance is the numeric slack for final_state comparisons.
const DefaultTolerance = 1e-9

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Content != "" && !filepath.IsAbs(scenario.Content) {
		scenario.Content = filepath.Join(filepath.Dir(path), scenario.Content)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Content != "" {
		if _, err := os.Stat(s.Content); os.IsNotExist(err) {
			return fmt.Errorf("content dir not found: %s", s.Content)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch {
	case step.Action == "" && step.Tick == 0:
		return fmt.Errorf("action or tick is required")
	case step.Action != "" && step.Tick != 0:
		return fmt.Errorf("action and tick are mutually exclusive")
	case step.Tick < 0:
		return fmt.Errorf("tick must be non-negative")
	case step.Repeat < 0:
		return fmt.Errorf("repeat must be non-negative")
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertNarrativeOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for narrative_order", index)
		}
	case AssertFinalState:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for final_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
