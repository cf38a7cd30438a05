package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/roamwatch/internal/engine"
	"github.com/roach88/roamwatch/internal/wlan"
)

// Scenario is a notification trace with the outcomes it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Events are folded through the engine in order. Delays are ignored.
	Events []wlan.ScriptEvent `yaml:"events"`

	// Expect lists the outcomes and the state the engine must end in.
	Expect Expectation `yaml:"expect"`

	// Assertions are optional checks on the transition trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation is the required result of a scenario.
type Expectation struct {
	// Outcomes must match exactly, in order. An empty list means the
	// trace must produce no outcome.
	Outcomes []ExpectedOutcome `yaml:"outcomes"`

	// FinalState is the engine state after the last event, e.g. "idle" or
	// "roaming(authenticating:1)". Empty skips the check.
	FinalState string `yaml:"final_state,omitempty"`
}

// ExpectedOutcome is an outcome as written in a scenario file.
type ExpectedOutcome struct {
	Kind   string   `yaml:"kind"`
	Result string   `yaml:"result"`
	Notes  []string `yaml:"notes,omitempty"`
}

// Outcome converts to the engine type.
func (e ExpectedOutcome) Outcome() (engine.Outcome, error) {
	kind, err := engine.ParseKind(e.Kind)
	if err != nil {
		return engine.Outcome{}, err
	}
	result, err := engine.ParseResult(e.Result)
	if err != nil {
		return engine.Outcome{}, err
	}
	o := engine.Outcome{Kind: kind, Result: result}
	if len(e.Notes) > 0 {
		o.Notes = append([]string(nil), e.Notes...)
	}
	return o, nil
}

// Assertion checks the transition trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step reached State
	// - "trace_order": States were reached in this order
	// - "trace_count": State was reached exactly Count times
	// - "ignored_count": exactly Count events were ignored
	Type string `yaml:"type"`

	// State is a rendered engine state (trace_contains, trace_count).
	State string `yaml:"state,omitempty"`

	// States is the expected order (trace_order).
	States []string `yaml:"states,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertIgnoredCount  = "ignored_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("scenario name %q used by both %s and %s", s.Name, prev, name)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	for i, ev := range s.Events {
		if _, err := ev.Raw(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}

	for i, o := range s.Expect.Outcomes {
		if _, err := o.Outcome(); err != nil {
			return fmt.Errorf("expect.outcomes[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertIgnoredCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for ignored_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
