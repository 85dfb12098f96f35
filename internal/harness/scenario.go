package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios exercise one recursion program through a sequence of calls and
// assert on the outcomes, the final engine state, and the diagnostic trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Doubles as the golden file
	// name for snapshot comparison.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program names the recursion program to run. Programs are built-in;
	// see programs.go for the catalog.
	Program string `yaml:"program"`

	// MaxDepth is the engine's call depth budget for this scenario.
	// Zero means the engine default.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// FlowTokens are the fixed flow tokens handed out one per outermost
	// call, in order. Deterministic tokens keep golden files stable.
	// Must provide at least one token per call.
	FlowTokens []string `yaml:"flow_tokens"`

	// Calls is the sequence of outermost calls to make.
	Calls []CallStep `yaml:"calls"`

	// Assertions validate the final engine state and diagnostics.
	// Supported types: pending_empty, body_count, trace_bounded
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// CallStep is one outermost call into the registered program.
type CallStep struct {
	// Args are the call arguments.
	Args []int `yaml:"args"`

	// Expect specifies the expected outcome.
	// If nil, the call is assumed to succeed and the value is ignored.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected call outcome. A success expectation
// sets Value and leaves Condition and Error empty; Value may legitimately
// be zero.
type ExpectClause struct {
	// Value is the expected result for a successful call.
	Value int `yaml:"value,omitempty"`

	// Condition is the expected engine condition code for a fatal abort
	// (e.g. "CYCLIC_RECURSION", "STALLED_RECURSION").
	Condition string `yaml:"condition,omitempty"`

	// Error is a substring expected in a failing call's error message.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates final state or diagnostics after all calls ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "pending_empty": the pending set must be empty
	// - "body_count": program bodies ran at most Max times (or exactly Count)
	// - "trace_bounded": every failing call's trace fits the depth budget
	Type string `yaml:"type"`

	// Count is the exact expected body invocation count (body_count).
	Count int `yaml:"count,omitempty"`

	// Max is the maximum allowed body invocation count (body_count).
	Max int `yaml:"max,omitempty"`
}

// Assertion type constants.
const (
	AssertPendingEmpty = "pending_empty"
	AssertBodyCount    = "body_count"
	AssertTraceBounded = "trace_bounded"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, ok := programs[s.Program]; !ok {
		return fmt.Errorf("unknown program %q", s.Program)
	}

	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}

	if len(s.FlowTokens) < len(s.Calls) {
		return fmt.Errorf("flow_tokens must provide at least one token per call (%d calls, %d tokens)",
			len(s.Calls), len(s.FlowTokens))
	}

	for i, call := range s.Calls {
		if len(call.Args) == 0 {
			return fmt.Errorf("calls[%d]: args is required", i)
		}
		if call.Expect != nil && call.Expect.Condition != "" && call.Expect.Error != "" {
			return fmt.Errorf("calls[%d].expect: condition and error are mutually exclusive", i)
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
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPendingEmpty, AssertTraceBounded:
		// No extra fields
	case AssertBodyCount:
		if a.Count <= 0 && a.Max <= 0 {
			return fmt.Errorf("assertions[%d]: body_count needs count or max", index)
		}
		if a.Count > 0 && a.Max > 0 {
			return fmt.Errorf("assertions[%d]: count and max are mutually exclusive", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
