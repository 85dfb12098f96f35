// Package harness provides a conformance testing framework for the
// recursion engine.
//
// Scenarios are YAML files that pick a built-in recursion program, run a
// sequence of outermost calls with deterministic flow tokens, and assert
// on outcomes, memoization counts, and diagnostic traces. Golden files
// capture canonical result snapshots so behavioral drift shows up as a
// fixture diff.
//
// The harness runs scenarios against a real Engine; nothing is mocked.
// Determinism comes from fixed flow tokens and from keeping runtime
// details (file paths, line numbers) out of the snapshot format.
package harness

import (
	"fmt"
	"io"
	"log/slog"

	recache "github.com/SimpleArt/recursive-cache"
)

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh engine for isolation. Fixed flow tokens
// keep output reproducible.
//
// Execution flow:
// 1. Build a fresh engine from the scenario's depth budget and tokens
// 2. Register the named program
// 3. Execute each call and validate its expect clause
// 4. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	prog, ok := programs[scenario.Program]
	if !ok {
		return nil, fmt.Errorf("unknown program %q", scenario.Program)
	}

	opts := []recache.Option{
		// Suppress logs in tests
		recache.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		recache.WithFlowTokens(recache.NewFixedGenerator(scenario.FlowTokens...)),
	}
	if scenario.MaxDepth > 0 {
		opts = append(opts, recache.WithMaxDepth(scenario.MaxDepth))
	}
	e := recache.New(opts...)

	counter := &CallCounter{}
	entry := prog.Build(e, counter)

	result := NewResult(scenario.Name)
	result.MaxDepth = e.MaxDepth()

	for i, step := range scenario.Calls {
		if len(step.Args) != prog.Arity {
			return nil, fmt.Errorf("calls[%d]: program %q takes %d arguments, got %d",
				i, scenario.Program, prog.Arity, len(step.Args))
		}
		value, err := entry(step.Args)
		result.Outcomes = append(result.Outcomes, CallOutcome{
			Args:  step.Args,
			Value: value,
			Err:   err,
		})
		checkExpect(result, i, step.Expect, value, err)
	}

	result.BodyCalls = counter.Count()
	result.Pending = e.PendingLen()

	EvaluateAssertions(result, scenario.Assertions)
	return result, nil
}
