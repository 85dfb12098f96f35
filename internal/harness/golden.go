package harness

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	recache "github.com/SimpleArt/recursive-cache"
	"github.com/SimpleArt/recursive-cache/trace"
)

// Snapshot renders a scenario result in canonical text form for golden
// file comparison.
//
// The format deliberately excludes runtime-dependent values: no file
// paths, line numbers, function symbols, or key digests. Engine
// conditions render as their code, domain errors as their message, and
// traces as frame and elision counts. Everything left is a pure function
// of the scenario.
func Snapshot(scenario *Scenario, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", result.ScenarioName)
	fmt.Fprintf(&b, "program: %s\n", scenario.Program)
	fmt.Fprintf(&b, "max_depth: %d\n", result.MaxDepth)
	b.WriteString("calls:\n")
	for _, out := range result.Outcomes {
		fmt.Fprintf(&b, "  %s(%s) => %s\n", scenario.Program, joinArgs(out.Args), renderOutcome(out))
	}
	fmt.Fprintf(&b, "body_calls: %d\n", result.BodyCalls)
	fmt.Fprintf(&b, "pending: %d\n", result.Pending)
	fmt.Fprintf(&b, "pass: %t\n", result.Pass)
	return []byte(b.String())
}

func renderOutcome(out CallOutcome) string {
	if out.Err == nil {
		return strconv.Itoa(out.Value)
	}
	var re *recache.RuntimeError
	if errors.As(out.Err, &re) {
		return fmt.Sprintf("condition: %s", re.Code)
	}
	s := fmt.Sprintf("error: %s", out.Err.Error())
	var te *trace.Error
	if errors.As(out.Err, &te) {
		s += fmt.Sprintf(" [trace: %d frames, %d elided]", te.Trace.FrameCount(), te.Trace.Elided)
	}
	return s
}

func joinArgs(args []int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ", ")
}

// RunWithGolden executes a scenario and compares its canonical snapshot
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for expected scheduling
// behavior; a diff means the engine's observable behavior changed.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario, result))

	return result, nil
}
