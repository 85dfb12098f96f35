package harness

import (
	"errors"
	"fmt"
	"strings"

	recache "github.com/SimpleArt/recursive-cache"
	"github.com/SimpleArt/recursive-cache/trace"
)

// checkExpect validates one call outcome against its expect clause.
// A nil clause only requires the call to succeed.
func checkExpect(result *Result, index int, expect *ExpectClause, value int, err error) {
	if expect == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("calls[%d]: unexpected error: %v", index, err))
		}
		return
	}

	switch {
	case expect.Condition != "":
		var re *recache.RuntimeError
		if !errors.As(err, &re) {
			result.AddError(fmt.Sprintf("calls[%d]: expected condition %s, got %v",
				index, expect.Condition, err))
			return
		}
		if string(re.Code) != expect.Condition {
			result.AddError(fmt.Sprintf("calls[%d]: expected condition %s, got %s",
				index, expect.Condition, re.Code))
		}
	case expect.Error != "":
		if err == nil {
			result.AddError(fmt.Sprintf("calls[%d]: expected error containing %q, call succeeded",
				index, expect.Error))
			return
		}
		if !strings.Contains(err.Error(), expect.Error) {
			result.AddError(fmt.Sprintf("calls[%d]: expected error containing %q, got %q",
				index, expect.Error, err.Error()))
		}
	default:
		if err != nil {
			result.AddError(fmt.Sprintf("calls[%d]: expected value %d, got error: %v",
				index, expect.Value, err))
			return
		}
		if value != expect.Value {
			result.AddError(fmt.Sprintf("calls[%d]: expected value %d, got %d",
				index, expect.Value, value))
		}
	}
}

// EvaluateAssertions checks scenario assertions against a completed
// result, appending a validation error for each violation.
func EvaluateAssertions(result *Result, assertions []Assertion) {
	for i, a := range assertions {
		switch a.Type {
		case AssertPendingEmpty:
			if result.Pending != 0 {
				result.AddError(fmt.Sprintf("assertions[%d]: pending set has %d entries, want 0",
					i, result.Pending))
			}
		case AssertBodyCount:
			if a.Count > 0 && result.BodyCalls != a.Count {
				result.AddError(fmt.Sprintf("assertions[%d]: body ran %d times, want exactly %d",
					i, result.BodyCalls, a.Count))
			}
			if a.Max > 0 && result.BodyCalls > a.Max {
				result.AddError(fmt.Sprintf("assertions[%d]: body ran %d times, want at most %d",
					i, result.BodyCalls, a.Max))
			}
		case AssertTraceBounded:
			assertTraceBounded(result, i)
		default:
			result.AddError(fmt.Sprintf("assertions[%d]: unknown assertion type %q", i, a.Type))
		}
	}
}

// assertTraceBounded requires at least one failing call to carry a
// diagnostic trace, and every trace to fit within 90% of the depth
// budget.
func assertTraceBounded(result *Result, index int) {
	bound := result.MaxDepth * 9 / 10
	found := false
	for ci, outcome := range result.Outcomes {
		var te *trace.Error
		if outcome.Err == nil || !errors.As(outcome.Err, &te) {
			continue
		}
		found = true
		if n := te.Trace.FrameCount(); n > bound {
			result.AddError(fmt.Sprintf("assertions[%d]: calls[%d] trace has %d frames, bound is %d",
				index, ci, n, bound))
		}
	}
	if !found {
		result.AddError(fmt.Sprintf("assertions[%d]: no call produced a diagnostic trace", index))
	}
}
