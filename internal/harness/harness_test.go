package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Harness Execution Tests
// =============================================================================

func TestRun_ParityDeepMutualRecursion(t *testing.T) {
	scenario := &Scenario{
		Name:        "parity-deep",
		Description: "Mutual recursion far past the depth budget",
		Program:     "parity",
		MaxDepth:    100,
		FlowTokens:  []string{"flow-1", "flow-2"},
		Calls: []CallStep{
			{Args: []int{2001}, Expect: &ExpectClause{Value: 1}},
			{Args: []int{2000}, Expect: &ExpectClause{Value: 0}},
		},
		Assertions: []Assertion{
			{Type: AssertPendingEmpty},
			{Type: AssertBodyCount, Max: 9000},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "scenario errors: %v", result.Errors)
	assert.Equal(t, 0, result.Pending)
}

func TestRun_AckermannTwoArguments(t *testing.T) {
	scenario := &Scenario{
		Name:        "ackermann",
		Description: "Two-argument recursion",
		Program:     "ackermann",
		MaxDepth:    200,
		FlowTokens:  []string{"flow-1"},
		Calls: []CallStep{
			{Args: []int{3, 3}, Expect: &ExpectClause{Value: 61}},
		},
		Assertions: []Assertion{
			{Type: AssertPendingEmpty},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "scenario errors: %v", result.Errors)
}

func TestRun_ValueMismatchFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-value",
		Description: "Expect clause with the wrong value",
		Program:     "countdown",
		MaxDepth:    20,
		FlowTokens:  []string{"flow-1"},
		Calls: []CallStep{
			{Args: []int{5}, Expect: &ExpectClause{Value: 42}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected value 42")
}

func TestRun_ConditionMismatchFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-condition",
		Description: "Expect a condition from a succeeding program",
		Program:     "countdown",
		MaxDepth:    20,
		FlowTokens:  []string{"flow-1"},
		Calls: []CallStep{
			{Args: []int{5}, Expect: &ExpectClause{Condition: "CYCLIC_RECURSION"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected condition CYCLIC_RECURSION")
}

func TestRun_MissingErrorFailsScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing-error",
		Description: "Expect an error from a succeeding program",
		Program:     "countdown",
		MaxDepth:    20,
		FlowTokens:  []string{"flow-1"},
		Calls: []CallStep{
			{Args: []int{5}, Expect: &ExpectClause{Error: "hit bottom"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "call succeeded")
}

func TestRun_ArityMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad-arity",
		Description: "One argument for a two-argument program",
		Program:     "ackermann",
		FlowTokens:  []string{"flow-1"},
		Calls: []CallStep{
			{Args: []int{3}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 2 arguments")
}

func TestEvaluateAssertions_BodyCountExact(t *testing.T) {
	result := NewResult("x")
	result.BodyCalls = 5

	EvaluateAssertions(result, []Assertion{{Type: AssertBodyCount, Count: 5}})
	assert.True(t, result.Pass)

	EvaluateAssertions(result, []Assertion{{Type: AssertBodyCount, Count: 6}})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "want exactly 6")
}

func TestEvaluateAssertions_PendingEmpty(t *testing.T) {
	result := NewResult("x")
	result.Pending = 2

	EvaluateAssertions(result, []Assertion{{Type: AssertPendingEmpty}})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "pending set has 2 entries")
}

func TestEvaluateAssertions_TraceBoundedWithoutTrace(t *testing.T) {
	result := NewResult("x")
	result.MaxDepth = 30
	result.Outcomes = []CallOutcome{{Args: []int{1}, Value: 0}}

	EvaluateAssertions(result, []Assertion{{Type: AssertTraceBounded}})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "no call produced a diagnostic trace")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	result := NewResult("x")

	EvaluateAssertions(result, []Assertion{{Type: "bogus"}})
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `unknown assertion type "bogus"`)
}
