package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Scenario Loading Tests
// =============================================================================

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validScenarioYAML = `name: sample
description: Countdown resolves to zero.
program: countdown
max_depth: 20
flow_tokens:
  - flow-1
calls:
  - args: [5]
    expect:
      value: 0
assertions:
  - type: pending_empty
`

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "sample", scenario.Name)
	assert.Equal(t, "countdown", scenario.Program)
	assert.Equal(t, 20, scenario.MaxDepth)
	require.Len(t, scenario.Calls, 1)
	assert.Equal(t, []int{5}, scenario.Calls[0].Args)
	require.NotNil(t, scenario.Calls[0].Expect)
	assert.Equal(t, 0, scenario.Calls[0].Expect.Value)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenario(t, `name: sample
description: Typo in a field name.
program: countdown
flow_tokens: [flow-1]
calls:
  - args: [5]
assertion:
  - type: pending_empty
`)

	_, err := LoadScenario(path)
	require.Error(t, err, "strict parsing should reject unknown fields")
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingName(t *testing.T) {
	path := writeScenario(t, `description: No name.
program: countdown
flow_tokens: [flow-1]
calls:
  - args: [5]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenario_UnknownProgram(t *testing.T) {
	path := writeScenario(t, `name: sample
description: Program does not exist.
program: quicksort
flow_tokens: [flow-1]
calls:
  - args: [5]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown program "quicksort"`)
}

func TestLoadScenario_TooFewFlowTokens(t *testing.T) {
	path := writeScenario(t, `name: sample
description: Two calls, one token.
program: countdown
flow_tokens: [flow-1]
calls:
  - args: [5]
  - args: [6]
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow_tokens")
}

func TestLoadScenario_ConditionAndErrorConflict(t *testing.T) {
	path := writeScenario(t, `name: sample
description: Expect clause sets both condition and error.
program: cyclic
flow_tokens: [flow-1]
calls:
  - args: [5]
    expect:
      condition: CYCLIC_RECURSION
      error: boom
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoadScenario_InvalidAssertion(t *testing.T) {
	path := writeScenario(t, `name: sample
description: Assertion with a bogus type.
program: countdown
flow_tokens: [flow-1]
calls:
  - args: [5]
assertions:
  - type: trace_sorted
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown assertion type "trace_sorted"`)
}

func TestLoadScenario_BodyCountNeedsBound(t *testing.T) {
	path := writeScenario(t, `name: sample
description: body_count without count or max.
program: countdown
flow_tokens: [flow-1]
calls:
  - args: [5]
assertions:
  - type: body_count
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body_count needs count or max")
}
