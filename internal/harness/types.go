package harness

// CallOutcome records one outermost call and what it produced.
type CallOutcome struct {
	// Args are the call arguments.
	Args []int `json:"args"`

	// Value is the result of a successful call.
	Value int `json:"value"`

	// Err is the failure, nil on success.
	Err error `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if all expect clauses and assertions held.
	Pass bool `json:"pass"`

	// ScenarioName echoes the executed scenario.
	ScenarioName string `json:"scenario_name"`

	// Outcomes lists every outermost call in order.
	Outcomes []CallOutcome `json:"outcomes"`

	// BodyCalls is the total number of program body invocations.
	BodyCalls int `json:"body_calls"`

	// Pending is the size of the engine's pending set after all calls.
	Pending int `json:"pending"`

	// MaxDepth is the depth budget the scenario ran under.
	MaxDepth int `json:"max_depth"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult(scenarioName string) *Result {
	return &Result{
		Pass:         true,
		ScenarioName: scenarioName,
		Errors:       []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
