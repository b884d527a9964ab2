package harness

// TraceEvent records one dispatched flow action.
type TraceEvent struct {
	Seq    int64          `json:"seq"`
	Action string         `json:"action"`
	Args   map[string]any `json:"args,omitempty"`
	// Changed is false when the action left the state untouched, e.g. a
	// rejected purchase.
	Changed bool `json:"changed"`
	// Fired lists the narrative rules the action triggered, in order.
	Fired []string `json:"fired,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every flow action in dispatch order. Setup actions
	// are not traced.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final game state as generic JSON, for path assertions
	// and reporting.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Fired returns every rule fired during the flow, in order.
func (r *Result) Fired() []string {
	var out []string
	for _, ev := range r.Trace {
		out = append(out, ev.Fired...)
	}
	return out
}
