package harness

// TraceStatement is one store statement issued during a step.
type TraceStatement struct {
	Kind string `json:"kind"`
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step       int              `json:"step"`
	Op         string           `json:"op"` // "contains" or "fetch"
	Collection string           `json:"collection"`
	Candidate  string           `json:"candidate,omitempty"`
	Found      bool             `json:"found,omitempty"`
	Path       string           `json:"path,omitempty"`
	Error      string           `json:"error,omitempty"`
	Rows       int              `json:"rows,omitempty"`
	Statements []TraceStatement `json:"statements"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every flow step with the statements it issued.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
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

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// TotalQueries returns the number of statements across the trace.
func (r *Result) TotalQueries() int {
	n := 0
	for _, ev := range r.Trace {
		n += len(ev.Statements)
	}
	return n
}
