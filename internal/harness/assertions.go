package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", ev.Step, ev.Op, ev.Collection)
		if ev.Candidate != "" {
			fmt.Fprintf(&buf, " %s", ev.Candidate)
		}
		fmt.Fprintf(&buf, " (%d statements)\n", len(ev.Statements))
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(trace []TraceEvent, a Assertion) error {
	switch a.Type {
	case AssertTotalQueries:
		return assertTotalQueries(trace, a)
	case AssertPathCount:
		return assertPathCount(trace, a)
	case AssertTraceContains:
		return assertTraceContains(trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTotalQueries checks the number of statements the whole flow issued.
func assertTotalQueries(trace []TraceEvent, a Assertion) error {
	total := 0
	for _, ev := range trace {
		total += len(ev.Statements)
	}
	if total != a.Count {
		return &AssertionError{
			Type:     AssertTotalQueries,
			Expected: fmt.Sprintf("%d statements", a.Count),
			Actual:   fmt.Sprintf("%d statements", total),
			Trace:    trace,
		}
	}
	return nil
}

// assertPathCount checks how many contains steps resolved through a path.
func assertPathCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Op == OpContains && ev.Path == a.Path {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertPathCount,
			Expected: fmt.Sprintf("%d checks resolved by %s", a.Count, a.Path),
			Actual:   fmt.Sprintf("%d checks", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceContains checks that some statement's SQL contains a.SQL.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		for _, s := range ev.Statements {
			if strings.Contains(s.SQL, a.SQL) {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("a statement containing %q", a.SQL),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}
