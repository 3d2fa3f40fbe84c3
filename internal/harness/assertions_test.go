package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Step: 0, Op: OpContains, Collection: "c", Candidate: "ObjectA(1)", Path: "query", Found: true,
			Statements: []TraceStatement{{Kind: "exists", SQL: "SELECT EXISTS(SELECT 1 FROM object_a WHERE id = ?)"}}},
		{Step: 1, Op: OpFetch, Collection: "c", Rows: 2,
			Statements: []TraceStatement{{Kind: "select", SQL: "SELECT id, name FROM object_a"}}},
		{Step: 2, Op: OpContains, Collection: "c", Candidate: "ObjectA(2)", Path: "cache", Found: true},
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTotalQueries, Count: 2},
		{Type: AssertPathCount, Path: "cache", Count: 1},
		{Type: AssertPathCount, Path: "incompatible", Count: 0},
		{Type: AssertTraceContains, SQL: "FROM object_a WHERE id = ?"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTotalQueries, Count: 1},
		{Type: AssertPathCount, Path: "query", Count: 2},
		{Type: AssertTraceContains, SQL: "GROUP BY"},
		{Type: "bogus"},
	})
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "assertions[0]")
	assert.Contains(t, errs[0], "Expected: 1 statements")
	assert.Contains(t, errs[0], "Actual: 2 statements")
	assert.Contains(t, errs[1], "2 checks resolved by query")
	assert.Contains(t, errs[2], `a statement containing "GROUP BY"`)
	assert.Contains(t, errs[3], `unknown assertion type "bogus"`)
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{Type: AssertTotalQueries, Expected: "1", Actual: "2", Trace: sampleTrace()}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: total_queries")
	assert.Contains(t, msg, "[0] contains c ObjectA(1) (1 statements)")
	assert.Contains(t, msg, "[1] fetch c (1 statements)")
}
