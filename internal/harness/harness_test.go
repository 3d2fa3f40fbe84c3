package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_TestdataScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Flow))
		})
	}
}

func TestRun_TracesStatements(t *testing.T) {
	result, err := Run(loadTestdata(t, "basics"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	first := result.Trace[0]
	assert.Equal(t, "ObjectA(1)", first.Candidate)
	assert.Equal(t, "query", first.Path)
	assert.True(t, first.Found)
	require.Len(t, first.Statements, 1)
	assert.Equal(t, "exists", first.Statements[0].Kind)
	assert.Equal(t, []any{"x", int64(1)}, first.Statements[0].Args)

	fetch := result.Trace[5]
	assert.Equal(t, OpFetch, fetch.Op)
	assert.Equal(t, 2, fetch.Rows)

	assert.Equal(t, 3, result.TotalQueries())
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := loadTestdata(t, "basics")
	wrong := true
	scenario.Flow[1].Expect.Result = &wrong
	scenario.Flow[2].Expect.Path = "query"
	scenario.Assertions = []Assertion{{Type: AssertTotalQueries, Count: 1}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "flow[1] contains tagged: expected result true, got false")
	assert.Contains(t, result.Errors[1], "expected path query, got incompatible")
	assert.Contains(t, result.Errors[2], "assertions[0]")
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := loadTestdata(t, "basics")
	scenario.Flow[4].Expect = nil

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error invalid_candidate")
}

func TestRun_SetupErrors(t *testing.T) {
	t.Run("unknown ref", func(t *testing.T) {
		scenario := loadTestdata(t, "basics")
		scenario.Flow[0].Candidate.Ref = "missing"
		_, err := Run(scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown record ref "missing"`)
	})

	t.Run("invalid collection", func(t *testing.T) {
		scenario := loadTestdata(t, "basics")
		spec := scenario.Collections["tagged"]
		spec.Filter = "missing == x"
		scenario.Collections["tagged"] = spec
		_, err := Run(scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collections.tagged")
	})

	t.Run("missing models", func(t *testing.T) {
		scenario := loadTestdata(t, "basics")
		scenario.Models = filepath.Join(t.TempDir(), "missing")
		_, err := Run(scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load models")
	})
}

func TestRun_Isolation(t *testing.T) {
	scenario := loadTestdata(t, "basics")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRunWithGolden_Basics(t *testing.T) {
	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	result, err := RunWithGolden(t, loadTestdata(t, "basics"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshot_MarshalCanonical(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "s",
		Trace: []TraceEvent{
			{Step: 0, Op: OpContains, Collection: "c", Candidate: "int(1)", Path: "error", Error: ErrorInvalidCandidate},
			{Step: 1, Op: OpFetch, Collection: "c", Rows: 1, Statements: []TraceStatement{
				{Kind: "select", SQL: "SELECT id FROM t WHERE n = ?", Args: []any{int64(3)}},
			}},
		},
	}

	data, err := snapshot.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"s","trace":[`+
			`{"candidate":"int(1)","collection":"c","error":"invalid_candidate","op":"contains","path":"error","statements":[],"step":0},`+
			`{"collection":"c","op":"fetch","rows":1,"statements":[{"args":[3],"kind":"select","sql":"SELECT id FROM t WHERE n = ?"}],"step":1}]}`,
		string(data))
}

func TestTraceSnapshot_RejectsFloatArgs(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "s",
		Trace: []TraceEvent{{Op: OpFetch, Statements: []TraceStatement{{Args: []any{1.5}}}}},
	}
	_, err := snapshot.MarshalCanonical()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trace[0].statements[0].args[0]")
}
