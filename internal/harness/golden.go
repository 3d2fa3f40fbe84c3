package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/lazyset/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// It serializes to canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toIR converts the snapshot to an IRObject for canonical serialization.
// Empty fields are omitted; statements are always present.
func (s *TraceSnapshot) toIR() (ir.IRObject, error) {
	events := make(ir.IRArray, len(s.Trace))
	for i, ev := range s.Trace {
		obj := ir.IRObject{
			"step":       ir.IRInt(ev.Step),
			"op":         ir.IRString(ev.Op),
			"collection": ir.IRString(ev.Collection),
		}
		if ev.Op == OpContains {
			obj["candidate"] = ir.IRString(ev.Candidate)
			obj["path"] = ir.IRString(ev.Path)
			if ev.Error == "" {
				obj["found"] = ir.IRBool(ev.Found)
			}
		} else if ev.Error == "" {
			obj["rows"] = ir.IRInt(ev.Rows)
		}
		if ev.Error != "" {
			obj["error"] = ir.IRString(ev.Error)
		}

		stmts := make(ir.IRArray, len(ev.Statements))
		for j, st := range ev.Statements {
			args := make(ir.IRArray, len(st.Args))
			for k, arg := range st.Args {
				v, err := ir.FromNative(arg)
				if err != nil {
					return nil, fmt.Errorf("trace[%d].statements[%d].args[%d]: %w", i, j, k, err)
				}
				args[k] = v
			}
			stmts[j] = ir.IRObject{
				"kind": ir.IRString(st.Kind),
				"sql":  ir.IRString(st.SQL),
				"args": args,
			}
		}
		obj["statements"] = stmts
		events[i] = obj
	}

	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"trace":         events,
	}, nil
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	obj, err := s.toIR()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(obj)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
