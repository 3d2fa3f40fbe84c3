package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lazyset/internal/collection"
	"github.com/roach88/lazyset/internal/store"
)

// Scenario defines a membership conformance scenario: a model, a data
// set, named collections, and a flow of membership checks and
// materializations with their expected answers and query costs.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Models is the directory of CUE entity declarations.
	// Relative paths are resolved against the scenario file.
	Models string `yaml:"models"`

	// Records are inserted before the flow. Their statements are not traced.
	Records []store.Fixture `yaml:"records,omitempty"`

	// Collections are the named collections the flow refers to.
	Collections map[string]collection.Spec `yaml:"collections"`

	// Flow contains the steps to execute in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the whole trace.
	// Supported types: total_queries, path_count, trace_contains
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step operations.
const (
	OpContains = "contains"
	OpFetch    = "fetch"
)

// FlowStep is one operation against a named collection.
type FlowStep struct {
	// Op is "contains" or "fetch".
	Op string `yaml:"op"`

	// Collection names an entry of Scenario.Collections.
	Collection string `yaml:"collection"`

	// Candidate is required for contains.
	Candidate *CandidateSpec `yaml:"candidate,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step only contributes to the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// CandidateSpec describes the value passed to Contains. Exactly one of
// Ref, Type and Value is set.
type CandidateSpec struct {
	// Ref names a labelled record.
	Ref string `yaml:"ref,omitempty"`

	// As views the referenced record as another entity type, as loading
	// the same row through a proxy does.
	As string `yaml:"as,omitempty"`

	// Type builds a record of that type. Without Key it is unsaved.
	Type string `yaml:"type,omitempty"`
	Key  any    `yaml:"key,omitempty"`

	// Value is passed as is, for candidates that are not entities.
	Value any `yaml:"value,omitempty"`
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Result is the expected membership answer.
	Result *bool `yaml:"result,omitempty"`

	// Error is "invalid_candidate" or "store_failure".
	Error string `yaml:"error,omitempty"`

	// Path is the expected resolution path (incompatible, no_identity,
	// cache, query).
	Path string `yaml:"path,omitempty"`

	// Queries is the exact number of store statements the step issues.
	Queries *int `yaml:"queries,omitempty"`

	// Rows is the expected row count of a fetch.
	Rows *int `yaml:"rows,omitempty"`
}

// Expected error names.
const (
	ErrorInvalidCandidate = "invalid_candidate"
	ErrorStoreFailure     = "store_failure"
)

// Assertion validates the trace as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "total_queries": the flow issues exactly Count statements
	// - "path_count": exactly Count contains steps resolve through Path
	// - "trace_contains": some statement's SQL contains SQL
	Type string `yaml:"type"`

	Count int    `yaml:"count,omitempty"`
	Path  string `yaml:"path,omitempty"`
	SQL   string `yaml:"sql,omitempty"`
}

// Assertion type constants.
const (
	AssertTotalQueries  = "total_queries"
	AssertPathCount     = "path_count"
	AssertTraceContains = "trace_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The models path is resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Models != "" && !filepath.IsAbs(scenario.Models) {
		scenario.Models = filepath.Join(filepath.Dir(path), scenario.Models)
	}
	if _, err := os.Stat(scenario.Models); err != nil {
		return nil, fmt.Errorf("invalid scenario: models directory not found: %s", scenario.Models)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns every .yaml scenario file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && (filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Models == "" {
		return fmt.Errorf("models is required")
	}
	if len(s.Collections) == 0 {
		return fmt.Errorf("collections map is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for name, spec := range s.Collections {
		if spec.Type == "" {
			return fmt.Errorf("collections.%s: type is required", name)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step, s.Collections); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step FlowStep, collections map[string]collection.Spec) error {
	if _, ok := collections[step.Collection]; !ok {
		return fmt.Errorf("flow[%d]: unknown collection %q", i, step.Collection)
	}

	switch step.Op {
	case OpContains:
		if step.Candidate == nil {
			return fmt.Errorf("flow[%d]: candidate is required for contains", i)
		}
		if err := validateCandidate(step.Candidate); err != nil {
			return fmt.Errorf("flow[%d].candidate: %w", i, err)
		}
	case OpFetch:
		if step.Candidate != nil {
			return fmt.Errorf("flow[%d]: fetch takes no candidate", i)
		}
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
	}

	if e := step.Expect; e != nil {
		if e.Result != nil && e.Error != "" {
			return fmt.Errorf("flow[%d].expect: result and error are mutually exclusive", i)
		}
		switch e.Error {
		case "", ErrorInvalidCandidate, ErrorStoreFailure:
		default:
			return fmt.Errorf("flow[%d].expect: unknown error %q", i, e.Error)
		}
		if e.Queries != nil && *e.Queries < 0 {
			return fmt.Errorf("flow[%d].expect: queries must be non-negative", i)
		}
	}
	return nil
}

func validateCandidate(c *CandidateSpec) error {
	set := 0
	for _, present := range []bool{c.Ref != "", c.Type != "", c.Value != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of ref, type and value is required")
	}
	if c.As != "" && c.Ref == "" {
		return fmt.Errorf("as requires ref")
	}
	if c.Key != nil && c.Type == "" {
		return fmt.Errorf("key requires type")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTotalQueries:
	case AssertPathCount:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for path_count", index)
		}
	case AssertTraceContains:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for trace_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
