package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/lazyset/internal/collection"
	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/model"
	"github.com/roach88/lazyset/internal/store"
	"github.com/roach88/lazyset/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh in-memory store, recording every
// statement each step issues.
type Harness struct {
	store       *store.Store
	reg         *model.Registry
	records     map[string]*model.Record
	collections map[string]*collection.Collection
	statements  *testutil.StatementLog
	logger      *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger passed to collections. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Collections are named after their scenario key, so traces are
// reproducible.
//
// Execution flow:
// 1. Compile the models and create their tables
// 2. Insert the records
// 3. Build the named collections
// 4. Execute flow steps with expect validation
// 5. Evaluate assertions over the trace
//
// A returned error means the scenario could not be set up; failed
// expectations are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	reg, err := model.LoadDir(scenario.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:       st,
		reg:         reg,
		collections: make(map[string]*collection.Collection, len(scenario.Collections)),
		statements:  testutil.NewStatementLog(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()
	if err := h.setup(ctx, scenario); err != nil {
		return nil, err
	}

	stop := st.Observe(h.statements.Record)
	defer stop()

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	if err := h.store.EnsureEntities(ctx, h.reg); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	records, err := h.store.LoadFixtures(ctx, h.reg, scenario.Records)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	h.records = records

	names := make([]string, 0, len(scenario.Collections))
	for name := range scenario.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		desc, err := scenario.Collections[name].Descriptor()
		if err != nil {
			return fmt.Errorf("collections.%s: %w", name, err)
		}
		c, err := collection.New(h.reg, h.store, desc,
			collection.WithLogger(h.logger),
			collection.WithIDGenerator(testutil.NewFixedIDGenerator(name)),
		)
		if err != nil {
			return fmt.Errorf("collections.%s: %w", name, err)
		}
		h.collections[name] = c
	}
	return nil
}

// executeStep runs one step, traces it and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	c := h.collections[step.Collection]
	ev := TraceEvent{Step: i, Op: step.Op, Collection: step.Collection}

	h.statements.Reset()
	switch step.Op {
	case OpContains:
		candidate, label, err := h.candidate(step.Candidate)
		if err != nil {
			return err
		}
		ev.Candidate = label

		res, err := c.Resolve(ctx, candidate)
		ev.Found = res.Found
		ev.Path = res.Path
		ev.Error = errorName(err)

	case OpFetch:
		n, err := c.Len(ctx)
		ev.Rows = n
		ev.Error = errorName(err)
	}

	for _, s := range h.statements.Statements() {
		ev.Statements = append(ev.Statements, TraceStatement{Kind: s.Kind, SQL: s.SQL, Args: s.Args})
	}
	result.AddTrace(ev)

	for _, msg := range checkExpect(step, ev) {
		result.AddError(fmt.Sprintf("flow[%d] %s %s: %s", i, step.Op, step.Collection, msg))
	}

	h.logger.Debug("flow step completed",
		"step", i,
		"op", step.Op,
		"collection", step.Collection,
		"candidate", ev.Candidate,
		"statements", len(ev.Statements),
	)
	return nil
}

// candidate builds the value a contains step passes, with a trace label.
func (h *Harness) candidate(spec *CandidateSpec) (any, string, error) {
	switch {
	case spec.Ref != "":
		rec, ok := h.records[spec.Ref]
		if !ok {
			return nil, "", fmt.Errorf("unknown record ref %q", spec.Ref)
		}
		if spec.As != "" {
			rec = rec.As(spec.As)
		}
		return rec, rec.String(), nil

	case spec.Type != "":
		rec := model.NewRecord(spec.Type, nil)
		if spec.Key != nil {
			key, err := ir.FromNative(spec.Key)
			if err != nil {
				return nil, "", fmt.Errorf("candidate key: %w", err)
			}
			rec.Key = key
		}
		return rec, rec.String(), nil

	default:
		return spec.Value, fmt.Sprintf("%T(%v)", spec.Value, spec.Value), nil
	}
}

func checkExpect(step FlowStep, ev TraceEvent) []string {
	e := step.Expect
	if e == nil {
		if ev.Error != "" {
			return []string{fmt.Sprintf("unexpected error %s", ev.Error)}
		}
		return nil
	}

	var errs []string
	if e.Error != ev.Error {
		errs = append(errs, fmt.Sprintf("expected error %q, got %q", e.Error, ev.Error))
	}
	if e.Result != nil && *e.Result != ev.Found {
		errs = append(errs, fmt.Sprintf("expected result %t, got %t", *e.Result, ev.Found))
	}
	if e.Path != "" && e.Path != ev.Path {
		errs = append(errs, fmt.Sprintf("expected path %s, got %s", e.Path, ev.Path))
	}
	if e.Queries != nil && *e.Queries != len(ev.Statements) {
		errs = append(errs, fmt.Sprintf("expected %d queries, got %d", *e.Queries, len(ev.Statements)))
	}
	if e.Rows != nil && *e.Rows != ev.Rows {
		errs = append(errs, fmt.Sprintf("expected %d rows, got %d", *e.Rows, ev.Rows))
	}
	return errs
}

func errorName(err error) string {
	switch {
	case err == nil:
		return ""
	case collection.IsInvalidCandidate(err):
		return ErrorInvalidCandidate
	case collection.IsStoreFailure(err):
		return ErrorStoreFailure
	default:
		return err.Error()
	}
}
