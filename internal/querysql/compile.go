package querysql

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/queryir"
)

// identPattern restricts table, view and column names. Identifiers are
// interpolated into SQL text, so anything else is rejected.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: every row-returning query has an ORDER BY with a COLLATE BINARY
// tiebreaker so results are deterministic.
// CRITICAL: all values are parameterized, never interpolated.
type SQLCompiler struct {
	// BoundValues holds the values for BoundEquals predicates, keyed by
	// the bound variable name (e.g. "bound.key").
	BoundValues map[string]any
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		BoundValues: make(map[string]any),
	}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query, true)
	case *queryir.Select:
		return c.compileSelect(*query, true)
	case queryir.Exists:
		return c.compileExists(query)
	case *queryir.Exists:
		return c.compileExists(*query)
	case queryir.GroupMember:
		return c.compileGroupMember(query)
	case *queryir.GroupMember:
		return c.compileGroupMember(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
// ordered controls whether ORDER BY is emitted; a windowed select is always
// ordered because LIMIT without ordering is nondeterministic.
func (c *SQLCompiler) compileSelect(q queryir.Select, ordered bool) (string, []any, error) {
	if err := checkSelect(q); err != nil {
		return "", nil, err
	}

	var selectClause string
	if q.Grouped() {
		cols, err := c.compileGroupColumns(q)
		if err != nil {
			return "", nil, err
		}
		selectClause = cols
	} else {
		selectClause = c.compileBindings(q.Bindings)
	}

	var sb strings.Builder
	var params []any
	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectClause, q.From)

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	if q.Grouped() {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(q.GroupBy, ", "))
		if q.Having != nil {
			havingSQL, havingParams, err := c.compilePredicate(q.Having)
			if err != nil {
				return "", nil, fmt.Errorf("compile having: %w", err)
			}
			sb.WriteString(" HAVING ")
			sb.WriteString(havingSQL)
			params = append(params, havingParams...)
		}
	}

	if ordered || q.Limit > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(c.stableOrderKey(q))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, int64(q.Limit))
	}

	return sb.String(), params, nil
}

// compileExists compiles an Exists node.
//
// Without a window the source filter and match are conjoined directly:
//
//	SELECT EXISTS(SELECT 1 FROM src WHERE <filter> AND <match>)
//
// With a Limit the ordered window is materialized as a subquery first so
// that rows outside it are never matched.
func (c *SQLCompiler) compileExists(e queryir.Exists) (string, []any, error) {
	src := e.Source
	if src.Grouped() {
		return "", nil, fmt.Errorf("exists over grouped select %q: use GroupMember", src.From)
	}
	if err := checkSelect(src); err != nil {
		return "", nil, err
	}

	if src.Limit == 0 {
		where, params, err := c.compilePredicate(queryir.Conjoin(src.Filter, e.Match))
		if err != nil {
			return "", nil, fmt.Errorf("compile exists: %w", err)
		}
		sql := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", src.From, where)
		return sql, params, nil
	}

	window := src
	window.Bindings = nil // the match may reference any column of the source
	windowSQL, windowParams, err := c.compileSelect(window, true)
	if err != nil {
		return "", nil, fmt.Errorf("compile exists window: %w", err)
	}
	matchSQL, matchParams, err := c.compilePredicate(e.Match)
	if err != nil {
		return "", nil, fmt.Errorf("compile exists match: %w", err)
	}

	sql := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM (%s) AS win WHERE %s)", windowSQL, matchSQL)
	return sql, append(windowParams, matchParams...), nil
}

// compileGroupMember compiles a GroupMember node into a single query that
// joins the surviving groups to the group key of the probed raw row:
//
//	SELECT EXISTS(
//	  SELECT 1 FROM (<grouped select>) AS grp
//	  JOIN (SELECT <group-by> FROM src WHERE <filter> AND <probe>) AS probe
//	  ON grp.g1 IS probe.g1 AND ...)
//
// IS is SQLite's NULL-safe equality; NULL group keys form their own group.
func (c *SQLCompiler) compileGroupMember(g queryir.GroupMember) (string, []any, error) {
	src := g.Source
	if !src.Grouped() {
		return "", nil, fmt.Errorf("group member over ungrouped select %q: use Exists", src.From)
	}
	if g.Probe == nil {
		return "", nil, fmt.Errorf("group member over %q: probe is required", src.From)
	}

	groupSQL, groupParams, err := c.compileSelect(src, false)
	if err != nil {
		return "", nil, fmt.Errorf("compile grouped source: %w", err)
	}

	probeWhere, probeParams, err := c.compilePredicate(queryir.Conjoin(src.Filter, g.Probe))
	if err != nil {
		return "", nil, fmt.Errorf("compile probe: %w", err)
	}

	on := make([]string, len(src.GroupBy))
	for i, field := range src.GroupBy {
		on[i] = fmt.Sprintf("grp.%s IS probe.%s", field, field)
	}

	sql := fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM (%s) AS grp JOIN (SELECT %s FROM %s WHERE %s) AS probe ON %s)",
		groupSQL,
		strings.Join(src.GroupBy, ", "),
		src.From,
		probeWhere,
		strings.Join(on, " AND "),
	)
	return sql, append(groupParams, probeParams...), nil
}

// compileBindings converts bindings map to SELECT column list.
// Example: {"item_id": "itemId"} → "item_id AS itemId"
// Keys are sorted for deterministic output.
func (c *SQLCompiler) compileBindings(bindings map[string]string) string {
	if len(bindings) == 0 {
		return "*"
	}

	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, sourceField := range keys {
		alias := bindings[sourceField]
		if sourceField == alias {
			parts = append(parts, sourceField)
		} else {
			parts = append(parts, fmt.Sprintf("%s AS %s", sourceField, alias))
		}
	}

	return strings.Join(parts, ", ")
}

// compileGroupColumns renders the group-by fields followed by aggregates.
func (c *SQLCompiler) compileGroupColumns(q queryir.Select) (string, error) {
	parts := append([]string(nil), q.GroupBy...)
	for _, agg := range q.Aggregates {
		if !queryir.ValidAggregates[agg.Func] {
			return "", fmt.Errorf("unsupported aggregate %q", agg.Func)
		}
		if agg.Field == "*" && agg.Func != queryir.AggCount {
			return "", fmt.Errorf("aggregate %s(*) is only valid for COUNT", agg.Func)
		}
		parts = append(parts, fmt.Sprintf("%s(%s) AS %s", agg.Func, agg.Field, agg.Alias))
	}
	return strings.Join(parts, ", "), nil
}

// stableOrderKey returns the ORDER BY clause for a query.
// Explicit order terms come first. The tiebreaker is the Key column for
// plain selects and the group-by fields for grouped selects, each with
// COLLATE BINARY for deterministic text ordering across SQLite versions.
func (c *SQLCompiler) stableOrderKey(q queryir.Select) string {
	var terms []string
	seen := make(map[string]bool)
	for _, t := range q.OrderBy {
		dir := "ASC"
		if t.Desc {
			dir = "DESC"
		}
		terms = append(terms, fmt.Sprintf("%s COLLATE BINARY %s", t.Field, dir))
		seen[t.Field] = true
	}

	tiebreakers := []string{q.Key}
	if q.Grouped() {
		tiebreakers = q.GroupBy
	}
	for _, field := range tiebreakers {
		if !seen[field] {
			terms = append(terms, field+" COLLATE BINARY ASC")
		}
	}

	return strings.Join(terms, ", ")
}

// compilePredicate compiles a queryir.Predicate to SQL WHERE clause fragment.
// Returns (sql, params, error).
// CRITICAL: values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.NotEquals:
		return c.compileNotEquals(pred)
	case *queryir.NotEquals:
		return c.compileNotEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	case queryir.BoundEquals:
		return c.compileBoundEquals(pred)
	case *queryir.BoundEquals:
		return c.compileBoundEquals(*pred)
	case queryir.Not:
		return c.compileNot(pred)
	case *queryir.Not:
		return c.compileNot(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
// A null literal compiles to "field IS NULL".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if err := checkIdent(eq.Field); err != nil {
		return "", nil, err
	}
	if isNull(eq.Value) {
		return eq.Field + " IS NULL", nil, nil
	}

	param, err := ir.ToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

// compileNotEquals compiles a NotEquals predicate. NULL differs from every
// literal, so NULL rows satisfy it.
func (c *SQLCompiler) compileNotEquals(ne queryir.NotEquals) (string, []any, error) {
	if err := checkIdent(ne.Field); err != nil {
		return "", nil, err
	}
	if isNull(ne.Value) {
		return ne.Field + " IS NOT NULL", nil, nil
	}

	param, err := ir.ToParam(ne.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("(%s IS NULL OR %s <> ?)", ne.Field, ne.Field), []any{param}, nil
}

// compileAnd compiles an And predicate to conjunction with AND.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	sqlParts := make([]string, 0, len(and.Predicates))
	var allParams []any

	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// compileNot compiles a Not predicate. The inner predicate is wrapped in
// COALESCE so that an unknown (NULL) comparison counts as false before
// negation, matching "the row does not satisfy the predicate".
func (c *SQLCompiler) compileNot(n queryir.Not) (string, []any, error) {
	inner, params, err := c.compilePredicate(n.Predicate)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("NOT COALESCE((%s), 0)", inner), params, nil
}

// compileBoundEquals compiles a BoundEquals predicate.
// The bound value is looked up from BoundValues; a missing value is an error
// because the statement would otherwise have a dangling placeholder.
func (c *SQLCompiler) compileBoundEquals(beq queryir.BoundEquals) (string, []any, error) {
	if err := checkIdent(beq.Field); err != nil {
		return "", nil, err
	}
	val, ok := c.BoundValues[beq.BoundVar]
	if !ok {
		return "", nil, fmt.Errorf("no value bound for %q", beq.BoundVar)
	}
	return beq.Field + " = ?", []any{val}, nil
}

// checkSelect validates every identifier a Select interpolates.
func checkSelect(q queryir.Select) error {
	if err := checkIdent(q.From); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := checkIdent(q.Key); err != nil {
		return fmt.Errorf("key: %w", err)
	}
	for src, alias := range q.Bindings {
		if err := checkIdent(src); err != nil {
			return fmt.Errorf("binding: %w", err)
		}
		if err := checkIdent(alias); err != nil {
			return fmt.Errorf("binding alias: %w", err)
		}
	}
	for _, f := range q.GroupBy {
		if err := checkIdent(f); err != nil {
			return fmt.Errorf("group by: %w", err)
		}
	}
	for _, agg := range q.Aggregates {
		if agg.Field != "*" {
			if err := checkIdent(agg.Field); err != nil {
				return fmt.Errorf("aggregate: %w", err)
			}
		}
		if err := checkIdent(agg.Alias); err != nil {
			return fmt.Errorf("aggregate alias: %w", err)
		}
	}
	for _, t := range q.OrderBy {
		if err := checkIdent(t.Field); err != nil {
			return fmt.Errorf("order by: %w", err)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func isNull(v ir.IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(ir.IRNull)
	return ok
}
