package queryir

import "github.com/roach88/lazyset/internal/ir"

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: a collection's row set
//   - Exists: membership of a matching row in a Select's row set
//   - GroupMember: membership of a raw row in a grouped Select's surviving groups
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal_value
//   - NotEquals: field <> literal_value
//   - BoundEquals: field = bound_variable
//   - And: all predicates must be true
//   - Not: the predicate must be false
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// AggregateFunc names an aggregate function.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// ValidAggregates lists the aggregate functions the SQL backend supports.
var ValidAggregates = map[AggregateFunc]bool{
	AggCount: true,
	AggSum:   true,
	AggMin:   true,
	AggMax:   true,
}

// Aggregate is one computed column of a grouped Select.
// Field "*" is only meaningful for COUNT.
type Aggregate struct {
	Func  AggregateFunc
	Field string
	Alias string
}

// OrderTerm is one ORDER BY term.
type OrderTerm struct {
	Field string
	Desc  bool
}

// Select represents a collection's row set.
//
// Semantics:
//
//	SELECT <bindings | group-by + aggregates> FROM <from>
//	WHERE <filter>
//	GROUP BY <group-by> HAVING <having>
//	ORDER BY <order-by>, <key>
//	LIMIT <limit>
//
// Example:
//
//	Select{
//	  From:     "object_a",
//	  Key:      "id",
//	  Filter:   &NotEquals{Field: "name", Value: ir.IRString("a")},
//	  Bindings: map[string]string{"id": "id", "name": "name"},
//	}
//
// Key names the identity column. It is the deterministic ORDER BY
// tiebreaker and the column existence checks match against.
//
// When GroupBy is set the Select is grouped: Bindings are ignored, the
// output columns are the GroupBy fields followed by Aggregates, and Having
// filters the aggregated rows.
type Select struct {
	From       string            // Table or view name (e.g., "object_a")
	Key        string            // Identity column (e.g., "id")
	Filter     Predicate         // WHERE conditions (nil = no filter)
	Bindings   map[string]string // source_field → output column
	GroupBy    []string          // GROUP BY fields (nil = not grouped)
	Aggregates []Aggregate       // computed columns of a grouped select
	Having     Predicate         // post-aggregation filter (grouped only)
	OrderBy    []OrderTerm       // explicit ordering (Key is always appended)
	Limit      int               // 0 = unbounded
}

func (Select) queryNode() {}

// Grouped reports whether the select aggregates rows.
func (s Select) Grouped() bool {
	return len(s.GroupBy) > 0
}

// Exists asks whether Source's row set contains a row satisfying Match.
//
// Semantics:
//
//	SELECT EXISTS(SELECT 1 FROM <source window> WHERE <source filter> AND <match>)
//
// Exists always yields exactly one row with one boolean column, so it needs
// no ORDER BY. The Source's ordering and Limit are honored only to define
// the window the match is evaluated in.
type Exists struct {
	Source Select
	Match  Predicate
}

func (Exists) queryNode() {}

// GroupMember asks whether the raw row selected by Probe (under Source's
// pre-aggregation Filter) belongs to a group that survives Source's
// aggregation and Having clause.
//
// Semantics:
//
//	SELECT EXISTS(
//	  SELECT 1
//	  FROM (<grouped source>) AS grp
//	  JOIN (SELECT <group-by> FROM <from> WHERE <filter> AND <probe>) AS probe
//	  ON grp.g1 IS probe.g1 AND ...)
//
// Group keys are compared with NULL-safe equality because NULL forms its
// own group in SQL.
type GroupMember struct {
	Source Select
	Probe  Predicate
}

func (GroupMember) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
//	<field> = <value>
//
// NULLs never equal anything (use explicit IS NULL semantics elsewhere).
type Equals struct {
	Field string     // Field name in current query source
	Value ir.IRValue // Literal value (constrained to IRValue types)
}

func (Equals) predicateNode() {}

// NotEquals represents a field-differs-from-literal predicate.
//
//	<field> <> <value>
type NotEquals struct {
	Field string
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// BoundEquals represents a field-equals-bound-variable predicate.
//
//	<field> = <bound_variable>
//
// BoundVar follows the "bound.varName" convention; the compiler looks the
// value up in its BoundValues map at compile time.
type BoundEquals struct {
	Field    string // Field name in current query source
	BoundVar string // Variable (e.g., "bound.key")
}

func (BoundEquals) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty Predicates slice is vacuously true.
type And struct {
	Predicates []Predicate // All must be true (empty = always true)
}

func (And) predicateNode() {}

// Not negates a predicate.
//
//	NOT (<predicate>)
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Conjoin combines predicates into one, dropping nils and flattening
// nested And nodes. Returns nil when nothing remains.
func Conjoin(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch pred := p.(type) {
		case nil:
			continue
		case And:
			flat = append(flat, pred.Predicates...)
		case *And:
			if pred != nil {
				flat = append(flat, pred.Predicates...)
			}
		default:
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return And{Predicates: flat}
	}
}
