// Package queryir provides the abstract query intermediate representation
// (IR) that collections are described in and that existence checks are
// built from.
//
// QueryIR is the abstraction boundary between collection descriptors and
// the backend that executes them:
//
//	[Collection] → [Query IR] → [SQL Backend (querysql)]
//
// A collection is a Select: a source, a pre-aggregation filter, an optional
// projection (Bindings), optional grouping (GroupBy, Aggregates, Having),
// ordering and an optional Limit. Membership checks wrap that Select in one
// of two existence nodes:
//
//   - Exists: "does the Select's row set contain a row matching Match"
//   - GroupMember: "does the row matching Probe contribute to a group that
//     survives the Select's aggregation"
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement Query or Predicate. Backends can
// therefore switch exhaustively:
//
//	switch q := query.(type) {
//	case *Select:
//	case *Exists:
//	case *GroupMember:
//	}
//
// PORTABLE FRAGMENT:
//
// Validate reports features outside the portable fragment (grouping,
// negation, windows, NULL comparisons). Non-portable queries still execute
// with the SQL backend; the warnings only inform callers.
//
// VALUES:
//
// All literal values in predicates are ir.IRValue types (no floats).
package queryir
