// Package collection implements lazy, query-backed collections and their
// membership resolution.
//
// A Collection is an immutable Descriptor (entity type, filters,
// projection, grouping, ordering, window) bound to a registry and a
// Querier. Iterating it (Fetch, Records, Rows, Len) materializes a
// ResultCache once; the cache is tagged with the collection's shape:
//
//   - ShapeFullEntities: one record per stored entity
//   - ShapeProjected: partial field tuples (Values)
//   - ShapeGrouped: aggregated rows (GroupBy)
//
// Contains answers "is this candidate a member" in strict order:
//
//  1. Compatibility check: a non-entity fails with ErrInvalidCandidateType;
//     an entity of another compatibility class or without an identity key
//     is not a member. Neither touches the store.
//  2. A FullEntities cache answers without a query.
//  3. Otherwise one existence query is issued. For grouped collections it
//     asks whether the candidate's row passes the pre-aggregation filters
//     and falls in a group that survives aggregation.
//
// Contains never materializes the cache and never writes to the store.
// Store failures surface as a ResolveError with code
// STORE_EXECUTION_FAILURE and are not retried.
//
// A Collection is meant for one logical caller flow; Contains takes no
// locks.
package collection
