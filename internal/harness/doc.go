// Package harness runs membership conformance scenarios.
//
// A scenario declares a model, a data set and named collections, then a
// flow of membership checks and materializations. Every step is traced
// with the store statements it issued, so scenarios pin both the answer
// and its query cost.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	models: ../models
//	records:
//	  - ref: a
//	    type: ObjectA
//	    fields: { name: a, tag: x }
//	collections:
//	  tagged:
//	    type: ObjectA
//	    filter: "tag == x"
//	flow:
//	  - op: contains
//	    collection: tagged
//	    candidate: { ref: a }
//	    expect: { result: true, path: query, queries: 1 }
//	  - op: fetch
//	    collection: tagged
//	    expect: { rows: 1 }
//	assertions:
//	  - type: total_queries
//	    count: 2
//
// A candidate is one of a labelled record (ref, optionally viewed as
// another type with as), a record built from type and key (unsaved
// without a key), or a raw value that is not an entity.
//
// # Assertion Types
//
//   - total_queries: the flow issues exactly count statements
//   - path_count: exactly count checks resolve through path
//   - trace_contains: some statement's SQL contains sql
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory SQLite store. Keys are
// assigned in record order and collections are named after their scenario
// key, so traces compare byte for byte against golden files.
package harness
