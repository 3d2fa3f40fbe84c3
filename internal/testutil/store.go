// Package testutil provides deterministic helpers shared by tests and the
// conformance harness: a sample entity model, seeded stores, statement
// recording and fixed collection IDs.
package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lazyset/internal/model"
	"github.com/roach88/lazyset/internal/store"
)

// Models declares the sample entity types:
//
//   - ObjectA, the base type;
//   - ProxyObjectA, a transparent proxy sharing ObjectA's storage;
//   - ChildObjectA and GrandChildObjectA, multi-table children;
//   - ObjectB, an unrelated type referencing ObjectA.
const Models = `
entity: ObjectA: {
	table: "object_a"
	fields: {
		name: string
		tag?: string
	}
}
entity: ProxyObjectA: { proxy_of: "ObjectA" }
entity: ChildObjectA: {
	parent: "ObjectA"
	table:  "child_object_a"
	fields: { extra?: string }
}
entity: GrandChildObjectA: {
	parent: "ChildObjectA"
	table:  "grand_child_object_a"
	fields: { depth: int }
}
entity: ObjectB: {
	table: "object_b"
	fields: {
		name:       string
		num:        int
		active?:    bool
		objecta_id: int
	}
	references: { objecta_id: "ObjectA" }
}
`

// Fixtures is the sample data set. Keys are assigned in insertion order:
// object_a holds a=1, b=2, c=3, child=4, proxy=5, untagged=6; object_b
// holds b_one=1 and b_two=2.
const Fixtures = `
records:
  - ref: a
    type: ObjectA
    fields: { name: a, tag: x }
  - ref: b
    type: ObjectA
    fields: { name: b, tag: x }
  - ref: c
    type: ObjectA
    fields: { name: c, tag: y }
  - ref: child
    type: ChildObjectA
    fields: { name: child, tag: y, extra: e }
  - ref: proxy
    type: ProxyObjectA
    fields: { name: proxy, tag: z }
  - ref: untagged
    type: ObjectA
    fields: { name: untagged }
  - ref: b_one
    type: ObjectB
    fields: { name: one, num: 1, active: true, objecta_id: { ref: a } }
  - ref: b_two
    type: ObjectB
    fields: { name: two, num: 2, objecta_id: { ref: b } }
`

// Registry compiles Models.
func Registry(t testing.TB) *model.Registry {
	t.Helper()
	reg, err := model.LoadSource(Models)
	require.NoError(t, err)
	return reg
}

// OpenStore opens an empty store in a temporary directory with the tables
// of reg.
func OpenStore(t testing.TB, reg *model.Registry) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "lazyset.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureEntities(context.Background(), reg))
	return s
}

// SeededStore opens a store loaded with Fixtures and returns the labelled
// records.
func SeededStore(t testing.TB) (*store.Store, *model.Registry, map[string]*model.Record) {
	t.Helper()
	reg := Registry(t)
	s := OpenStore(t, reg)

	fixtures, err := store.DecodeFixtures(strings.NewReader(Fixtures))
	require.NoError(t, err)
	records, err := s.LoadFixtures(context.Background(), reg, fixtures)
	require.NoError(t, err)
	return s, reg, records
}

// CountQueries returns the number of statements s executes during fn.
func CountQueries(t testing.TB, s *store.Store, fn func()) int64 {
	t.Helper()
	before := s.QueryCount()
	fn()
	return s.QueryCount() - before
}

// AssertNumQueries fails the test unless fn executes exactly n statements.
func AssertNumQueries(t testing.TB, s *store.Store, n int64, fn func()) {
	t.Helper()
	require.Equal(t, n, CountQueries(t, s, fn), "unexpected number of queries")
}
