package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/lazyset/internal/model"
)

const testModels = `
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

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSeededStore creates a store with the test entity tables.
func createSeededStore(t *testing.T) (*Store, *model.Registry) {
	t.Helper()
	reg, err := model.LoadSource(testModels)
	require.NoError(t, err)

	s := createTestStore(t)
	require.NoError(t, s.EnsureEntities(context.Background(), reg))
	return s, reg
}
