package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryDigest(t *testing.T) {
	a, err := QueryDigest("SELECT 1 WHERE id = ?", []any{int64(1)})
	require.NoError(t, err)
	b, err := QueryDigest("SELECT 1 WHERE id = ?", []any{int64(2)})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// NULL parameters are representable
	_, err = QueryDigest("SELECT 1 WHERE x IS ?", []any{nil})
	require.NoError(t, err)
}

func TestDefinitionDigest(t *testing.T) {
	a, err := DefinitionDigest(IRObject{"name": IRString("ObjectA"), "table": IRString("object_a")})
	require.NoError(t, err)
	b, err := DefinitionDigest(IRObject{"table": IRString("object_a"), "name": IRString("ObjectA")})
	require.NoError(t, err)
	c, err := DefinitionDigest(IRObject{"name": IRString("ObjectA"), "table": IRString("object_b")})
	require.NoError(t, err)

	assert.Equal(t, a, b, "key order must not matter")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
