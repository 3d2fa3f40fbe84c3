package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazyset/internal/ir"
	"github.com/roach88/lazyset/internal/store"
)

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("coll-1")
	assert.Equal(t, "coll-1", gen.Generate())
	assert.Equal(t, "coll-1", gen.Generate())

	assert.Equal(t, "test-collection", NewFixedIDGenerator("").Generate())
}

func TestStatementLog_RecordAndReset(t *testing.T) {
	log := NewStatementLog()
	args := []any{int64(1)}
	log.Record(store.QueryEvent{Kind: store.KindExists, SQL: "SELECT 1", Args: args})

	args[0] = int64(99)
	stmts := log.Statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, store.KindExists, stmts[0].Kind)
	assert.Equal(t, []any{int64(1)}, stmts[0].Args, "args are copied")

	log.Reset()
	assert.Equal(t, 0, log.Count())
}

func TestStatementLog_ThreadSafe(t *testing.T) {
	log := NewStatementLog()
	const n = 50

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			log.Record(store.QueryEvent{Kind: store.KindSelect})
		}()
	}
	wg.Wait()

	assert.Equal(t, n, log.Count())
}

func TestSeededStore_KeysFollowInsertionOrder(t *testing.T) {
	s, reg, records := SeededStore(t)

	want := map[string]ir.IRValue{
		"a": ir.IRInt(1), "b": ir.IRInt(2), "c": ir.IRInt(3),
		"child": ir.IRInt(4), "proxy": ir.IRInt(5), "untagged": ir.IRInt(6),
		"b_one": ir.IRInt(1), "b_two": ir.IRInt(2),
	}
	for ref, key := range want {
		require.Contains(t, records, ref)
		assert.Equal(t, key, records[ref].Key, ref)
	}

	got, err := s.Get(context.Background(), reg, "ObjectA", ir.IRInt(4))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("child"), got.Get("name"), "child rows have a parent row")
}

func TestCountQueries(t *testing.T) {
	s, _, _ := SeededStore(t)
	ctx := context.Background()

	n := CountQueries(t, s, func() {
		_, err := s.Exists(ctx, "SELECT EXISTS(SELECT 1 FROM object_a WHERE id = ?)", int64(1))
		require.NoError(t, err)
	})
	assert.Equal(t, int64(1), n)

	AssertNumQueries(t, s, 0, func() {})
}

func TestStatementLog_ObservesStore(t *testing.T) {
	s, _, _ := SeededStore(t)
	log := NewStatementLog()
	stop := s.Observe(log.Record)

	_, err := s.Exists(context.Background(), "SELECT EXISTS(SELECT 1 FROM object_b)")
	require.NoError(t, err)
	stop()
	_, err = s.Exists(context.Background(), "SELECT EXISTS(SELECT 1 FROM object_b)")
	require.NoError(t, err)

	require.Equal(t, 1, log.Count())
	assert.Equal(t, "SELECT EXISTS(SELECT 1 FROM object_b)", log.Statements()[0].SQL)
}
