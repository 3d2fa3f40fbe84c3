package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lazyset/internal/ir"
)

func TestValidate_PortableQuery(t *testing.T) {
	query := Select{
		From: "object_a",
		Key:  "id",
		Filter: Equals{
			Field: "name",
			Value: ir.IRString("one"),
		},
		Bindings: map[string]string{
			"id": "id",
		},
	}

	result := Validate(query)

	assert.True(t, result.IsPortable, "simple select should be portable")
	assert.Empty(t, result.Warnings)
}

func TestValidate_PortableQueryWithPointer(t *testing.T) {
	query := &Select{
		From:     "object_a",
		Key:      "id",
		Filter:   &Equals{Field: "name", Value: ir.IRString("one")},
		Bindings: map[string]string{"id": "id"},
	}

	result := Validate(query)

	assert.True(t, result.IsPortable)
	assert.Empty(t, result.Warnings)
}

func TestValidate_EmptyBindings(t *testing.T) {
	query := Select{From: "object_a", Key: "id"}

	result := Validate(query)

	assert.False(t, result.IsPortable, "SELECT * is not portable")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Empty bindings")
}

func TestValidate_GroupedSelectWarns(t *testing.T) {
	query := Select{
		From:       "object_a",
		Key:        "id",
		GroupBy:    []string{"name"},
		Aggregates: []Aggregate{{Func: AggCount, Field: "*", Alias: "n"}},
	}

	result := Validate(query)

	assert.False(t, result.IsPortable)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Grouping")
}

func TestValidate_NegationWarns(t *testing.T) {
	query := Select{
		From:     "object_a",
		Key:      "id",
		Bindings: map[string]string{"id": "id"},
		Filter: And{Predicates: []Predicate{
			NotEquals{Field: "name", Value: ir.IRString("a")},
			Not{Predicate: Equals{Field: "id", Value: ir.IRInt(1)}},
		}},
	}

	result := Validate(query)

	assert.False(t, result.IsPortable)
	assert.Len(t, result.Warnings, 2)
}

func TestValidate_NullLiteralWarns(t *testing.T) {
	query := Select{
		From:     "object_a",
		Key:      "id",
		Bindings: map[string]string{"id": "id"},
		Filter:   Equals{Field: "name", Value: ir.IRNull{}},
	}

	result := Validate(query)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "NULL")
}

func TestValidate_ExistsAndGroupMember(t *testing.T) {
	base := Select{From: "object_a", Key: "id", Bindings: map[string]string{"id": "id"}}

	exists := Exists{Source: base, Match: Equals{Field: "id", Value: ir.IRInt(1)}}
	assert.True(t, Validate(exists).IsPortable)

	grouped := base
	grouped.GroupBy = []string{"name"}
	member := &GroupMember{Source: grouped, Probe: Equals{Field: "id", Value: ir.IRInt(1)}}
	assert.False(t, Validate(member).IsPortable)
}

func TestValidate_LimitWarns(t *testing.T) {
	query := Select{From: "object_a", Key: "id", Bindings: map[string]string{"id": "id"}, Limit: 3}

	result := Validate(query)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "LIMIT")
}

func TestValidate_NilQuery(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsPortable)
}

func TestConjoin(t *testing.T) {
	a := Equals{Field: "a", Value: ir.IRInt(1)}
	b := Equals{Field: "b", Value: ir.IRInt(2)}
	c := Equals{Field: "c", Value: ir.IRInt(3)}

	assert.Nil(t, Conjoin())
	assert.Nil(t, Conjoin(nil, nil))
	assert.Equal(t, a, Conjoin(nil, a))
	assert.Equal(t, And{Predicates: []Predicate{a, b, c}}, Conjoin(And{Predicates: []Predicate{a, b}}, c))
}
