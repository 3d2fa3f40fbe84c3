package ir

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b IRValue
		want bool
	}{
		{"same int", IRInt(1), IRInt(1), true},
		{"different int", IRInt(1), IRInt(2), false},
		{"int vs string", IRInt(1), IRString("1"), false},
		{"same string", IRString("one"), IRString("one"), true},
		{"null never equal", IRNull{}, IRNull{}, false},
		{"nil never equal", nil, IRInt(1), false},
		{"objects by content", IRObject{"a": IRInt(1)}, IRObject{"a": IRInt(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    IRValue
		wantErr bool
	}{
		{"nil", nil, IRNull{}, false},
		{"string", "one", IRString("one"), false},
		{"int", 7, IRInt(7), false},
		{"int64", int64(7), IRInt(7), false},
		{"integral float", float64(3), IRInt(3), false},
		{"fractional float", 3.5, nil, true},
		{"bool", true, IRBool(true), false},
		{"list", []any{1, "a"}, IRArray{IRInt(1), IRString("a")}, false},
		{"map", map[string]any{"k": 1}, IRObject{"k": IRInt(1)}, false},
		{"unsupported", struct{}{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromNative(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSQL(t *testing.T) {
	v, err := FromSQL(int64(5))
	require.NoError(t, err)
	assert.Equal(t, IRInt(5), v)

	v, err = FromSQL([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, IRString("abc"), v)

	v, err = FromSQL(nil)
	require.NoError(t, err)
	assert.Equal(t, IRNull{}, v)

	_, err = FromSQL(1.5)
	assert.Error(t, err)
}

func TestToParam(t *testing.T) {
	p, err := ToParam(IRString("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", p)

	p, err = ToParam(IRInt(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), p)

	p, err = ToParam(IRNull{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ToParam(IRArray{})
	assert.Error(t, err)

	_, err = ToParam(nil)
	assert.Error(t, err)
}

func TestIRObjectMarshalJSONSorted(t *testing.T) {
	obj := NewIRObject(O("b", IRInt(2)), O("a", IRNull{}), O("c", IRArray{IRBool(true)}))
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":null,"b":2,"c":[true]}`, string(data))
}

func TestProperty_EqualMatchesCanonicalBytes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("integer keys are equal iff their values are equal", prop.ForAll(
		func(a, b int64) bool {
			return Equal(IRInt(a), IRInt(b)) == (a == b)
		},
		gen.Int64Range(-50, 50),
		gen.Int64Range(-50, 50),
	))

	properties.Property("a string key never equals an integer key", prop.ForAll(
		func(n int64, s string) bool {
			return !Equal(IRInt(n), IRString(s))
		},
		gen.Int64(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
