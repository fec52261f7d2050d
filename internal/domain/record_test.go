package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetPreservesInsertionOrder(t *testing.T) {
	var r Record
	r.Set("b", "x")
	r.Set("a", 1.5)
	r.Set("b", "y")

	assert.Equal(t, []string{"b", "a"}, r.Columns())
	assert.Equal(t, "y", r.Value("b"))
	assert.Equal(t, 2, r.Len())
}

func TestRecord_NormalizesIntegers(t *testing.T) {
	r := NewRecord(2)
	r.Set("i", 7)
	r.Set("n", json.Number("12"))
	r.Set("f", json.Number("1.25"))

	assert.Equal(t, int64(7), r.Value("i"))
	assert.Equal(t, int64(12), r.Value("n"))
	assert.InDelta(t, 1.25, r.Value("f"), 1e-9)
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := RecordFromPairs([]string{"a"}, []any{"1"})
	c := r.Clone()
	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "1", r.Value("a"))
	assert.False(t, r.Has("b"))
}

func TestRecord_Int(t *testing.T) {
	r := RecordFromPairs(
		[]string{"s", "f", "i", "frac", "nil"},
		[]any{"88101", 88101.0, int64(88101), 1.5, nil},
	)

	for _, col := range []string{"s", "f", "i"} {
		n, err := r.Int(col)
		require.NoError(t, err, col)
		assert.Equal(t, int64(88101), n)
	}
	_, err := r.Int("frac")
	assert.Error(t, err)
	_, err = r.Int("nil")
	assert.Error(t, err)
	_, err = r.Int("missing")
	assert.Error(t, err)
}

func TestRecord_MarshalJSONKeepsOrder(t *testing.T) {
	r := RecordFromPairs(
		[]string{"z", "a", "nan", "n"},
		[]any{"last", int64(3), math.NaN(), nil},
	)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":"last","a":3,"nan":null,"n":null}`, string(data))
	assert.Equal(t, `{"z":"last","a":3,"nan":null,"n":null}`, string(data))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"whole float", 2019.0, "2019"},
		{"fraction", 38.25, "38.25"},
		{"int", int64(42), "42"},
		{"nan", math.NaN(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat(" 12.5 ")
	assert.True(t, ok)
	assert.InDelta(t, 12.5, f, 1e-9)

	_, ok = ToFloat("abc")
	assert.False(t, ok)
	_, ok = ToFloat(math.NaN())
	assert.False(t, ok)
	_, ok = ToFloat("NaN")
	assert.False(t, ok)
	_, ok = ToFloat(" nan ")
	assert.False(t, ok)
	_, ok = ToFloat(nil)
	assert.False(t, ok)
}
