package value_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/flatten/internal/value"
)

func TestDecode_KeepsObjectOrder(t *testing.T) {
	v, err := value.Decode([]byte(`{"z": 1, "a": "x", "m": {"k2": true, "k1": null}}`))
	require.NoError(t, err)

	m, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())

	inner, _ := m.Get("m")
	im, ok := inner.AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"k2", "k1"}, im.Keys())
}

func TestDecode_Scalars(t *testing.T) {
	cases := []struct {
		in   string
		want value.Value
	}{
		{`1`, value.Int(1)},
		{`1.50`, value.Number("1.50")},
		{`"s"`, value.String("s")},
		{`true`, value.Bool(true)},
		{`null`, value.Null()},
		{`[1, "a", {"b": 2}]`, value.Sequence(value.Int(1), value.String("a"), value.Mapping(value.MapOf("b", value.Int(2))))},
		{`[]`, value.Sequence()},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := value.Decode([]byte(tc.in))
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s, want %s", got, tc.want)
		})
	}
}

func TestDecode_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	v, err := value.Decode([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)

	m, _ := v.AsMap()
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	a, _ := m.Get("a")
	assert.True(t, value.Int(3).Equal(a))
}

func TestDecode_Errors(t *testing.T) {
	cases := []string{
		``,
		`{not json`,
		`{"a": 1`,
		`{"a": 1} {"b": 2}`,
		`[1, 2`,
		`{"a" 1}`,
	}
	for _, in := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := value.Decode([]byte(in))
			assert.Error(t, err)
		})
	}
}

func nested(depth int) string {
	return strings.Repeat(`{"a":`, depth) + "1" + strings.Repeat("}", depth)
}

func TestDecode_MaxDepth(t *testing.T) {
	_, err := value.Decode([]byte(nested(value.MaxDepth)))
	require.NoError(t, err)

	_, err = value.Decode([]byte(nested(value.MaxDepth + 1)))
	assert.ErrorIs(t, err, value.ErrTooDeep)

	arrays := strings.Repeat("[", value.MaxDepth+1) + strings.Repeat("]", value.MaxDepth+1)
	_, err = value.Decode([]byte(arrays))
	assert.ErrorIs(t, err, value.ErrTooDeep)

	var m value.Map
	assert.ErrorIs(t, m.UnmarshalJSON([]byte(nested(value.MaxDepth+1))), value.ErrTooDeep)
}

func TestMarshalJSON_RoundTripsOrder(t *testing.T) {
	in := `{"z":1,"a":[true,null,"x"],"m":{"k":1.25}}`
	v, err := value.Decode([]byte(in))
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestMarshalJSON_RejectsBadNumber(t *testing.T) {
	_, err := json.Marshal(value.Number("12abc"))
	assert.Error(t, err)
}

func TestMap_UnmarshalJSONRequiresObject(t *testing.T) {
	var m value.Map
	require.NoError(t, json.Unmarshal([]byte(`{"b":1,"a":2}`), &m))
	assert.Equal(t, []string{"b", "a"}, m.Keys())

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &m))
}

func TestValue_Empty(t *testing.T) {
	assert.True(t, value.Null().Empty())
	assert.True(t, value.String("").Empty())
	assert.True(t, value.Mapping(nil).Empty())
	assert.True(t, value.Sequence().Empty())
	assert.False(t, value.String(" ").Empty())
	assert.False(t, value.Int(0).Empty())
	assert.False(t, value.Bool(false).Empty())
}

func TestValue_Interface(t *testing.T) {
	v := value.Mapping(value.MapOf(
		"n", value.Int(7),
		"s", value.Sequence(value.String("a"), value.Null()),
	))
	assert.Equal(t, map[string]any{
		"n": json.Number("7"),
		"s": []any{"a", nil},
	}, v.Interface())
}

func TestNilMapReadsEmpty(t *testing.T) {
	var m *value.Map
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get("x")
	assert.False(t, ok)
	assert.Nil(t, m.Keys())
}
