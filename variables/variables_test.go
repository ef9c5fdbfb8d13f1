package variables

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"42", NumberValue(42)},
		{" 3.5 ", NumberValue(3.5)},
		{"-7", NumberValue(-7)},
		{"1e3", NumberValue(1000)},
		{"0x1f", NumberValue(31)},
		{"true", BoolValue(true)},
		{"false", BoolValue(false)},
		{"'hi'", StringValue("hi")},
		{`"hi"`, StringValue("hi")},
		{`'hi"`, StringValue(`'hi"`)},
		{"''", StringValue("")},
		{"", StringValue("")},
		{"   ", StringValue("")},
		{"bad(((", StringValue("bad(((")},
		{"Infinity", StringValue("Infinity")},
		{"NaN", StringValue("NaN")},
		{"True", StringValue("True")},
	}

	for _, tt := range tests {
		got := ParseValue(tt.raw)
		assert.Truef(t, got.StrictEqual(tt.want), "ParseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Value{}.Truthy())
	assert.False(t, NumberValue(0).Truthy())
	assert.False(t, NumberValue(math.NaN()).Truthy())
	assert.False(t, StringValue("").Truthy())
	assert.False(t, BoolValue(false).Truthy())
	assert.True(t, NumberValue(-1).Truthy())
	assert.True(t, StringValue("0").Truthy())
	assert.True(t, BoolValue(true).Truthy())
}

func TestLooseAndStrictEquality(t *testing.T) {
	assert.True(t, NumberValue(1).LooseEqual(StringValue("1")))
	assert.True(t, NumberValue(1).LooseEqual(BoolValue(true)))
	assert.False(t, NumberValue(1).StrictEqual(StringValue("1")))
	assert.False(t, Value{}.LooseEqual(NumberValue(0)))
	assert.True(t, Value{}.LooseEqual(Value{}))
	assert.False(t, StringValue("abc").LooseEqual(NumberValue(0)))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1", FormatNumber(1))
	assert.Equal(t, "2.5", FormatNumber(2.5))
	assert.Equal(t, "-0.25", FormatNumber(-0.25))
	assert.Equal(t, "Infinity", FormatNumber(math.Inf(1)))
	assert.Equal(t, "1e+21", FormatNumber(1e21))
}

func TestValueJSON(t *testing.T) {
	decls := []Declaration{
		{Name: "score", Value: NumberValue(0)},
		{Name: "hero", Value: StringValue("Ada")},
		{Name: "key", Value: BoolValue(false)},
		{Name: "unset"},
	}
	data, err := json.Marshal(decls)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"score","value":0},{"name":"hero","value":"Ada"},{"name":"key","value":false},{"name":"unset","value":null}]`, string(data))

	var back []Declaration
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 4)
	for i := range decls {
		assert.True(t, decls[i].Value.StrictEqual(back[i].Value), "declaration %d", i)
	}

	var bad Value
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &bad))
}

func TestStoreFromDefaults(t *testing.T) {
	store := FromDefaults([]Declaration{
		{Name: "score", Value: NumberValue(0)},
		{Name: "", Value: NumberValue(9)},
		{Name: "name", Value: StringValue("Bob")},
		{Name: "score", Value: NumberValue(5)},
	})

	assert.Equal(t, []string{"score", "name"}, store.Names())
	v, ok := store.Get("score")
	require.True(t, ok)
	assert.True(t, v.StrictEqual(NumberValue(5)))
	assert.Equal(t, "score: 5 · name: Bob", store.Summary())

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestStoreCloneIsIndependent(t *testing.T) {
	original := FromDefaults([]Declaration{{Name: "a", Value: NumberValue(1)}})
	clone := original.Clone()
	clone.Set("a", NumberValue(2))
	clone.Set("b", BoolValue(true))

	v, _ := original.Get("a")
	assert.True(t, v.StrictEqual(NumberValue(1)))
	assert.Equal(t, 1, original.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestStoreSummaryEmpty(t *testing.T) {
	assert.Equal(t, "none", NewStore().Summary())
	var nilStore *Store
	assert.Equal(t, "none", nilStore.Summary())
}

func TestStoreMarshalOrdered(t *testing.T) {
	store := NewStore()
	store.Set("z", NumberValue(1))
	store.Set("a", StringValue("x"))
	data, err := json.Marshal(store)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"x"}`, string(data))
}
