package ldvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullValue(t *testing.T) {
	v := Null()
	assert.Equal(t, NullType, v.Type())
	assert.True(t, v.IsNull())
	assert.False(t, v.IsNumber())
	assert.Equal(t, v, Value{})
}

func TestBoolValue(t *testing.T) {
	assert.True(t, Bool(true).BoolValue())
	assert.False(t, Bool(false).BoolValue())
	assert.False(t, String("x").BoolValue())
}

func TestNumberValue(t *testing.T) {
	assert.Equal(t, 3, Int(3).IntValue())
	assert.Equal(t, 3.5, Float64(3.5).Float64Value())
	assert.True(t, Int(3).IsInt())
	assert.False(t, Float64(3.5).IsInt())
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "abc", String("abc").StringValue())
	assert.Equal(t, "", Int(1).StringValue())
}

func TestArrayValue(t *testing.T) {
	a := BuildArray().Add(Int(1)).Add(String("two")).Build()
	assert.Equal(t, ArrayType, a.Type())
	assert.Equal(t, 2, a.Count())
	assert.Equal(t, Int(1), a.Index(0))
	assert.Equal(t, String("two"), a.Index(1))
	assert.Equal(t, Null(), a.Index(5))
	assert.Equal(t, []Value{Int(1), String("two")}, a.AsSlice())
}

func TestObjectValue(t *testing.T) {
	o := BuildObject().Set("a", Int(1)).Set("b", Int(2)).Build()
	assert.Equal(t, ObjectType, o.Type())
	assert.Equal(t, []string{"a", "b"}, o.Keys())
	assert.Equal(t, Int(1), o.GetByKey("a"))
	assert.Equal(t, Null(), o.GetByKey("missing"))
	v, ok := o.TryGetByKey("b")
	assert.True(t, ok)
	assert.Equal(t, Int(2), v)
	_, ok = o.TryGetByKey("missing")
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Int(2)))
	assert.True(t, ArrayOf(Int(1), Int(2)).Equal(ArrayOf(Int(1), Int(2))))
	assert.False(t, ArrayOf(Int(1), Int(2)).Equal(ArrayOf(Int(2), Int(1))))
	o1 := BuildObject().Set("a", Int(1)).Set("b", Int(2)).Build()
	o2 := BuildObject().Set("b", Int(2)).Set("a", Int(1)).Build()
	assert.True(t, o1.Equal(o2))
}

func TestFromInterfaceAndBack(t *testing.T) {
	raw := map[string]interface{}{"x": float64(1), "y": "z"}
	v := FromInterface(raw)
	assert.Equal(t, ObjectType, v.Type())
	back := v.AsArbitraryValue()
	assert.Equal(t, raw, back)
}

func TestMarshalUnmarshalJSONRoundTrip(t *testing.T) {
	o := BuildObject().
		Set("s", String("hi")).
		Set("n", Int(3)).
		Set("b", Bool(true)).
		Set("a", ArrayOf(Int(1), Null())).
		Build()

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, o.Equal(decoded))
}

func TestEnumerateArray(t *testing.T) {
	a := ArrayOf(String("a"), String("b"), String("c"))
	var seen []string
	a.Enumerate(func(i int, key string, value Value) bool {
		seen = append(seen, value.StringValue())
		return true
	})
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestEnumerateStopsEarly(t *testing.T) {
	a := ArrayOf(Int(1), Int(2), Int(3))
	count := 0
	a.Enumerate(func(i int, key string, value Value) bool {
		count++
		return value.IntValue() < 2
	})
	assert.Equal(t, 2, count)
}

func TestOptionalString(t *testing.T) {
	absent := OptionalString{}
	assert.False(t, absent.IsDefined())
	assert.Nil(t, absent.AsPointer())

	present := NewOptionalString("hi")
	assert.True(t, present.IsDefined())
	require.NotNil(t, present.AsPointer())
	assert.Equal(t, "hi", *present.AsPointer())

	data, err := json.Marshal(present)
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, string(data))

	data, err = json.Marshal(absent)
	require.NoError(t, err)
	assert.Equal(t, `null`, string(data))
}

func TestAsString(t *testing.T) {
	s, ok := String("abc").AsString()
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	s, ok = Int(5).AsString()
	assert.True(t, ok)
	assert.Equal(t, "5", s)

	_, ok = Float64(5.5).AsString()
	assert.False(t, ok)

	_, ok = Bool(true).AsString()
	assert.False(t, ok)
}
