// Package ldvalue provides the Value type, a polymorphic representation of any JSON-like
// value that can appear in flag variations, user custom attributes, or clause values.
package ldvalue

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// ValueType describes the type of a Value.
type ValueType int

// The possible types of a Value.
const (
	NullType ValueType = iota
	BoolType
	NumberType
	StringType
	ArrayType
	ObjectType
)

func (t ValueType) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable sum type representing any value that can appear in the wire
// JSON for flags, segments, or user attributes: null, boolean, number, string, an
// ordered array of Values, or an ordered mapping from string to Value.
//
// Unlike a plain interface{}, Value always carries its JSON type explicitly, so code
// that inspects a Value does not need reflection or type assertions, and object keys
// preserve the order in which they were built or parsed - required for a
// deterministic, languages-agnostic JSON round trip.
type Value struct {
	valueType ValueType
	boolValue bool
	numValue  float64
	strValue  string
	array     []Value
	object    *orderedMap
}

// orderedMap is an insertion-ordered string-keyed map. It is immutable once built: all
// mutation happens through ObjectBuilder, which copies on write.
type orderedMap struct {
	keys   []string
	values map[string]Value
}

func newOrderedMap(capacity int) *orderedMap {
	return &orderedMap{keys: make([]string, 0, capacity), values: make(map[string]Value, capacity)}
}

func (m *orderedMap) get(key string) (Value, bool) {
	if m == nil {
		return Null(), false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *orderedMap) set(key string, value Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *orderedMap) len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Null returns a Value representing JSON null. This is also the zero value of Value.
func Null() Value {
	return Value{valueType: NullType}
}

// Bool returns a Value representing a boolean.
func Bool(value bool) Value {
	return Value{valueType: BoolType, boolValue: value}
}

// Int returns a Value representing a number, from an int.
func Int(value int) Value {
	return Value{valueType: NumberType, numValue: float64(value)}
}

// Float64 returns a Value representing a number, from a float64.
func Float64(value float64) Value {
	return Value{valueType: NumberType, numValue: value}
}

// String returns a Value representing a string.
func String(value string) Value {
	return Value{valueType: StringType, strValue: value}
}

// ArrayOf returns a Value representing an array, copying the given elements in order.
func ArrayOf(values ...Value) Value {
	a := make([]Value, len(values))
	copy(a, values)
	return Value{valueType: ArrayType, array: a}
}

// ArrayBuilder is a mutable builder for constructing an array Value element by element.
type ArrayBuilder struct {
	items []Value
}

// BuildArray creates a new ArrayBuilder.
func BuildArray() *ArrayBuilder {
	return &ArrayBuilder{}
}

// Add appends an element and returns the same builder for chaining.
func (b *ArrayBuilder) Add(value Value) *ArrayBuilder {
	b.items = append(b.items, value)
	return b
}

// Build creates the immutable array Value.
func (b *ArrayBuilder) Build() Value {
	a := make([]Value, len(b.items))
	copy(a, b.items)
	return Value{valueType: ArrayType, array: a}
}

// ObjectBuilder is a mutable builder for constructing an object Value key by key, in
// insertion order.
type ObjectBuilder struct {
	m *orderedMap
}

// BuildObject creates a new ObjectBuilder.
func BuildObject() *ObjectBuilder {
	return &ObjectBuilder{m: newOrderedMap(4)}
}

// Set sets a key to a value, preserving first-insertion order, and returns the same
// builder for chaining.
func (b *ObjectBuilder) Set(key string, value Value) *ObjectBuilder {
	b.m.set(key, value)
	return b
}

// Build creates the immutable object Value.
func (b *ObjectBuilder) Build() Value {
	cp := newOrderedMap(len(b.m.keys))
	for _, k := range b.m.keys {
		cp.set(k, b.m.values[k])
	}
	return Value{valueType: ObjectType, object: cp}
}

// Type returns the JSON type of the value.
func (v Value) Type() ValueType {
	return v.valueType
}

// IsNull returns true if this is a null value.
func (v Value) IsNull() bool {
	return v.valueType == NullType
}

// IsNumber returns true if this is a number value.
func (v Value) IsNumber() bool {
	return v.valueType == NumberType
}

// IsInt returns true if this is a number value with no fractional component.
func (v Value) IsInt() bool {
	return v.valueType == NumberType && v.numValue == float64(int64(v.numValue))
}

// BoolValue returns the value as a bool, or false if it is not a boolean.
func (v Value) BoolValue() bool {
	if v.valueType != BoolType {
		return false
	}
	return v.boolValue
}

// Float64Value returns the value as a float64, or 0 if it is not a number.
func (v Value) Float64Value() float64 {
	if v.valueType != NumberType {
		return 0
	}
	return v.numValue
}

// IntValue returns the value truncated to an int, or 0 if it is not a number.
func (v Value) IntValue() int {
	if v.valueType != NumberType {
		return 0
	}
	return int(v.numValue)
}

// StringValue returns the value as a string, or "" if it is not a string.
func (v Value) StringValue() string {
	if v.valueType != StringType {
		return ""
	}
	return v.strValue
}

// Count returns the number of elements in an array or object, or 0 otherwise.
func (v Value) Count() int {
	switch v.valueType {
	case ArrayType:
		return len(v.array)
	case ObjectType:
		return v.object.len()
	default:
		return 0
	}
}

// Index returns the nth array element, or Null() if out of range or not an array.
func (v Value) Index(i int) Value {
	if v.valueType != ArrayType || i < 0 || i >= len(v.array) {
		return Null()
	}
	return v.array[i]
}

// AsSlice returns a copy of the array elements, or nil if this is not an array.
func (v Value) AsSlice() []Value {
	if v.valueType != ArrayType {
		return nil
	}
	out := make([]Value, len(v.array))
	copy(out, v.array)
	return out
}

// Keys returns the object's keys, in insertion order, or nil if this is not an object.
func (v Value) Keys() []string {
	if v.valueType != ObjectType || v.object == nil {
		return nil
	}
	out := make([]string, len(v.object.keys))
	copy(out, v.object.keys)
	return out
}

// GetByKey returns the named object property, or Null() if absent or not an object.
func (v Value) GetByKey(key string) Value {
	if v.valueType != ObjectType {
		return Null()
	}
	val, _ := v.object.get(key)
	return val
}

// TryGetByKey returns the named object property and whether it was present.
func (v Value) TryGetByKey(key string) (Value, bool) {
	if v.valueType != ObjectType {
		return Null(), false
	}
	return v.object.get(key)
}

// Equal does deep structural comparison, including array/object element order for
// arrays (objects compare by key/value pairs regardless of insertion order).
func (v Value) Equal(o Value) bool {
	if v.valueType != o.valueType {
		return false
	}
	switch v.valueType {
	case NullType:
		return true
	case BoolType:
		return v.boolValue == o.boolValue
	case NumberType:
		return v.numValue == o.numValue
	case StringType:
		return v.strValue == o.strValue
	case ArrayType:
		if len(v.array) != len(o.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(o.array[i]) {
				return false
			}
		}
		return true
	case ObjectType:
		if v.object.len() != o.object.len() {
			return false
		}
		for _, k := range v.object.keys {
			ov, ok := o.object.get(k)
			if !ok || !v.object.values[k].Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromInterface converts an arbitrary interface{}, as produced by encoding/json
// unmarshaling into interface{}, into a Value. Unrecognized types become Null().
func FromInterface(raw interface{}) Value {
	switch r := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(r)
	case string:
		return String(r)
	case float64:
		return Float64(r)
	case int:
		return Int(r)
	case json.Number:
		f, err := r.Float64()
		if err != nil {
			return Null()
		}
		return Float64(f)
	case []interface{}:
		b := BuildArray()
		for _, e := range r {
			b.Add(FromInterface(e))
		}
		return b.Build()
	case map[string]interface{}:
		// encoding/json does not preserve key order in a map[string]interface{}; callers
		// that need order-preserving object parsing should decode via json.Decoder with
		// UseNumber and build the Value incrementally instead of going through this path.
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := BuildObject()
		for _, k := range keys {
			b.Set(k, FromInterface(r[k]))
		}
		return b.Build()
	default:
		return Null()
	}
}

// AsArbitraryValue converts a Value back to a plain interface{} tree, the inverse of
// FromInterface, for interop with code (such as custom attribute consumers) that still
// expects encoding/json-style values.
func (v Value) AsArbitraryValue() interface{} {
	switch v.valueType {
	case NullType:
		return nil
	case BoolType:
		return v.boolValue
	case NumberType:
		return v.numValue
	case StringType:
		return v.strValue
	case ArrayType:
		out := make([]interface{}, len(v.array))
		for i, e := range v.array {
			out[i] = e.AsArbitraryValue()
		}
		return out
	case ObjectType:
		out := make(map[string]interface{}, v.object.len())
		for _, k := range v.object.keys {
			out[k] = v.object.values[k].AsArbitraryValue()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler, preserving object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.valueType {
	case NullType:
		return []byte("null"), nil
	case BoolType:
		return json.Marshal(v.boolValue)
	case NumberType:
		return json.Marshal(v.numValue)
	case StringType:
		return json.Marshal(v.strValue)
	case ArrayType:
		var buf []byte
		buf = append(buf, '[')
		for i, e := range v.array {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')
		return buf, nil
	case ObjectType:
		var buf []byte
		buf = append(buf, '{')
		for i, k := range v.object.keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := v.object.values[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key order by way of
// json.Decoder's token stream rather than decoding into a map[string]interface{}.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeValueFromToken(dec, tok)
}

func decodeValueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Float64(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			b := BuildArray()
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				b.Add(elem)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null(), err
			}
			return b.Build(), nil
		case '{':
			b := BuildObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				b.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null(), err
			}
			return b.Build(), nil
		}
	}
	return Null(), nil
}

// Enumerate calls fn for each element of an array (with an empty key) or each property
// of an object (in insertion order, with its position as the index), stopping early if fn returns
// false.
func (v Value) Enumerate(fn func(i int, key string, value Value) bool) {
	switch v.valueType {
	case ArrayType:
		for i, e := range v.array {
			if !fn(i, "", e) {
				return
			}
		}
	case ObjectType:
		for i, k := range v.object.keys {
			if !fn(i, k, v.object.values[k]) {
				return
			}
		}
	}
}

// OptionalString represents a string that may or may not be present, distinguishing
// "absent" from "present but empty".
type OptionalString struct {
	value string
	valid bool
}

// NewOptionalString wraps a present string value.
func NewOptionalString(value string) OptionalString {
	return OptionalString{value: value, valid: true}
}

// IsDefined reports whether a value is present.
func (o OptionalString) IsDefined() bool { return o.valid }

// StringValue returns the wrapped value, or "" if absent.
func (o OptionalString) StringValue() string { return o.value }

// AsPointer returns a pointer to the wrapped value, or nil if absent.
func (o OptionalString) AsPointer() *string {
	if !o.valid {
		return nil
	}
	v := o.value
	return &v
}

// MarshalJSON implements json.Marshaler, encoding an absent value as null.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// AsString formats the value for bucketing/stringification purposes: string values are
// returned as-is, int-valued numbers are formatted in base 10, everything else yields
// ok=false (callers should treat that as "no usable string attribute").
func (v Value) AsString() (string, bool) {
	switch v.valueType {
	case StringType:
		return v.strValue, true
	case NumberType:
		if v.IsInt() {
			return strconv.FormatInt(int64(v.numValue), 10), true
		}
		return "", false
	default:
		return "", false
	}
}
