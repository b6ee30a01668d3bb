package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Value is an immutable, tagged scalar. Fixed-width payloads (bools,
// int64s, float64s, decimals, dates, timestamps, UUIDs) live inline in
// the struct; variable-length payloads (strings, bytes, arrays, structs,
// JSON, ranges, vectors) are shared by reference and treated as
// copy-on-mutate: nothing in this package ever mutates a payload in
// place once a Value exists.
//
// NULL is represented by IsNull, not a sentinel tag value, so that a
// NULL STRING and a NULL INT64 both carry their declared type through
// the pipeline (spec.md §3: "NULL is a first-class value per column").
type Value struct {
	Type   DataType
	IsNull bool

	boolVal  bool
	intVal   int64
	floatVal float64
	timeVal  time.Time
	decimal  Decimal
	uuidVal  uuid.UUID

	// ref holds any variable-length or composite payload: string, []byte,
	// []Value (ARRAY), StructValue, RangeValue, VectorValue, JSONValue.
	ref any
}

// NullValue constructs a NULL of the given type.
func NullValue(t DataType) Value { return Value{Type: t, IsNull: true} }

func BoolValue(b bool) Value        { return Value{Type: Simple(Bool), boolVal: b} }
func Int64Value(i int64) Value      { return Value{Type: Simple(Int64), intVal: i} }
func Float64Value(f float64) Value  { return Value{Type: Simple(Float64), floatVal: f} }
func StringValue(s string) Value    { return Value{Type: Simple(String), ref: s} }
func BytesValue(b []byte) Value     { return Value{Type: Simple(Bytes), ref: append([]byte(nil), b...)} }
func TimestampValue(t time.Time) Value {
	return Value{Type: Simple(Timestamp), timeVal: t}
}
func DecimalValue(d Decimal) Value {
	return Value{Type: DecimalType(d.Precision, d.Scale), decimal: d}
}
func UUIDValue(u uuid.UUID) Value { return Value{Type: Simple(UUIDTag), uuidVal: u} }

func ArrayValue(elem DataType, items []Value) Value {
	return Value{Type: ArrayOf(elem), ref: items}
}

// StructValue is the payload of a STRUCT value: field order matches the
// declaring DataType.Fields.
type StructValue struct {
	Fields []Value
}

func NewStructValue(t DataType, fields []Value) Value {
	return Value{Type: t, ref: StructValue{Fields: fields}}
}

// RangeValue is the payload of a RANGE(T, bounds) value.
type RangeValue struct {
	Lower, Upper         Value
	LowerInclusive       bool
	UpperInclusive       bool
	Empty                bool
}

func NewRangeValue(t DataType, r RangeValue) Value {
	return Value{Type: t, ref: r}
}

// VectorValue is the payload of a fixed-dimension float VECTOR(dim).
type VectorValue []float64

func NewVectorValue(v VectorValue) Value {
	return Value{Type: VectorOf(len(v)), ref: v}
}

// JSONValue wraps an already-decoded JSON document (map[string]any,
// []any, string, float64, bool, or nil), matching encoding/json's
// native decode shapes so the JSON scalar functions can operate on it
// without a second parse.
type JSONValue struct {
	Doc any
}

func NewJSONValue(doc any) Value {
	return Value{Type: Simple(JSON), ref: JSONValue{Doc: doc}}
}

func (v Value) Bool() bool             { return v.boolVal }
func (v Value) Int64() int64           { return v.intVal }
func (v Value) Float64() float64       { return v.floatVal }
func (v Value) Time() time.Time        { return v.timeVal }
func (v Value) Decimal() Decimal       { return v.decimal }
func (v Value) UUID() uuid.UUID        { return v.uuidVal }
func (v Value) String() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Type.Tag {
	case Bool:
		return fmt.Sprintf("%v", v.boolVal)
	case Int64:
		return fmt.Sprintf("%d", v.intVal)
	case Float64:
		return fmt.Sprintf("%v", v.floatVal)
	case DecimalTag:
		return v.decimal.String()
	case String, Bytes:
		if s, ok := v.ref.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v.ref)
	case UUIDTag:
		return v.uuidVal.String()
	default:
		return fmt.Sprintf("%v", v.ref)
	}
}

func (v Value) Str() string {
	if s, ok := v.ref.(string); ok {
		return s
	}
	return ""
}

func (v Value) Bytes() []byte {
	if b, ok := v.ref.([]byte); ok {
		return b
	}
	return nil
}

func (v Value) Array() []Value {
	if a, ok := v.ref.([]Value); ok {
		return a
	}
	return nil
}

func (v Value) Struct() StructValue {
	if s, ok := v.ref.(StructValue); ok {
		return s
	}
	return StructValue{}
}

func (v Value) Range() RangeValue {
	if r, ok := v.ref.(RangeValue); ok {
		return r
	}
	return RangeValue{}
}

func (v Value) Vector() VectorValue {
	if vv, ok := v.ref.(VectorValue); ok {
		return vv
	}
	return nil
}

func (v Value) JSON() JSONValue {
	if j, ok := v.ref.(JSONValue); ok {
		return j
	}
	return JSONValue{}
}
