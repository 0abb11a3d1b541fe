package bridge

import (
	"encoding/json"
	"fmt"
)

// ValueType enumerates the closed set of host value categories accepted at
// the bind boundary.
type ValueType int

// Value categories. There is no implicit coercion between them; a host-side
// string intended as a number must be converted by the caller before
// binding.
const (
	TypeNull ValueType = iota
	TypeBool
	TypeInt64
	TypeDouble
	TypeText
	TypeBlob
)

// Value is the tagged union carried across the host/native boundary for one
// bound parameter.
type Value struct {
	Type   ValueType
	Bool   bool
	Int    int64
	Double float64
	Text   string
	Blob   []byte
}

// Null returns the null Value.
func Null() Value { return Value{Type: TypeNull} }

// Bool wraps a boolean host value.
func Bool(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// Int64 wraps a 64-bit integer host value.
func Int64(i int64) Value { return Value{Type: TypeInt64, Int: i} }

// Double wraps a double host value.
func Double(f float64) Value { return Value{Type: TypeDouble, Double: f} }

// Text wraps a UTF-8 string host value.
func Text(s string) Value { return Value{Type: TypeText, Text: s} }

// Blob wraps a binary host value. A nil slice binds as an empty blob, not
// as null; use Null for null.
func Blob(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{Type: TypeBlob, Blob: b}
}

// engineArg converts v to the engine's bind argument representation. The
// switch is exhaustive over ValueType.
func (v Value) engineArg() interface{} {
	switch v.Type {
	case TypeNull:
		return nil
	case TypeBool:
		return v.Bool
	case TypeInt64:
		return v.Int
	case TypeDouble:
		return v.Double
	case TypeText:
		return v.Text
	case TypeBlob:
		if v.Blob == nil {
			return []byte{}
		}
		return v.Blob
	}
	return nil
}

// String describes the value for error messages and logs.
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBool:
		return fmt.Sprintf("bool(%v)", v.Bool)
	case TypeInt64:
		return fmt.Sprintf("int64(%d)", v.Int)
	case TypeDouble:
		return fmt.Sprintf("double(%g)", v.Double)
	case TypeText:
		return fmt.Sprintf("text(%q)", v.Text)
	case TypeBlob:
		return fmt.Sprintf("blob(%d bytes)", len(v.Blob))
	}
	return "invalid"
}

// FromJSON converts one decoded JSON host value into a Value. Decoders must
// use json.Number so that integers survive the trip (a bare float64 decode
// would turn 42 into 42.0). Arrays and objects have no slot in the closed
// union and are rejected with ErrUnsupportedType; blobs only enter through
// the explicit bindBlob operation.
func FromJSON(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int64(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: number %q", ErrUnsupportedType, t.String())
		}
		return Double(f), nil
	case float64:
		// Decoders without UseNumber hand every number over as float64.
		if t == float64(int64(t)) {
			return Int64(int64(t)), nil
		}
		return Double(t), nil
	case int64:
		return Int64(t), nil
	case int:
		return Int64(int64(t)), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

// ValuesFromJSON converts an ordered host value list for query/run calls.
func ValuesFromJSON(xs []interface{}) ([]Value, error) {
	if len(xs) == 0 {
		return nil, nil
	}
	vals := make([]Value, len(xs))
	for i, x := range xs {
		v, err := FromJSON(x)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return vals, nil
}
