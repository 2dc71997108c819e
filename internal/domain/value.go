// Package domain contains pure, dependency-free domain models and types
// for the dataflow graph engine.
package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// DataType identifies the kind of value a port may carry.
// It is a closed enumeration: ports declare exactly one DataType and an
// edge is only valid when both endpoints declare the same type.
type DataType string

// The complete set of data types carried on ports.
const (
	// TypeString carries UTF-8 text.
	TypeString DataType = "string"

	// TypeInt carries a 64-bit signed integer.
	TypeInt DataType = "integer"

	// TypeFloat carries a 64-bit floating point number.
	TypeFloat DataType = "float"

	// TypeBool carries a boolean.
	TypeBool DataType = "boolean"

	// TypeJSON carries arbitrary structured data. Values are compared by
	// structural equality of their JSON encoding.
	TypeJSON DataType = "json"

	// TypeBinary carries an opaque byte slice.
	TypeBinary DataType = "binary"

	// TypeMessageList carries an ordered list of chat messages, used to
	// thread conversation history between nodes.
	TypeMessageList DataType = "message_list"
)

// Valid reports whether t is one of the declared data types.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeJSON, TypeBinary, TypeMessageList:
		return true
	}
	return false
}

// DataValue is a tagged union holding exactly one instance of a DataType.
// The zero DataValue is invalid: Type returns the empty DataType and every
// accessor reports false. Values are immutable once constructed; nodes must
// build new values rather than mutate payloads they received.
type DataValue struct {
	kind  DataType
	value any
}

// StringValue wraps a string.
func StringValue(s string) DataValue { return DataValue{kind: TypeString, value: s} }

// IntValue wraps a 64-bit integer.
func IntValue(i int64) DataValue { return DataValue{kind: TypeInt, value: i} }

// FloatValue wraps a 64-bit float.
func FloatValue(f float64) DataValue { return DataValue{kind: TypeFloat, value: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) DataValue { return DataValue{kind: TypeBool, value: b} }

// JSONValue wraps arbitrary structured data. The payload should be
// JSON-marshalable; maps, slices, and primitives are all acceptable.
func JSONValue(v any) DataValue { return DataValue{kind: TypeJSON, value: v} }

// BinaryValue wraps a byte slice. The slice is copied so later mutation of
// the argument cannot leak into the value.
func BinaryValue(b []byte) DataValue {
	dup := make([]byte, len(b))
	copy(dup, b)
	return DataValue{kind: TypeBinary, value: dup}
}

// MessageListValue wraps an ordered list of messages. The slice is copied.
func MessageListValue(msgs []Message) DataValue {
	dup := make([]Message, len(msgs))
	copy(dup, msgs)
	return DataValue{kind: TypeMessageList, value: dup}
}

// Type returns the DataType tag of the value. It is total: the zero
// DataValue returns the empty DataType, which Valid reports as false.
func (v DataValue) Type() DataType { return v.kind }

// IsValid reports whether the value holds an instance of a declared type.
func (v DataValue) IsValid() bool { return v.kind.Valid() }

// AsString returns the string payload and true when the value is a string.
func (v DataValue) AsString() (string, bool) {
	s, ok := v.value.(string)
	return s, ok && v.kind == TypeString
}

// AsInt returns the integer payload and true when the value is an integer.
func (v DataValue) AsInt() (int64, bool) {
	i, ok := v.value.(int64)
	return i, ok && v.kind == TypeInt
}

// AsFloat returns the float payload and true when the value is a float.
func (v DataValue) AsFloat() (float64, bool) {
	f, ok := v.value.(float64)
	return f, ok && v.kind == TypeFloat
}

// AsBool returns the boolean payload and true when the value is a boolean.
func (v DataValue) AsBool() (bool, bool) {
	b, ok := v.value.(bool)
	return b, ok && v.kind == TypeBool
}

// AsJSON returns the structured payload and true when the value is json.
func (v DataValue) AsJSON() (any, bool) {
	if v.kind != TypeJSON {
		return nil, false
	}
	return v.value, true
}

// AsBinary returns a copy of the byte payload and true when the value is
// binary.
func (v DataValue) AsBinary() ([]byte, bool) {
	b, ok := v.value.([]byte)
	if !ok || v.kind != TypeBinary {
		return nil, false
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return dup, true
}

// AsMessageList returns a copy of the message payload and true when the
// value is a message list.
func (v DataValue) AsMessageList() ([]Message, bool) {
	msgs, ok := v.value.([]Message)
	if !ok || v.kind != TypeMessageList {
		return nil, false
	}
	dup := make([]Message, len(msgs))
	copy(dup, msgs)
	return dup, true
}

// Equal reports whether two values hold the same type tag and a deeply
// equal payload. Equality is total over all DataValues, including the
// zero value.
func (v DataValue) Equal(o DataValue) bool {
	if v.kind != o.kind {
		return false
	}
	return reflect.DeepEqual(v.value, o.value)
}

// MarshalJSON encodes the bare payload, matching the persisted form used
// by graph tooling; the type tag is recoverable from the owning port.
func (v DataValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.value)
}

// String renders the value for debugging and error messages.
func (v DataValue) String() string {
	return fmt.Sprintf("%s(%v)", v.kind, v.value)
}
