package record

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Type is the dynamic type of a field value.
type Type uint8

const (
	Null Type = iota
	Int
	Float
	Bool
	String
	List
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	case List:
		return "list"
	}
	return "null"
}

// Value is one field value of a candidate record.
type Value struct {
	typ  Type
	i    int64
	f    float64
	b    bool
	s    string
	list []any
}

func NullValue() Value             { return Value{} }
func IntValue(i int64) Value       { return Value{typ: Int, i: i} }
func FloatValue(f float64) Value   { return Value{typ: Float, f: f} }
func BoolValue(b bool) Value       { return Value{typ: Bool, b: b} }
func StringValue(s string) Value   { return Value{typ: String, s: s} }
func ListValue(items []any) Value  { return Value{typ: List, list: items} }
func (v Value) Type() Type         { return v.typ }
func (v Value) IsNull() bool       { return v.typ == Null }
func (v Value) IsNumber() bool     { return v.typ == Int || v.typ == Float }
func (v Value) Bool() (bool, bool) { return v.b, v.typ == Bool }

// Number returns the numeric value widened to float64.
func (v Value) Number() (float64, bool) {
	switch v.typ {
	case Int:
		return float64(v.i), true
	case Float:
		return v.f, true
	}
	return 0, false
}

// Text returns the string value, or "" for other types.
func (v Value) Text() string {
	if v.typ == String {
		return v.s
	}
	return ""
}

// Items returns the raw elements of a list value.
func (v Value) Items() []any { return v.list }

// MarshalJSON writes reals with a fractional part so they stay reals when
// read back.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case Int:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case Float:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	case Bool:
		return json.Marshal(v.b)
	case String:
		return json.Marshal(v.s)
	case List:
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

// numberValue converts a decoded JSON number, keeping integers integral.
func numberValue(n json.Number) Value {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return NullValue()
	}
	return FloatValue(f)
}
