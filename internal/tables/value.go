package tables

import (
	"regexp"
	"strconv"
	"strings"
)

// Value is a parsed numeric cell: an integer, a real number, or null.
type Value struct {
	kind valueKind
	i    int64
	f    float64
}

type valueKind uint8

const (
	kindNull valueKind = iota
	kindInt
	kindFloat
)

// Null is the absent value.
var Null = Value{}

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{kind: kindInt, i: i} }

// FloatValue wraps a real number.
func FloatValue(f float64) Value { return Value{kind: kindFloat, f: f} }

// IsNull reports whether the cell held no number.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsInt reports whether the cell parsed as an integer.
func (v Value) IsInt() bool { return v.kind == kindInt }

// IsFloat reports whether the cell parsed as a real number.
func (v Value) IsFloat() bool { return v.kind == kindFloat }

// Int returns the integer value; ok is false for null or real values.
func (v Value) Int() (int64, bool) { return v.i, v.kind == kindInt }

// Float returns the numeric value as float64; ok is false for null.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindInt:
		return float64(v.i), true
	case kindFloat:
		return v.f, true
	}
	return 0, false
}

// String renders the value the way it is written to JSON.
func (v Value) String() string {
	switch v.kind {
	case kindInt:
		return strconv.FormatInt(v.i, 10)
	case kindFloat:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	}
	return "null"
}

// MarshalJSON keeps integers and reals distinct on the wire.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

var (
	numberTokenRe   = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
)

// nullCells are the literal placeholders tables use for "no value".
var nullCells = map[string]struct{}{"": {}, "-": {}, "–": {}, "—": {}}

// ParseValue extracts the first signed integer or decimal token from a cell.
// A parenthetical suffix such as the standard deviation in "170 (5)" is
// discarded. Cells without a numeric token are null, never an error.
func ParseValue(cell string) Value {
	s := strings.TrimSpace(cell)
	if _, ok := nullCells[s]; ok {
		return Null
	}
	s = strings.ReplaceAll(s, "−", "-") // U+2212 MINUS SIGN
	s = parentheticalRe.ReplaceAllString(s, " ")
	tok := numberTokenRe.FindString(s)
	if tok == "" {
		return Null
	}
	if strings.Contains(tok, ".") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Null
		}
		return FloatValue(f)
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return Null
	}
	return IntValue(i)
}
