// Package catalog holds the column/constraint/schema types persisted as
// the JSON sidecar for each table and index, and the typed Value the rest
// of the engine operates on.
package catalog

import "fmt"

// Kind is the logical type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindText:
		return "VARCHAR"
	case KindDate:
		return "DATE"
	default:
		return "UNKNOWN"
	}
}

// DateWidth is the fixed width of a canonical "YYYY-MM-DD" date payload.
const DateWidth = 10

// Value is a sum of {null, int32, float64, fixed-length text, date}.
type Value struct {
	Kind Kind
	I32  int32
	F64  float64
	Str  string // payload for Text and Date; a decoded value keeps its slot's NUL padding, which String and Compare trim
}

func NullValue() Value           { return Value{Kind: KindNull} }
func IntValue(v int32) Value     { return Value{Kind: KindInt, I32: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, F64: v} }
func TextValue(s string) Value   { return Value{Kind: KindText, Str: s} }
func DateValue(s string) Value   { return Value{Kind: KindDate, Str: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", v.I32)
	case KindFloat:
		return fmt.Sprintf("%g", v.F64)
	case KindText, KindDate:
		return trimNul(v.Str)
	default:
		return "?"
	}
}

// Ordering is the tri-state result of comparing two values.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
	Incomparable
)

// Compare implements the type-aware ordering from spec.md §3: null equals
// only null and is otherwise unordered; text and date compare by canonical
// text form with trailing NULs trimmed; heterogeneous int/float pairs are
// Incomparable rather than coerced.
func Compare(a, b Value) Ordering {
	if a.IsNull() || b.IsNull() {
		if a.IsNull() && b.IsNull() {
			return Equal
		}
		return Incomparable
	}

	textLike := func(k Kind) bool { return k == KindText || k == KindDate }

	switch {
	case a.Kind == KindInt && b.Kind == KindInt:
		return compareInts(a.I32, b.I32)
	case a.Kind == KindFloat && b.Kind == KindFloat:
		return compareFloats(a.F64, b.F64)
	case textLike(a.Kind) && textLike(b.Kind):
		return compareStrings(trimNul(a.Str), trimNul(b.Str))
	default:
		return Incomparable
	}
}

// ValuesEqual reports whether two values compare Equal (null==null, no
// coercion).
func ValuesEqual(a, b Value) bool { return Compare(a, b) == Equal }

func compareInts(a, b int32) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareFloats(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareStrings(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func trimNul(s string) string {
	for i, r := range s {
		if r == 0 {
			return s[:i]
		}
	}
	return s
}
