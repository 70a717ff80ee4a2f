package catalog

import "goDB/internal/dberr"

// ColumnType is a column's declared value type plus any type-specific width.
type ColumnType struct {
	Kind  Kind
	Width int // meaningful for Text only; Date is fixed at DateWidth
}

// FieldWidth returns the number of bytes a value of this type occupies in a
// serialized record.
func (t ColumnType) FieldWidth() int {
	switch t.Kind {
	case KindInt:
		return 4
	case KindFloat:
		return 8
	case KindText:
		return t.Width
	case KindDate:
		return DateWidth
	default:
		return 0
	}
}

// Column is a name, a value type, a nullable flag, and an optional default.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	Default  *Value // nil if no default
}

// ValidateDefault checks that a column's default value (if any) satisfies
// its declared type.
func (c Column) ValidateDefault() error {
	if c.Default == nil {
		return nil
	}
	return CheckType(*c.Default, c.Type)
}

// CheckType reports whether v satisfies the given column type (width
// included for Text and Date), returning a type-mismatch error otherwise.
// A DATE column also accepts a Text value, since quoted literals parse
// as Text; it is stored, and decoded, as a date.
func CheckType(v Value, t ColumnType) error {
	if v.IsNull() {
		return nil
	}
	switch t.Kind {
	case KindInt:
		if v.Kind != KindInt {
			return dberr.New(dberr.KindTypeMismatch, "expected INT, got %s", v.Kind)
		}
	case KindFloat:
		if v.Kind != KindFloat {
			return dberr.New(dberr.KindTypeMismatch, "expected FLOAT, got %s", v.Kind)
		}
	case KindText:
		if v.Kind != KindText {
			return dberr.New(dberr.KindTypeMismatch, "expected VARCHAR, got %s", v.Kind)
		}
		if len(v.Str) > t.Width {
			return dberr.New(dberr.KindTypeMismatch, "value %q exceeds column width %d", v.Str, t.Width)
		}
	case KindDate:
		if v.Kind != KindDate && v.Kind != KindText {
			return dberr.New(dberr.KindTypeMismatch, "expected DATE, got %s", v.Kind)
		}
		if len(v.Str) > DateWidth {
			return dberr.New(dberr.KindTypeMismatch, "date %q exceeds width %d", v.Str, DateWidth)
		}
	default:
		return dberr.New(dberr.KindTypeMismatch, "unknown column kind %v", t.Kind)
	}
	return nil
}
