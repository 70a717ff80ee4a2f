// Package record implements the fixed-width row codec used by both table
// heap pages and B+-tree leaf keys (spec.md §3, §4.3).
package record

import (
	"encoding/binary"
	"math"

	"goDB/internal/catalog"
	"goDB/internal/dberr"
)

// Record is one decoded row. CompareKeyCount, when non-zero, restricts
// Compare to the leading CompareKeyCount values — this is how a B+-tree
// leaf's key record is compared against a full table record sharing the
// same prefix (spec.md §4.3 "compare-key count").
type Record struct {
	Values          []catalog.Value
	CompareKeyCount int
}

func New(values []catalog.Value) Record {
	return Record{Values: values, CompareKeyCount: len(values)}
}

// keyCount returns the number of leading fields Compare should consider.
func (r Record) keyCount() int {
	if r.CompareKeyCount <= 0 || r.CompareKeyCount > len(r.Values) {
		return len(r.Values)
	}
	return r.CompareKeyCount
}

// Compare orders two records lexicographically over their shared compare
// prefix (the shorter of the two CompareKeyCounts). The first field pair
// that is not Equal decides the result, so an Incomparable pair yields
// Incomparable only when every field before it compares Equal.
func Compare(a, b Record) catalog.Ordering {
	n := a.keyCount()
	if m := b.keyCount(); m < n {
		n = m
	}
	for i := 0; i < n; i++ {
		ord := catalog.Compare(a.Values[i], b.Values[i])
		if ord != catalog.Equal {
			return ord
		}
	}
	return catalog.Equal
}

// Select projects a record down to the named columns, in the order given.
func Select(r Record, schema *catalog.TableSchema, columns []string) (Record, error) {
	out := make([]catalog.Value, len(columns))
	for i, name := range columns {
		idx, ok := schema.ColumnIndex(name)
		if !ok {
			return Record{}, dberr.New(dberr.KindColumnNotFound, "column %q not found", name)
		}
		out[i] = r.Values[idx]
	}
	return New(out), nil
}

// Update returns a copy of r with the named columns replaced by newValues,
// type-checked against the schema.
func Update(r Record, schema *catalog.TableSchema, sets map[string]catalog.Value) (Record, error) {
	out := make([]catalog.Value, len(r.Values))
	copy(out, r.Values)
	for name, v := range sets {
		idx, ok := schema.ColumnIndex(name)
		if !ok {
			return Record{}, dberr.New(dberr.KindColumnNotFound, "column %q not found", name)
		}
		col := schema.Columns[idx]
		if v.IsNull() && !col.Nullable {
			return Record{}, dberr.New(dberr.KindNotNullable, "column %q is not nullable", name)
		}
		if err := catalog.CheckType(v, col.Type); err != nil {
			return Record{}, err
		}
		out[idx] = v
	}
	return New(out), nil
}

// Encode serializes a record as [null-bitmap][field1][field2]... per
// schema.RecordSize, matching the on-disk layout computed by
// TableSchema.Prepare.
func Encode(r Record, schema *catalog.TableSchema) ([]byte, error) {
	if len(r.Values) != len(schema.Columns) {
		return nil, dberr.New(dberr.KindFieldCountMismatch, "record has %d fields, schema has %d", len(r.Values), len(schema.Columns))
	}

	buf := make([]byte, schema.RecordSize)
	bitmap := buf[:schema.NullBitmapSize]
	off := schema.NullBitmapSize

	for i, col := range schema.Columns {
		v := r.Values[i]
		width := col.Type.FieldWidth()

		if v.IsNull() {
			if !col.Nullable {
				return nil, dberr.New(dberr.KindNotNullable, "column %q is not nullable", col.Name)
			}
			bitmap[i/8] |= 1 << uint(i%8)
			off += width
			continue
		}

		if err := catalog.CheckType(v, col.Type); err != nil {
			return nil, err
		}

		field := buf[off : off+width]
		switch col.Type.Kind {
		case catalog.KindInt:
			binary.LittleEndian.PutUint32(field, uint32(v.I32))
		case catalog.KindFloat:
			binary.LittleEndian.PutUint64(field, math.Float64bits(v.F64))
		case catalog.KindText, catalog.KindDate:
			copy(field, v.Str)
			// remaining bytes are already zero (NUL-padded)
		}
		off += width
	}
	return buf, nil
}

// Decode parses a record out of a schema.RecordSize-byte slot.
func Decode(buf []byte, schema *catalog.TableSchema) (Record, error) {
	if len(buf) != schema.RecordSize {
		return Record{}, dberr.New(dberr.KindFieldCountMismatch, "slot is %d bytes, schema expects %d", len(buf), schema.RecordSize)
	}

	bitmap := buf[:schema.NullBitmapSize]
	off := schema.NullBitmapSize
	values := make([]catalog.Value, len(schema.Columns))

	for i, col := range schema.Columns {
		width := col.Type.FieldWidth()
		isNull := bitmap[i/8]&(1<<uint(i%8)) != 0
		if isNull {
			values[i] = catalog.NullValue()
			off += width
			continue
		}

		field := buf[off : off+width]
		switch col.Type.Kind {
		case catalog.KindInt:
			values[i] = catalog.IntValue(int32(binary.LittleEndian.Uint32(field)))
		case catalog.KindFloat:
			values[i] = catalog.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(field)))
		case catalog.KindText:
			// the full NUL-padded slot is kept; trimming happens on
			// compare/display (catalog.Value.String/Compare), per spec.
			values[i] = catalog.TextValue(string(field))
		case catalog.KindDate:
			values[i] = catalog.DateValue(string(field))
		}
		off += width
	}
	return New(values), nil
}
