package engine

import (
	"fmt"
	"strings"

	"goDB/internal/btree"
	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/heap"
	"goDB/internal/pagestore"
)

func notImplemented(format string, args ...any) *dberr.Error {
	return dberr.New(dberr.KindNotImplemented, format, args...)
}

// toPointer and toRowID convert between the heap's page/slot addressing
// and the index leaf's (table-page, table-slot) pointer shape — the same
// value, two callers' preferred field types.
func toPointer(rid heap.RowID) btree.RowPointer {
	return btree.RowPointer{Page: uint32(rid.Page), Slot: uint32(rid.Slot)}
}

func toRowID(p btree.RowPointer) heap.RowID {
	return heap.RowID{Page: pagestore.PageID(p.Page), Slot: int(p.Slot)}
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func typeName(t catalog.ColumnType) string {
	switch t.Kind {
	case catalog.KindInt:
		return "INT"
	case catalog.KindFloat:
		return "FLOAT"
	case catalog.KindText:
		return fmt.Sprintf("VARCHAR(%d)", t.Width)
	case catalog.KindDate:
		return "DATE"
	default:
		return "UNKNOWN"
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func columnTypes(schema *catalog.TableSchema, names []string) ([]catalog.ColumnType, error) {
	out := make([]catalog.ColumnType, len(names))
	for i, n := range names {
		idx, ok := schema.ColumnIndex(n)
		if !ok {
			return nil, dberr.New(dberr.KindColumnNotFound, "column %q not found", n)
		}
		out[i] = schema.Columns[idx].Type
	}
	return out, nil
}

func typesEqual(a, b catalog.ColumnType) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == catalog.KindText {
		return a.Width == b.Width
	}
	return true
}

func joinStrings(ss []string) string { return strings.Join(ss, ", ") }
