package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/engine"
)

// loadCSV reads file's header row as the column list and every remaining
// row as a value tuple, converting each cell according to the target
// table's declared column types, then hands the batch to Engine.BulkInsert.
// The engine itself never touches a CSV file (internal/engine/load.go).
func loadCSV(eng *engine.Engine, table, file string) (int, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	types, err := columnTypesOf(eng, table, header)
	if err != nil {
		return 0, err
	}

	var rows [][]catalog.Value
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		if len(record) != len(header) {
			return 0, dberr.New(dberr.KindFieldCountMismatch, "row has %d fields, header has %d", len(record), len(header))
		}
		vals := make([]catalog.Value, len(record))
		for i, cell := range record {
			v, err := parseCell(cell, types[i])
			if err != nil {
				return 0, err
			}
			vals[i] = v
		}
		rows = append(rows, vals)
	}

	if _, err := eng.BulkInsert(table, header, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// columnTypesOf resolves each requested column's declared type by asking
// the engine to describe the table, so the CSV loader stays a thin
// collaborator rather than reaching into dbms internals directly.
func columnTypesOf(eng *engine.Engine, table string, columns []string) ([]catalog.ColumnType, error) {
	schema, err := eng.TableSchema(table)
	if err != nil {
		return nil, err
	}
	types := make([]catalog.ColumnType, len(columns))
	for i, name := range columns {
		idx, ok := schema.ColumnIndex(name)
		if !ok {
			return nil, dberr.New(dberr.KindColumnNotFound, "column %q not found on %q", name, table)
		}
		types[i] = schema.Columns[idx].Type
	}
	return types, nil
}

// parseCell converts a raw CSV cell into a catalog.Value of type t. An
// empty cell or the literal "NULL" (case-insensitive) becomes a null value.
func parseCell(cell string, t catalog.ColumnType) (catalog.Value, error) {
	if cell == "" || strings.EqualFold(cell, "NULL") {
		return catalog.NullValue(), nil
	}
	switch t.Kind {
	case catalog.KindInt:
		n, err := strconv.ParseInt(cell, 10, 32)
		if err != nil {
			return catalog.Value{}, dberr.New(dberr.KindParse, "invalid INT %q: %v", cell, err)
		}
		return catalog.IntValue(int32(n)), nil
	case catalog.KindFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return catalog.Value{}, dberr.New(dberr.KindParse, "invalid FLOAT %q: %v", cell, err)
		}
		return catalog.FloatValue(f), nil
	case catalog.KindDate:
		return catalog.DateValue(cell), nil
	default:
		return catalog.TextValue(cell), nil
	}
}
