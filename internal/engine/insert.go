package engine

import (
	"fmt"

	"goDB/internal/btree"
	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/dbms"
	"goDB/internal/heap"
	"goDB/internal/record"
	"goDB/internal/sql"
)

func (e *Engine) insert(s *sql.InsertStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(s.TableName)
	if err != nil {
		return Result{}, err
	}

	inserted := 0
	for _, vals := range s.Rows {
		r, err := buildRow(ot.Schema, s.Columns, vals)
		if err != nil {
			return Result{}, err
		}
		if err := e.insertRow(ot, r); err != nil {
			return Result{}, err
		}
		inserted++
	}
	return Result{Message: fmt.Sprintf("%d row(s) inserted", inserted)}, nil
}

// buildRow assembles a full, schema-ordered record from an INSERT's
// (possibly partial) column list and one row of values, filling any
// column left unspecified with its declared default or NULL.
func buildRow(schema *catalog.TableSchema, colNames []string, values []catalog.Value) (record.Record, error) {
	out := make([]catalog.Value, len(schema.Columns))
	for i, c := range schema.Columns {
		if c.Default != nil {
			out[i] = *c.Default
		} else {
			out[i] = catalog.NullValue()
		}
	}

	if len(colNames) == 0 {
		if len(values) != len(schema.Columns) {
			return record.Record{}, dberr.New(dberr.KindFieldCountMismatch, "expected %d values, got %d", len(schema.Columns), len(values))
		}
		copy(out, values)
		return record.New(out), nil
	}

	if len(colNames) != len(values) {
		return record.Record{}, dberr.New(dberr.KindFieldCountMismatch, "column list has %d names, row has %d values", len(colNames), len(values))
	}
	for i, n := range colNames {
		idx, ok := schema.ColumnIndex(n)
		if !ok {
			return record.Record{}, dberr.New(dberr.KindColumnNotFound, "column %q not found", n)
		}
		out[idx] = values[i]
	}
	return record.New(out), nil
}

// insertRow type-checks r, enforces PK uniqueness and outbound FK
// existence, writes it to the heap, and maintains every index on the
// table (spec.md §4.6 "Insert").
func (e *Engine) insertRow(ot *dbms.OpenTable, r record.Record) error {
	for i, c := range ot.Schema.Columns {
		v := r.Values[i]
		if v.IsNull() {
			if !c.Nullable {
				return dberr.New(dberr.KindNotNullable, "column %q is not nullable", c.Name)
			}
			continue
		}
		if err := catalog.CheckType(v, c.Type); err != nil {
			return err
		}
	}

	if pk, ok := ot.Schema.PrimaryKey(); ok {
		key, err := record.Select(r, ot.Schema, pk.Columns)
		if err != nil {
			return err
		}
		tree := ot.Indexes[catalog.DerivePKIndexName(pk.Name, pk.Columns)]
		found, _, err := probeExact(tree, key)
		if err != nil {
			return err
		}
		if found {
			return dberr.New(dberr.KindDuplicateValue, "duplicate value for primary key %s", joinStrings(pk.Columns))
		}
	}

	for _, fk := range ot.Schema.ForeignKeys() {
		if err := e.checkOutboundFK(ot, r, fk); err != nil {
			return err
		}
	}

	rid, err := ot.Heap.Insert(r)
	if err != nil {
		return err
	}
	return e.insertIntoAllIndexes(ot, r, rid)
}

// checkOutboundFK verifies fk's referenced row exists, skipping the check
// entirely when every referencing column is NULL.
func (e *Engine) checkOutboundFK(ot *dbms.OpenTable, r record.Record, fk catalog.Constraint) error {
	key, err := record.Select(r, ot.Schema, fk.Columns)
	if err != nil {
		return err
	}
	allNull := true
	for _, v := range key.Values {
		if !v.IsNull() {
			allNull = false
			break
		}
	}
	if allNull {
		return nil
	}

	db, err := e.mgr.Current()
	if err != nil {
		return err
	}
	refOt, err := db.OpenTable(fk.RefTable)
	if err != nil {
		return err
	}
	name := catalog.DeriveFKReferredIndexName(fk.RefTable, fk.RefColumns)
	tree, ok := refOt.Indexes[name]
	if !ok {
		return dberr.New(dberr.KindIndexNotFound, "missing implicit index %q on %q", name, fk.RefTable)
	}
	found, _, err := probeExact(tree, key)
	if err != nil {
		return err
	}
	if !found {
		return dberr.New(dberr.KindReferencedFieldsNotExist, "foreign key %s references a nonexistent %s.%s", joinStrings(fk.Columns), fk.RefTable, joinStrings(fk.RefColumns))
	}
	return nil
}

func (e *Engine) insertIntoAllIndexes(ot *dbms.OpenTable, r record.Record, rid heap.RowID) error {
	for i := range ot.Schema.Indexes {
		idx := &ot.Schema.Indexes[i]
		key, err := record.Select(r, ot.Schema, idx.Columns)
		if err != nil {
			return err
		}
		if err := ot.Indexes[idx.Name].Insert(key, toPointer(rid)); err != nil {
			return err
		}
	}
	return nil
}

// probeExact reports whether key has an exact match in tree, per spec.md
// §9 Open Question (b): find() may land past the matching run or on a
// greater key, so the result must be re-checked before trusting it.
func probeExact(tree *btree.Tree, key record.Record) (bool, btree.RowPointer, error) {
	it, err := tree.Find(key)
	if err != nil {
		return false, btree.RowPointer{}, err
	}
	if it.AtEnd() {
		return false, btree.RowPointer{}, nil
	}
	if record.Compare(it.Key(), key) != catalog.Equal {
		return false, btree.RowPointer{}, nil
	}
	return true, it.Pointer(), nil
}
