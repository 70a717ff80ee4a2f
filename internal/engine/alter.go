package engine

import (
	"fmt"

	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/dbms"
	"goDB/internal/heap"
	"goDB/internal/record"
	"goDB/internal/sql"
)

func (e *Engine) alterTable(s *sql.AlterTableStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(s.TableName)
	if err != nil {
		return Result{}, err
	}

	switch s.Action {
	case sql.AlterAddColumn:
		return e.alterAddColumn(db, ot, s)
	case sql.AlterDropColumn:
		return e.alterDropColumn(db, ot, s)
	case sql.AlterAddIndex:
		return e.alterAddIndex(db, ot, s)
	case sql.AlterDropIndex:
		return e.alterDropIndex(db, ot, s)
	case sql.AlterAddPrimaryKey:
		return e.alterAddPrimaryKey(db, ot, s)
	case sql.AlterDropPrimaryKey:
		return e.alterDropPrimaryKey(db, ot, s)
	case sql.AlterAddForeignKey:
		return e.alterAddForeignKey(db, ot, s)
	case sql.AlterDropForeignKey:
		return e.alterDropForeignKey(db, ot, s)
	default:
		return Result{}, notImplemented("alter action %q", s.Action)
	}
}

// alterAddColumn and alterDropColumn both bulk-rewrite data.bin: the
// record size changes, so every row (and therefore every index pointer)
// has to move.
func (e *Engine) alterAddColumn(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	col := s.Column
	if _, ok := ot.Schema.ColumnIndex(col.Name); ok {
		return Result{}, dberr.New(dberr.KindDuplicateColumn, "column %q already exists on %q", col.Name, ot.Name)
	}
	if !col.Nullable && col.Default == nil {
		return Result{}, dberr.New(dberr.KindNotNullable, "ADD COLUMN %q needs a default to backfill existing rows, or must be nullable", col.Name)
	}
	fill := catalog.NullValue()
	if col.Default != nil {
		fill = *col.Default
	}

	newColumns := append(append([]catalog.Column{}, ot.Schema.Columns...), col)
	if err := e.rebuildTableData(db, ot, newColumns, ot.Schema.Constraints, func(old []catalog.Value) []catalog.Value {
		return append(append([]catalog.Value{}, old...), fill)
	}); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("column %q added to %q", col.Name, ot.Name)}, nil
}

func (e *Engine) alterDropColumn(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	colIdx, ok := ot.Schema.ColumnIndex(s.ColumnName)
	if !ok {
		return Result{}, dberr.New(dberr.KindColumnNotFound, "column %q not found on %q", s.ColumnName, ot.Name)
	}
	for _, c := range ot.Schema.Constraints {
		if containsString(c.Columns, s.ColumnName) {
			return Result{}, dberr.New(dberr.KindConstraintNotFound, "column %q is used by a constraint; drop the constraint first", s.ColumnName)
		}
	}
	for _, idx := range ot.Schema.Indexes {
		if containsString(idx.Columns, s.ColumnName) {
			return Result{}, dberr.New(dberr.KindConstraintNotFound, "column %q is used by index %q; drop the index first", s.ColumnName, idx.Name)
		}
	}

	newColumns := append(append([]catalog.Column{}, ot.Schema.Columns[:colIdx]...), ot.Schema.Columns[colIdx+1:]...)
	if err := e.rebuildTableData(db, ot, newColumns, ot.Schema.Constraints, func(old []catalog.Value) []catalog.Value {
		out := append([]catalog.Value{}, old[:colIdx]...)
		return append(out, old[colIdx+1:]...)
	}); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("column %q dropped from %q", s.ColumnName, ot.Name)}, nil
}

// rebuildTableData drops and recreates ot under the same name with
// newColumns, recreates every index it had, and reinserts every existing
// row through transform. Safe because the row's key-bearing columns are
// untouched by ADD/DROP COLUMN (callers reject dropping a column any
// constraint or index depends on).
func (e *Engine) rebuildTableData(db *dbms.Database, ot *dbms.OpenTable, newColumns []catalog.Column, constraints []catalog.Constraint, transform func([]catalog.Value) []catalog.Value) error {
	var oldRows [][]catalog.Value
	if err := ot.Heap.Scan(func(_ heap.RowID, r record.Record) error {
		oldRows = append(oldRows, append([]catalog.Value{}, r.Values...))
		return nil
	}); err != nil {
		return err
	}

	oldIndexes := append([]catalog.IndexSchema{}, ot.Schema.Indexes...)
	referred := append([]catalog.ReferredConstraint{}, ot.Schema.ReferredConstraints...)
	tableName := ot.Name

	if err := db.DropTable(tableName); err != nil {
		return err
	}

	newSchema := &catalog.TableSchema{Columns: newColumns, Constraints: constraints}
	if err := newSchema.Prepare(); err != nil {
		return err
	}
	newOt, err := db.CreateTable(tableName, newSchema)
	if err != nil {
		return err
	}

	for _, idx := range oldIndexes {
		if err := db.CreateIndex(newOt, idx.Name, idx.Columns, idx.Explicit); err != nil {
			return err
		}
	}
	newOt.Schema.ReferredConstraints = referred
	if err := db.PersistSchema(newOt); err != nil {
		return err
	}

	for _, old := range oldRows {
		r := record.New(transform(old))
		rid, err := newOt.Heap.Insert(r)
		if err != nil {
			return err
		}
		if err := e.insertIntoAllIndexes(newOt, r, rid); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) alterAddIndex(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	if err := db.CreateIndex(ot, s.IndexName, []string{s.ColumnName}, true); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("index %q created on %s(%s)", s.IndexName, ot.Name, s.ColumnName)}, nil
}

func (e *Engine) alterDropIndex(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	if err := db.DropIndex(ot, s.IndexName); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("index %q dropped from %s", s.IndexName, ot.Name)}, nil
}

// alterAddPrimaryKey bulk-inserts every existing row's key into the new
// index; a duplicate rolls back by dropping the just-created index
// before failing (spec.md §4.6 "add primary key").
func (e *Engine) alterAddPrimaryKey(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	if _, ok := ot.Schema.PrimaryKey(); ok {
		return Result{}, dberr.New(dberr.KindMultiplePrimaryKeys, "table %q already has a primary key", ot.Name)
	}
	pk := s.Constraint
	for _, name := range pk.Columns {
		idx, ok := ot.Schema.ColumnIndex(name)
		if !ok {
			return Result{}, dberr.New(dberr.KindColumnNotFound, "column %q not found", name)
		}
		ot.Schema.Columns[idx].Nullable = false
	}

	name := catalog.DerivePKIndexName(pk.Name, pk.Columns)
	if err := db.CreateIndex(ot, name, pk.Columns, false); err != nil {
		return Result{}, err
	}
	tree := ot.Indexes[name]

	var violation error
	err := ot.Heap.Scan(func(rid heap.RowID, r record.Record) error {
		if violation != nil {
			return nil
		}
		key, kerr := record.Select(r, ot.Schema, pk.Columns)
		if kerr != nil {
			return kerr
		}
		for _, v := range key.Values {
			if v.IsNull() {
				violation = dberr.New(dberr.KindNotNullable, "an existing row is null in the new primary key")
				return nil
			}
		}
		found, _, ferr := probeExact(tree, key)
		if ferr != nil {
			return ferr
		}
		if found {
			violation = dberr.New(dberr.KindDuplicateValue, "existing rows contain a duplicate value for the new primary key")
			return nil
		}
		return tree.Insert(key, toPointer(rid))
	})
	if err == nil {
		err = violation
	}
	if err != nil {
		_ = db.DropIndex(ot, name)
		return Result{}, err
	}

	ot.Schema.Constraints = append(ot.Schema.Constraints, pk)
	if err := db.PersistSchema(ot); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("primary key added to %q", ot.Name)}, nil
}

func (e *Engine) alterDropPrimaryKey(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	pk, ok := ot.Schema.PrimaryKey()
	if !ok {
		return Result{}, dberr.New(dberr.KindNoPrimaryKey, "table %q has no primary key", ot.Name)
	}
	if len(ot.Schema.ReferredConstraints) > 0 {
		return Result{}, dberr.New(dberr.KindTableReferencedByFK, "table %q's primary key is referenced by %q", ot.Name, ot.Schema.ReferredConstraints[0].ReferringTable)
	}

	name := catalog.DerivePKIndexName(pk.Name, pk.Columns)
	if err := db.DropIndex(ot, name); err != nil {
		return Result{}, err
	}

	kept := ot.Schema.Constraints[:0]
	for _, c := range ot.Schema.Constraints {
		if c.Kind == catalog.ConstraintPrimaryKey {
			continue
		}
		kept = append(kept, c)
	}
	ot.Schema.Constraints = kept
	if err := db.PersistSchema(ot); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("primary key dropped from %q", ot.Name)}, nil
}

// alterAddForeignKey builds both implicit indexes, verifies every
// existing referrer row against the reference index, and on any
// violation drops both indexes before failing (spec.md §4.6 "add foreign
// key").
func (e *Engine) alterAddForeignKey(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	fk := s.Constraint
	refOt, err := db.OpenTable(fk.RefTable)
	if err != nil {
		return Result{}, err
	}
	pk, ok := refOt.Schema.PrimaryKey()
	if !ok {
		return Result{}, dberr.New(dberr.KindNoPrimaryKey, "referenced table %q has no primary key", fk.RefTable)
	}
	if !sameColumns(pk.Columns, fk.RefColumns) {
		return Result{}, dberr.New(dberr.KindReferencedColumnsNotPK, "foreign key must reference the full primary key of %q", fk.RefTable)
	}
	fkTypes, err := columnTypes(ot.Schema, fk.Columns)
	if err != nil {
		return Result{}, err
	}
	refTypes, err := columnTypes(refOt.Schema, fk.RefColumns)
	if err != nil {
		return Result{}, err
	}
	for i := range fkTypes {
		if !typesEqual(fkTypes[i], refTypes[i]) {
			return Result{}, dberr.New(dberr.KindFKTypeMismatch, "foreign key column %q does not match type of %q.%q", fk.Columns[i], fk.RefTable, fk.RefColumns[i])
		}
	}

	referrerName := catalog.DeriveFKReferrerIndexName(ot.Name, fk.Columns)
	if err := db.CreateIndex(ot, referrerName, fk.Columns, false); err != nil {
		return Result{}, err
	}

	referredName := catalog.DeriveFKReferredIndexName(fk.RefTable, fk.RefColumns)
	createdReferred := false
	if _, ok := refOt.Schema.IndexByName(referredName); !ok {
		if err := db.CreateIndex(refOt, referredName, fk.RefColumns, false); err != nil {
			_ = db.DropIndex(ot, referrerName)
			return Result{}, err
		}
		createdReferred = true
	}
	refTree := refOt.Indexes[referredName]
	referrerTree := ot.Indexes[referrerName]

	var violation error
	if createdReferred {
		violation = refOt.Heap.Scan(func(rid heap.RowID, r record.Record) error {
			key, kerr := record.Select(r, refOt.Schema, fk.RefColumns)
			if kerr != nil {
				return kerr
			}
			return refTree.Insert(key, toPointer(rid))
		})
	}
	err = ot.Heap.Scan(func(rid heap.RowID, r record.Record) error {
		if violation != nil {
			return nil
		}
		key, kerr := record.Select(r, ot.Schema, fk.Columns)
		if kerr != nil {
			return kerr
		}
		if ierr := referrerTree.Insert(key, toPointer(rid)); ierr != nil {
			return ierr
		}
		allNull := true
		for _, v := range key.Values {
			if !v.IsNull() {
				allNull = false
			}
		}
		if allNull {
			return nil
		}
		found, _, ferr := probeExact(refTree, key)
		if ferr != nil {
			return ferr
		}
		if !found {
			violation = dberr.New(dberr.KindReferencedFieldsNotExist, "existing row violates new foreign key %s -> %s.%s", joinStrings(fk.Columns), fk.RefTable, joinStrings(fk.RefColumns))
		}
		return nil
	})
	if err == nil {
		err = violation
	}
	if err != nil {
		_ = db.DropIndex(ot, referrerName)
		if createdReferred {
			_ = db.DropIndex(refOt, referredName)
		}
		return Result{}, err
	}

	ot.Schema.Constraints = append(ot.Schema.Constraints, fk)
	if err := db.PersistSchema(ot); err != nil {
		return Result{}, err
	}
	refOt.Schema.ReferredConstraints = append(refOt.Schema.ReferredConstraints, catalog.ReferredConstraint{ReferringTable: ot.Name, Constraint: fk})
	if err := db.PersistSchema(refOt); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("foreign key added to %q", ot.Name)}, nil
}

func (e *Engine) alterDropForeignKey(db *dbms.Database, ot *dbms.OpenTable, s *sql.AlterTableStmt) (Result, error) {
	i := -1
	for j, c := range ot.Schema.Constraints {
		if c.Kind == catalog.ConstraintForeignKey && c.Name == s.IndexName {
			i = j
			break
		}
	}
	if i == -1 {
		return Result{}, dberr.New(dberr.KindConstraintNotFound, "foreign key %q not found on %q", s.IndexName, ot.Name)
	}
	fk := ot.Schema.Constraints[i]
	ot.Schema.Constraints = append(ot.Schema.Constraints[:i], ot.Schema.Constraints[i+1:]...)

	referrerName := catalog.DeriveFKReferrerIndexName(ot.Name, fk.Columns)
	if _, ok := ot.Schema.IndexByName(referrerName); ok {
		if err := db.DropIndex(ot, referrerName); err != nil {
			return Result{}, err
		}
	}
	if err := db.PersistSchema(ot); err != nil {
		return Result{}, err
	}

	if err := e.unwireForeignKeyBackLink(db, ot.Name, fk); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("foreign key %q dropped from %q", fk.Name, ot.Name)}, nil
}
