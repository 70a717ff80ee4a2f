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

// createTable builds the table's schema, validates its constraints,
// creates the table directory, and creates the implicit indexes a
// primary key and any foreign keys need (spec.md §4.6 "schema management").
func (e *Engine) createTable(s *sql.CreateTableStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}

	seen := map[string]bool{}
	for _, c := range s.Columns {
		if seen[c.Name] {
			return Result{}, dberr.New(dberr.KindDuplicateColumn, "duplicate column %q", c.Name)
		}
		seen[c.Name] = true
	}

	var pkCount int
	for _, c := range s.Constraints {
		if c.Kind == catalog.ConstraintPrimaryKey {
			pkCount++
		}
	}
	if pkCount > 1 {
		return Result{}, dberr.New(dberr.KindMultiplePrimaryKeys, "table %q declares more than one primary key", s.TableName)
	}

	columns := make([]catalog.Column, len(s.Columns))
	copy(columns, s.Columns)
	for _, c := range s.Constraints {
		if c.Kind != catalog.ConstraintPrimaryKey {
			continue
		}
		for _, name := range c.Columns {
			idx, ok := indexOfColumn(columns, name)
			if !ok {
				return Result{}, dberr.New(dberr.KindColumnNotFound, "primary key references unknown column %q", name)
			}
			columns[idx].Nullable = false
		}
	}

	for _, c := range s.Constraints {
		if c.Kind != catalog.ConstraintForeignKey {
			continue
		}
		if err := e.validateForeignKey(db, columns, c); err != nil {
			return Result{}, err
		}
	}

	schema := &catalog.TableSchema{Columns: columns, Constraints: s.Constraints}
	if err := schema.Prepare(); err != nil {
		return Result{}, err
	}

	ot, err := db.CreateTable(s.TableName, schema)
	if err != nil {
		return Result{}, err
	}

	if pk, ok := schema.PrimaryKey(); ok {
		name := catalog.DerivePKIndexName(pk.Name, pk.Columns)
		if err := db.CreateIndex(ot, name, pk.Columns, false); err != nil {
			return Result{}, err
		}
	}

	for _, c := range schema.ForeignKeys() {
		if err := e.wireForeignKeyIndexes(db, ot, s.TableName, c); err != nil {
			return Result{}, err
		}
	}

	return Result{Message: fmt.Sprintf("table %q created", s.TableName)}, nil
}

func indexOfColumn(cols []catalog.Column, name string) (int, bool) {
	for i, c := range cols {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// validateForeignKey checks that the referenced table's columns named by
// c.RefColumns are exactly its primary key, and that c's own columns
// (on the table being created) type-match them.
func (e *Engine) validateForeignKey(db *dbms.Database, columns []catalog.Column, c catalog.Constraint) error {
	refOt, err := db.OpenTable(c.RefTable)
	if err != nil {
		return err
	}
	pk, ok := refOt.Schema.PrimaryKey()
	if !ok {
		return dberr.New(dberr.KindNoPrimaryKey, "referenced table %q has no primary key", c.RefTable)
	}
	if !sameColumns(pk.Columns, c.RefColumns) {
		return dberr.New(dberr.KindFKNotPrimaryKey, "foreign key must reference the full primary key of %q", c.RefTable)
	}

	fkTypes, err := columnTypes(&catalog.TableSchema{Columns: columns}, c.Columns)
	if err != nil {
		return err
	}
	refTypes, err := columnTypes(refOt.Schema, c.RefColumns)
	if err != nil {
		return err
	}
	for i := range fkTypes {
		if !typesEqual(fkTypes[i], refTypes[i]) {
			return dberr.New(dberr.KindFKTypeMismatch, "foreign key column %q does not match type of %q.%q", c.Columns[i], c.RefTable, c.RefColumns[i])
		}
	}
	return nil
}

// wireForeignKeyIndexes creates the referrer-side implicit index on this
// table, the referred-side implicit index on the target table (if one
// doesn't already exist, filled from the target's existing rows), and
// pushes the back-link.
func (e *Engine) wireForeignKeyIndexes(db *dbms.Database, ot *dbms.OpenTable, tableName string, c catalog.Constraint) error {
	referrerName := catalog.DeriveFKReferrerIndexName(tableName, c.Columns)
	if err := db.CreateIndex(ot, referrerName, c.Columns, false); err != nil {
		return err
	}

	refOt, err := db.OpenTable(c.RefTable)
	if err != nil {
		return err
	}
	referredName := catalog.DeriveFKReferredIndexName(c.RefTable, c.RefColumns)
	if _, ok := refOt.Schema.IndexByName(referredName); !ok {
		if err := db.CreateIndex(refOt, referredName, c.RefColumns, false); err != nil {
			return err
		}
		refTree := refOt.Indexes[referredName]
		if err := refOt.Heap.Scan(func(rid heap.RowID, r record.Record) error {
			key, err := record.Select(r, refOt.Schema, c.RefColumns)
			if err != nil {
				return err
			}
			return refTree.Insert(key, toPointer(rid))
		}); err != nil {
			return err
		}
	}

	refOt.Schema.ReferredConstraints = append(refOt.Schema.ReferredConstraints, catalog.ReferredConstraint{
		ReferringTable: tableName,
		Constraint:     c,
	})
	return db.PersistSchema(refOt)
}

// dropTable rejects dropping a table other tables still foreign-key into,
// otherwise removes this table's back-links from its own FK targets and
// deletes the table directory (which takes its data, indexes, and
// sidecars with it).
func (e *Engine) dropTable(s *sql.DropTableStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(s.TableName)
	if err != nil {
		return Result{}, err
	}
	if len(ot.Schema.ReferredConstraints) > 0 {
		return Result{}, dberr.New(dberr.KindTableReferencedByFK, "table %q is referenced by a foreign key in %q", s.TableName, ot.Schema.ReferredConstraints[0].ReferringTable)
	}

	for _, c := range ot.Schema.ForeignKeys() {
		if err := e.unwireForeignKeyBackLink(db, s.TableName, c); err != nil {
			return Result{}, err
		}
	}

	if err := db.DropTable(s.TableName); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("table %q dropped", s.TableName)}, nil
}

// unwireForeignKeyBackLink removes tableName's back-link from c.RefTable,
// and drops the referred-side implicit index if no other referrer still
// uses it.
func (e *Engine) unwireForeignKeyBackLink(db *dbms.Database, tableName string, c catalog.Constraint) error {
	refOt, err := db.OpenTable(c.RefTable)
	if err != nil {
		return err
	}

	kept := refOt.Schema.ReferredConstraints[:0]
	for _, rc := range refOt.Schema.ReferredConstraints {
		if rc.ReferringTable == tableName && sameColumns(rc.Constraint.Columns, c.Columns) {
			continue
		}
		kept = append(kept, rc)
	}
	refOt.Schema.ReferredConstraints = kept

	stillUsed := false
	for _, rc := range refOt.Schema.ReferredConstraints {
		if sameColumns(rc.Constraint.RefColumns, c.RefColumns) {
			stillUsed = true
			break
		}
	}
	if !stillUsed {
		name := catalog.DeriveFKReferredIndexName(c.RefTable, c.RefColumns)
		if _, ok := refOt.Schema.IndexByName(name); ok {
			if err := db.DropIndex(refOt, name); err != nil {
				return err
			}
			return nil
		}
	}
	return db.PersistSchema(refOt)
}
