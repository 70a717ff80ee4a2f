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

// delete pre-materializes matching rows; if any of them is still
// referenced by an inbound foreign key it fails without deleting anything,
// otherwise it removes every matched row from the table and every one of
// its indexes (spec.md §4.6 "Delete").
func (e *Engine) delete(s *sql.DeleteStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(s.TableName)
	if err != nil {
		return Result{}, err
	}

	var rids []heap.RowID
	var rows []record.Record
	err = ot.Heap.Scan(func(rid heap.RowID, r record.Record) error {
		ok, err := matchWhere(rowFrom(s.TableName, ot.Schema, r.Values), s.Where)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		rids = append(rids, rid)
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(ot.Schema.ReferredConstraints) > 0 {
		for _, r := range rows {
			if err := e.checkNotReferenced(db, ot, r); err != nil {
				return Result{}, err
			}
		}
	}

	for i, rid := range rids {
		if err := ot.Heap.Delete(rid); err != nil {
			return Result{}, err
		}
		if err := e.deleteFromAllIndexes(ot, rows[i], rid); err != nil {
			return Result{}, err
		}
	}
	return Result{Message: fmt.Sprintf("%d row(s) deleted", len(rids))}, nil
}

func (e *Engine) checkNotReferenced(db *dbms.Database, ot *dbms.OpenTable, r record.Record) error {
	for _, rc := range ot.Schema.ReferredConstraints {
		key, err := record.Select(r, ot.Schema, rc.Constraint.RefColumns)
		if err != nil {
			return err
		}
		referrerOt, err := db.OpenTable(rc.ReferringTable)
		if err != nil {
			return err
		}
		name := catalog.DeriveFKReferrerIndexName(rc.ReferringTable, rc.Constraint.Columns)
		tree, ok := referrerOt.Indexes[name]
		if !ok {
			continue
		}
		found, _, err := probeExact(tree, key)
		if err != nil {
			return err
		}
		if found {
			return dberr.New(dberr.KindRowReferencedByFK, "row is referenced by %q via %s", rc.ReferringTable, joinStrings(rc.Constraint.Columns))
		}
	}
	return nil
}

func (e *Engine) deleteFromAllIndexes(ot *dbms.OpenTable, r record.Record, rid heap.RowID) error {
	ptr := toPointer(rid)
	for i := range ot.Schema.Indexes {
		idx := &ot.Schema.Indexes[i]
		key, err := record.Select(r, ot.Schema, idx.Columns)
		if err != nil {
			return err
		}
		if err := ot.Indexes[idx.Name].Remove(key, ptr); err != nil {
			return err
		}
	}
	return nil
}
