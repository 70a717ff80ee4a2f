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

type matchedRow struct {
	rid heap.RowID
	old record.Record
	new record.Record
}

// update applies a SET clause to every row matching WHERE, enforcing PK
// uniqueness, outbound FK existence, and inbound FK safety per spec.md
// §4.6 "Update".
func (e *Engine) update(s *sql.UpdateStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(s.TableName)
	if err != nil {
		return Result{}, err
	}

	sets := make(map[string]catalog.Value, len(s.Assignments))
	var setCols []string
	for _, a := range s.Assignments {
		sets[a.Column] = a.Value
		setCols = append(setCols, a.Column)
	}

	var matches []matchedRow
	err = ot.Heap.Scan(func(rid heap.RowID, r record.Record) error {
		ok, err := matchWhere(rowFrom(s.TableName, ot.Schema, r.Values), s.Where)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		updated, err := record.Update(r, ot.Schema, sets)
		if err != nil {
			return err
		}
		matches = append(matches, matchedRow{rid: rid, old: r, new: updated})
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	pk, hasPK := ot.Schema.PrimaryKey()
	pkAffected := hasPK && anyColumnIn(setCols, pk.Columns)
	fks := ot.Schema.ForeignKeys()

	for _, m := range matches {
		if pkAffected {
			if err := e.checkPKNotDuplicated(ot, pk, m); err != nil {
				return Result{}, err
			}
		}
		for _, fk := range fks {
			if !anyColumnIn(setCols, fk.Columns) {
				continue
			}
			if err := e.checkOutboundFK(ot, m.new, fk); err != nil {
				return Result{}, err
			}
		}
		if err := e.checkInboundFKOnKeyChange(db, ot, m); err != nil {
			return Result{}, err
		}
	}

	for _, m := range matches {
		if err := ot.Heap.Update(m.rid, m.new); err != nil {
			return Result{}, err
		}
		if err := e.reindexRow(ot, m.old, m.new, m.rid); err != nil {
			return Result{}, err
		}
	}

	return Result{Message: fmt.Sprintf("%d row(s) updated", len(matches))}, nil
}

func anyColumnIn(set, cols []string) bool {
	for _, c := range cols {
		if containsString(set, c) {
			return true
		}
	}
	return false
}

// checkPKNotDuplicated implements spec.md §9 Open Question (a): a
// self-rewrite to the row's own current key must skip the probe, since
// probing the index with the new key before removing the old would
// otherwise see its own unchanged entry as a collision.
func (e *Engine) checkPKNotDuplicated(ot *dbms.OpenTable, pk catalog.Constraint, m matchedRow) error {
	oldKey, err := record.Select(m.old, ot.Schema, pk.Columns)
	if err != nil {
		return err
	}
	newKey, err := record.Select(m.new, ot.Schema, pk.Columns)
	if err != nil {
		return err
	}
	if record.Compare(oldKey, newKey) == catalog.Equal {
		return nil
	}
	tree := ot.Indexes[catalog.DerivePKIndexName(pk.Name, pk.Columns)]
	found, _, err := probeExact(tree, newKey)
	if err != nil {
		return err
	}
	if found {
		return dberr.New(dberr.KindDuplicateValue, "duplicate value for primary key %s", joinStrings(pk.Columns))
	}
	return nil
}

// checkInboundFKOnKeyChange rejects an update that would move a
// referenced key out from under rows that still reference it.
func (e *Engine) checkInboundFKOnKeyChange(db *dbms.Database, ot *dbms.OpenTable, m matchedRow) error {
	for _, rc := range ot.Schema.ReferredConstraints {
		oldKey, err := record.Select(m.old, ot.Schema, rc.Constraint.RefColumns)
		if err != nil {
			return err
		}
		newKey, err := record.Select(m.new, ot.Schema, rc.Constraint.RefColumns)
		if err != nil {
			return err
		}
		if record.Compare(oldKey, newKey) == catalog.Equal {
			continue
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
		found, _, err := probeExact(tree, oldKey)
		if err != nil {
			return err
		}
		if found {
			return dberr.New(dberr.KindRowReferencedByFK, "row is referenced by %q via %s", rc.ReferringTable, joinStrings(rc.Constraint.Columns))
		}
	}
	return nil
}

// reindexRow removes every index's entry for the row's old key and
// inserts its entry for the new key.
func (e *Engine) reindexRow(ot *dbms.OpenTable, old, new record.Record, rid heap.RowID) error {
	ptr := toPointer(rid)
	for i := range ot.Schema.Indexes {
		idx := &ot.Schema.Indexes[i]
		oldKey, err := record.Select(old, ot.Schema, idx.Columns)
		if err != nil {
			return err
		}
		newKey, err := record.Select(new, ot.Schema, idx.Columns)
		if err != nil {
			return err
		}
		tree := ot.Indexes[idx.Name]
		if err := tree.Remove(oldKey, ptr); err != nil {
			return err
		}
		if err := tree.Insert(newKey, ptr); err != nil {
			return err
		}
	}
	return nil
}
