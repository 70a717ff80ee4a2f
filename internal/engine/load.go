package engine

import (
	"fmt"

	"goDB/internal/catalog"
	"goDB/internal/sql"
)

// TableSchema exposes a table's schema to collaborators outside the engine
// (the CLI's CSV loader needs it to convert cells to the right value kind).
func (e *Engine) TableSchema(tableName string) (*catalog.TableSchema, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return nil, err
	}
	ot, err := db.OpenTable(tableName)
	if err != nil {
		return nil, err
	}
	return ot.Schema, nil
}

// load handles a parsed LOAD statement. The REPL and batch driver pass
// LOAD to Execute like any other statement, and it always fails here: the
// engine reads no files (reading the CSV is the driver's job per spec.md
// §1's "out of scope" list). CSV loading runs only through the driver's
// --database/--table/--file flags, which read the file and call
// BulkInsert directly.
func (e *Engine) load(s *sql.LoadStmt) (Result, error) {
	return Result{}, notImplemented("LOAD %q INTO TABLE %q: the driver must read the file and call Engine.BulkInsert", s.File, s.TableName)
}

// BulkInsert is the row-vector entry point LOAD's CSV reader calls once
// per batch of parsed rows. The engine never parses CSV itself.
func (e *Engine) BulkInsert(tableName string, columns []string, rows [][]catalog.Value) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(tableName)
	if err != nil {
		return Result{}, err
	}

	n := 0
	for _, vals := range rows {
		r, err := buildRow(ot.Schema, columns, vals)
		if err != nil {
			return Result{}, err
		}
		if err := e.insertRow(ot, r); err != nil {
			return Result{}, err
		}
		n++
	}
	return Result{Message: fmt.Sprintf("%d row(s) loaded", n)}, nil
}
