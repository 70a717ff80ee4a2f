// Package engine is the query executor: it resolves parsed statements
// against an open database's tables and indexes, enforcing constraints and
// driving scans, joins, and aggregation (spec.md §4.6).
package engine

import (
	"goDB/internal/catalog"
	"goDB/internal/dblog"
	"goDB/internal/dbms"
	"goDB/internal/sql"
)

// Engine ties a statement dispatcher to the currently-selected database.
// One Engine serves the whole process; database selection lives in the
// dbms.Manager it wraps.
type Engine struct {
	mgr *dbms.Manager
	log *dblog.Logger
}

// New builds an Engine over an already-constructed Manager.
func New(mgr *dbms.Manager, log *dblog.Logger) *Engine {
	if log == nil {
		log = dblog.Nop()
	}
	return &Engine{mgr: mgr, log: log.Component("engine")}
}

// Result is what every statement produces: a column set and rows for
// queries, or just a human-readable message for DDL/DML statements.
type Result struct {
	Columns []string
	Rows    [][]catalog.Value
	Message string
}

// Execute dispatches one parsed statement to its handler.
func (e *Engine) Execute(stmt sql.Statement) (Result, error) {
	switch s := stmt.(type) {
	case *sql.CreateDatabaseStmt:
		return e.createDatabase(s)
	case *sql.DropDatabaseStmt:
		return e.dropDatabase(s)
	case *sql.UseDatabaseStmt:
		return e.useDatabase(s)
	case *sql.ShowDatabasesStmt:
		return e.showDatabases()
	case *sql.ShowTablesStmt:
		return e.showTables()
	case *sql.DescStmt:
		return e.desc(s)
	case *sql.CreateTableStmt:
		return e.createTable(s)
	case *sql.DropTableStmt:
		return e.dropTable(s)
	case *sql.LoadStmt:
		return e.load(s)
	case *sql.InsertStmt:
		return e.insert(s)
	case *sql.UpdateStmt:
		return e.update(s)
	case *sql.DeleteStmt:
		return e.delete(s)
	case *sql.SelectStmt:
		return e.selectStmt(s)
	case *sql.AlterTableStmt:
		return e.alterTable(s)
	default:
		return Result{}, notImplemented("statement %T", stmt)
	}
}
