package engine

import (
	"fmt"

	"goDB/internal/catalog"
	"goDB/internal/sql"
)

func (e *Engine) createDatabase(s *sql.CreateDatabaseStmt) (Result, error) {
	if err := e.mgr.CreateDatabase(s.Name); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("database %q created", s.Name)}, nil
}

func (e *Engine) dropDatabase(s *sql.DropDatabaseStmt) (Result, error) {
	if err := e.mgr.DropDatabase(s.Name); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("database %q dropped", s.Name)}, nil
}

func (e *Engine) useDatabase(s *sql.UseDatabaseStmt) (Result, error) {
	if err := e.mgr.UseDatabase(s.Name); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("using %q", s.Name)}, nil
}

func (e *Engine) showDatabases() (Result, error) {
	names, err := e.mgr.ListDatabases()
	if err != nil {
		return Result{}, err
	}
	rows := make([][]catalog.Value, len(names))
	for i, n := range names {
		rows[i] = []catalog.Value{catalog.TextValue(n)}
	}
	return Result{Columns: []string{"database"}, Rows: rows}, nil
}

func (e *Engine) showTables() (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	names, err := db.ListTables()
	if err != nil {
		return Result{}, err
	}
	rows := make([][]catalog.Value, len(names))
	for i, n := range names {
		rows[i] = []catalog.Value{catalog.TextValue(n)}
	}
	return Result{Columns: []string{"table"}, Rows: rows}, nil
}

// desc reports each column's name, type, nullability, default, and the
// constraints that mention it — a pure catalog read, SPEC_FULL.md's
// supplemented DESC operation.
func (e *Engine) desc(s *sql.DescStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	ot, err := db.OpenTable(s.TableName)
	if err != nil {
		return Result{}, err
	}

	rows := make([][]catalog.Value, 0, len(ot.Schema.Columns))
	for _, c := range ot.Schema.Columns {
		def := "NULL"
		if c.Default != nil {
			def = c.Default.String()
		}
		nullable := "YES"
		if !c.Nullable {
			nullable = "NO"
		}
		rows = append(rows, []catalog.Value{
			catalog.TextValue(c.Name),
			catalog.TextValue(typeName(c.Type)),
			catalog.TextValue(nullable),
			catalog.TextValue(def),
			catalog.TextValue(constraintSummary(ot.Schema, c.Name)),
		})
	}
	return Result{Columns: []string{"column", "type", "nullable", "default", "constraints"}, Rows: rows}, nil
}

func constraintSummary(schema *catalog.TableSchema, column string) string {
	var parts []string
	for _, c := range schema.Constraints {
		if !containsString(c.Columns, column) {
			continue
		}
		switch c.Kind {
		case catalog.ConstraintPrimaryKey:
			parts = append(parts, "PRIMARY KEY")
		case catalog.ConstraintForeignKey:
			parts = append(parts, fmt.Sprintf("FOREIGN KEY -> %s(%s)", c.RefTable, joinStrings(c.RefColumns)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
