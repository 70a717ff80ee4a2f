// Package sql parses the textual statement surface described in spec.md §6
// into an AST the executor can drive directly — no intermediate logical
// plan, matching the teacher's parse-straight-to-statement style.
package sql

import "goDB/internal/catalog"

// Statement is the common interface implemented by every parsed statement.
type Statement interface {
	stmtNode()
}

// CreateDatabaseStmt is `CREATE DATABASE name`.
type CreateDatabaseStmt struct{ Name string }

// DropDatabaseStmt is `DROP DATABASE name`.
type DropDatabaseStmt struct{ Name string }

// UseDatabaseStmt is `USE name`.
type UseDatabaseStmt struct{ Name string }

// ShowDatabasesStmt is `SHOW DATABASES`.
type ShowDatabasesStmt struct{}

// ShowTablesStmt is `SHOW TABLES`.
type ShowTablesStmt struct{}

// DescStmt is `DESC name` / `DESCRIBE name`.
type DescStmt struct{ TableName string }

// CreateTableStmt is `CREATE TABLE name (col defs, constraints)`.
type CreateTableStmt struct {
	TableName   string
	Columns     []catalog.Column
	Constraints []catalog.Constraint
}

// DropTableStmt is `DROP TABLE name`.
type DropTableStmt struct{ TableName string }

// LoadStmt is `LOAD 'file' INTO TABLE name`.
type LoadStmt struct {
	File      string
	TableName string
}

// InsertStmt is `INSERT INTO name [(cols)] VALUES (...), (...)`.
type InsertStmt struct {
	TableName string
	Columns   []string // empty means "all columns, in schema order"
	Rows      [][]catalog.Value
}

// Assignment is one `column = expr` pair in a SET or VALUES clause.
type Assignment struct {
	Column string
	Value  catalog.Value
}

// UpdateStmt is `UPDATE name SET a = 1, b = 2 WHERE ...`.
type UpdateStmt struct {
	TableName   string
	Assignments []Assignment
	Where       []Predicate
}

// DeleteStmt is `DELETE FROM name WHERE ...`.
type DeleteStmt struct {
	TableName string
	Where     []Predicate
}

// Operand is either a literal value or a qualified column reference; a
// Predicate's Right side is one of these.
type Operand struct {
	IsColumn bool
	Table    string // optional qualifier, e.g. "t" in "t.id"
	Column   string
	Literal  catalog.Value
}

// Predicate is one `left OP right` condition. The executor treats a
// WHERE clause as a flat conjunction of these (spec.md §4.6 "conjunctive
// where"); there is no OR.
type Predicate struct {
	Table string // optional qualifier on the left side
	Column string
	Op     string // "=", "<>", "<", "<=", ">", ">=", "LIKE"
	Right  Operand
}

// AggFunc names one of the supported aggregate functions.
type AggFunc string

const (
	AggNone  AggFunc = ""
	AggAvg   AggFunc = "AVG"
	AggMin   AggFunc = "MIN"
	AggMax   AggFunc = "MAX"
	AggSum   AggFunc = "SUM"
	AggCount AggFunc = "COUNT"
)

// SelectItem is one projected expression: either a bare/qualified column
// (Func == AggNone) or an aggregate over one column (or `*` for COUNT(*)).
type SelectItem struct {
	Table  string
	Column string // "*" for COUNT(*)
	Func   AggFunc
	Alias  string
}

// JoinClause is the second table of a two-table join plus its equality
// condition (spec.md §4.6 only supports exactly one join predicate).
type JoinClause struct {
	Table string
	On    Predicate
}

// SelectStmt is `SELECT items FROM table [JOIN table ON ...] [WHERE ...]
// [GROUP BY cols]`.
type SelectStmt struct {
	Items   []SelectItem
	From    string
	Join    *JoinClause
	Where   []Predicate
	GroupBy []string
}

// AlterKind tags the AlterTableStmt variant.
type AlterKind string

const (
	AlterAddColumn     AlterKind = "add_column"
	AlterDropColumn    AlterKind = "drop_column"
	AlterAddPrimaryKey AlterKind = "add_primary_key"
	AlterDropPrimaryKey AlterKind = "drop_primary_key"
	AlterAddForeignKey AlterKind = "add_foreign_key"
	AlterDropForeignKey AlterKind = "drop_foreign_key"
	AlterAddIndex      AlterKind = "add_index"
	AlterDropIndex     AlterKind = "drop_index"
)

// AlterTableStmt is `ALTER TABLE name <action>`; exactly the fields
// relevant to Action are populated.
type AlterTableStmt struct {
	TableName string
	Action    AlterKind

	Column catalog.Column // AddColumn

	ColumnName string // DropColumn, AddIndex single-column

	Constraint catalog.Constraint // AddPrimaryKey, AddForeignKey

	IndexName string // AddIndex, DropIndex, DropForeignKey (the constraint's name)
}

func (*CreateDatabaseStmt) stmtNode() {}
func (*DropDatabaseStmt) stmtNode()   {}
func (*UseDatabaseStmt) stmtNode()    {}
func (*ShowDatabasesStmt) stmtNode()  {}
func (*ShowTablesStmt) stmtNode()     {}
func (*DescStmt) stmtNode()           {}
func (*CreateTableStmt) stmtNode()    {}
func (*DropTableStmt) stmtNode()      {}
func (*LoadStmt) stmtNode()           {}
func (*InsertStmt) stmtNode()         {}
func (*UpdateStmt) stmtNode()         {}
func (*DeleteStmt) stmtNode()         {}
func (*SelectStmt) stmtNode()         {}
func (*AlterTableStmt) stmtNode()     {}
