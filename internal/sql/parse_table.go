package sql

import (
	"fmt"
	"strconv"
	"strings"

	"goDB/internal/catalog"
)

// parseColumnType parses INT | FLOAT | VARCHAR(n) | DATE.
func (p *parser) parseColumnType() (catalog.ColumnType, error) {
	name, err := p.eatIdent()
	if err != nil {
		return catalog.ColumnType{}, err
	}
	switch strings.ToUpper(name) {
	case "INT", "INTEGER":
		return catalog.ColumnType{Kind: catalog.KindInt}, nil
	case "FLOAT", "DOUBLE", "REAL":
		return catalog.ColumnType{Kind: catalog.KindFloat}, nil
	case "DATE":
		return catalog.ColumnType{Kind: catalog.KindDate, Width: catalog.DateWidth}, nil
	case "VARCHAR", "STRING", "TEXT":
		width := 255
		if p.peekPunct("(") {
			p.next()
			t := p.cur()
			if t.kind != tokNumber {
				return catalog.ColumnType{}, fmt.Errorf("sql: expected a width after VARCHAR(")
			}
			p.next()
			n, err := strconv.Atoi(t.text)
			if err != nil {
				return catalog.ColumnType{}, fmt.Errorf("sql: invalid VARCHAR width %q", t.text)
			}
			width = n
			if err := p.eatPunct(")"); err != nil {
				return catalog.ColumnType{}, err
			}
		}
		return catalog.ColumnType{Kind: catalog.KindText, Width: width}, nil
	default:
		return catalog.ColumnType{}, fmt.Errorf("sql: unknown column type %q", name)
	}
}

func (p *parser) parseColumnList() ([]string, error) {
	if err := p.eatPunct("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		name, err := p.eatIdent()
		if err != nil {
			return nil, err
		}
		cols = append(cols, name)
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.eatPunct(")"); err != nil {
		return nil, err
	}
	return cols, nil
}

// parseCreateTable parses `CREATE TABLE name (col defs, constraints)`; the
// leading `CREATE TABLE` has already been consumed.
func (p *parser) parseCreateTable() (Statement, error) {
	name, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	if err := p.eatPunct("("); err != nil {
		return nil, err
	}

	stmt := &CreateTableStmt{TableName: name}
	for {
		if p.peekKeyword("CONSTRAINT") || p.peekKeyword("PRIMARY") || p.peekKeyword("FOREIGN") {
			c, err := p.parseTableConstraint()
			if err != nil {
				return nil, err
			}
			stmt.Constraints = append(stmt.Constraints, c)
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.eatPunct(")"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseColumnDef() (catalog.Column, error) {
	name, err := p.eatIdent()
	if err != nil {
		return catalog.Column{}, err
	}
	typ, err := p.parseColumnType()
	if err != nil {
		return catalog.Column{}, err
	}
	col := catalog.Column{Name: name, Type: typ, Nullable: true}
	for {
		switch {
		case p.tryKeyword("NOT"):
			if err := p.eatKeyword("NULL"); err != nil {
				return catalog.Column{}, err
			}
			col.Nullable = false
		case p.tryKeyword("NULL"):
			col.Nullable = true
		default:
			return col, nil
		}
	}
}

// parseTableConstraint parses `[CONSTRAINT name] PRIMARY KEY (cols)` or
// `[CONSTRAINT name] FOREIGN KEY (cols) REFERENCES table (cols)`.
func (p *parser) parseTableConstraint() (catalog.Constraint, error) {
	var name string
	if p.tryKeyword("CONSTRAINT") {
		n, err := p.eatIdent()
		if err != nil {
			return catalog.Constraint{}, err
		}
		name = n
	}
	switch {
	case p.tryKeyword("PRIMARY"):
		if err := p.eatKeyword("KEY"); err != nil {
			return catalog.Constraint{}, err
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return catalog.Constraint{}, err
		}
		return catalog.Constraint{Kind: catalog.ConstraintPrimaryKey, Name: name, Columns: cols}, nil
	case p.tryKeyword("FOREIGN"):
		if err := p.eatKeyword("KEY"); err != nil {
			return catalog.Constraint{}, err
		}
		cols, err := p.parseColumnList()
		if err != nil {
			return catalog.Constraint{}, err
		}
		if err := p.eatKeyword("REFERENCES"); err != nil {
			return catalog.Constraint{}, err
		}
		refTable, err := p.eatIdent()
		if err != nil {
			return catalog.Constraint{}, err
		}
		refCols, err := p.parseColumnList()
		if err != nil {
			return catalog.Constraint{}, err
		}
		return catalog.Constraint{
			Kind: catalog.ConstraintForeignKey, Name: name,
			Columns: cols, RefTable: refTable, RefColumns: refCols,
		}, nil
	default:
		return catalog.Constraint{}, fmt.Errorf("sql: expected PRIMARY KEY or FOREIGN KEY")
	}
}

// parseCreateIndex parses `CREATE INDEX name ON table (col)`; leading
// `CREATE INDEX` already consumed.
func (p *parser) parseCreateIndex() (Statement, error) {
	indexName, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	if err := p.eatKeyword("ON"); err != nil {
		return nil, err
	}
	tableName, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	cols, err := p.parseColumnList()
	if err != nil {
		return nil, err
	}
	if len(cols) != 1 {
		return nil, fmt.Errorf("sql: CREATE INDEX supports exactly one column")
	}
	return &AlterTableStmt{
		TableName: tableName,
		Action:    AlterAddIndex,
		IndexName: indexName,
		ColumnName: cols[0],
	}, nil
}

// parseAlterTable parses `ALTER TABLE name <action>`, consuming the
// leading `ALTER` itself.
func (p *parser) parseAlterTable() (Statement, error) {
	p.next() // ALTER
	if err := p.eatKeyword("TABLE"); err != nil {
		return nil, err
	}
	tableName, err := p.eatIdent()
	if err != nil {
		return nil, err
	}

	switch {
	case p.tryKeyword("ADD"):
		switch {
		case p.tryKeyword("COLUMN"):
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			return &AlterTableStmt{TableName: tableName, Action: AlterAddColumn, Column: col}, nil
		case p.tryKeyword("PRIMARY"):
			if err := p.eatKeyword("KEY"); err != nil {
				return nil, err
			}
			cols, err := p.parseColumnList()
			if err != nil {
				return nil, err
			}
			return &AlterTableStmt{
				TableName: tableName, Action: AlterAddPrimaryKey,
				Constraint: catalog.Constraint{Kind: catalog.ConstraintPrimaryKey, Columns: cols},
			}, nil
		case p.tryKeyword("FOREIGN"):
			if err := p.eatKeyword("KEY"); err != nil {
				return nil, err
			}
			cols, err := p.parseColumnList()
			if err != nil {
				return nil, err
			}
			if err := p.eatKeyword("REFERENCES"); err != nil {
				return nil, err
			}
			refTable, err := p.eatIdent()
			if err != nil {
				return nil, err
			}
			refCols, err := p.parseColumnList()
			if err != nil {
				return nil, err
			}
			return &AlterTableStmt{
				TableName: tableName, Action: AlterAddForeignKey,
				Constraint: catalog.Constraint{
					Kind: catalog.ConstraintForeignKey, Columns: cols,
					RefTable: refTable, RefColumns: refCols,
				},
			}, nil
		case p.tryKeyword("INDEX"):
			indexName, err := p.eatIdent()
			if err != nil {
				return nil, err
			}
			cols, err := p.parseColumnList()
			if err != nil {
				return nil, err
			}
			if len(cols) != 1 {
				return nil, fmt.Errorf("sql: ADD INDEX supports exactly one column")
			}
			return &AlterTableStmt{TableName: tableName, Action: AlterAddIndex, IndexName: indexName, ColumnName: cols[0]}, nil
		default:
			return nil, fmt.Errorf("sql: expected COLUMN, PRIMARY KEY, FOREIGN KEY, or INDEX after ADD")
		}
	case p.tryKeyword("DROP"):
		switch {
		case p.tryKeyword("COLUMN"):
			name, err := p.eatIdent()
			if err != nil {
				return nil, err
			}
			return &AlterTableStmt{TableName: tableName, Action: AlterDropColumn, ColumnName: name}, nil
		case p.tryKeyword("PRIMARY"):
			if err := p.eatKeyword("KEY"); err != nil {
				return nil, err
			}
			return &AlterTableStmt{TableName: tableName, Action: AlterDropPrimaryKey}, nil
		case p.tryKeyword("FOREIGN"):
			if err := p.eatKeyword("KEY"); err != nil {
				return nil, err
			}
			name, err := p.eatIdent()
			if err != nil {
				return nil, err
			}
			return &AlterTableStmt{TableName: tableName, Action: AlterDropForeignKey, IndexName: name}, nil
		case p.tryKeyword("INDEX"):
			name, err := p.eatIdent()
			if err != nil {
				return nil, err
			}
			return &AlterTableStmt{TableName: tableName, Action: AlterDropIndex, IndexName: name}, nil
		default:
			return nil, fmt.Errorf("sql: expected COLUMN, PRIMARY KEY, FOREIGN KEY, or INDEX after DROP")
		}
	default:
		return nil, fmt.Errorf("sql: expected ADD or DROP after ALTER TABLE %s", tableName)
	}
}
