package sql

import (
	"goDB/internal/catalog"
)

// parseInsert parses `INSERT INTO name [(cols)] VALUES (...), (...)`;
// parseStatement only peeks, so this consumes the leading `INSERT` itself.
func (p *parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if err := p.eatKeyword("INTO"); err != nil {
		return nil, err
	}
	tableName, err := p.eatIdent()
	if err != nil {
		return nil, err
	}

	stmt := &InsertStmt{TableName: tableName}
	if p.peekPunct("(") {
		cols, err := p.parseColumnList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	if err := p.eatKeyword("VALUES"); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueTuple()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}
	return stmt, nil
}

func (p *parser) parseValueTuple() ([]catalog.Value, error) {
	if err := p.eatPunct("("); err != nil {
		return nil, err
	}
	var vals []catalog.Value
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.eatPunct(")"); err != nil {
		return nil, err
	}
	return vals, nil
}

// parseUpdate parses `UPDATE name SET col = expr, ... WHERE ...`, consuming
// the leading `UPDATE` itself.
func (p *parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	tableName, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	if err := p.eatKeyword("SET"); err != nil {
		return nil, err
	}

	stmt := &UpdateStmt{TableName: tableName}
	for {
		col, err := p.eatIdent()
		if err != nil {
			return nil, err
		}
		if err := p.eatPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: val})
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}

	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	stmt.Where = where
	return stmt, nil
}

// parseDelete parses `DELETE FROM name WHERE ...`, consuming the leading
// `DELETE` itself.
func (p *parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if err := p.eatKeyword("FROM"); err != nil {
		return nil, err
	}
	tableName, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	return &DeleteStmt{TableName: tableName, Where: where}, nil
}
