package sql

import (
	"fmt"
	"strings"
)

var aggFuncs = map[string]AggFunc{
	"AVG": AggAvg, "MIN": AggMin, "MAX": AggMax, "SUM": AggSum, "COUNT": AggCount,
}

// parseSelect parses `SELECT items FROM table [JOIN table ON pred]
// [WHERE ...] [GROUP BY cols]`; parseStatement only peeks, so this
// consumes the leading `SELECT` itself.
func (p *parser) parseSelect() (Statement, error) {
	p.next() // SELECT

	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	if err := p.eatKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.eatIdent()
	if err != nil {
		return nil, err
	}

	stmt := &SelectStmt{Items: items, From: from}

	hasJoin := p.peekKeyword("JOIN") || p.peekKeyword("INNER")
	if hasJoin {
		p.tryKeyword("INNER")
		if err := p.eatKeyword("JOIN"); err != nil {
			return nil, err
		}
		joinTable, err := p.eatIdent()
		if err != nil {
			return nil, err
		}
		if err := p.eatKeyword("ON"); err != nil {
			return nil, err
		}
		leftTable, leftCol, err := p.parseQualifiedColumn()
		if err != nil {
			return nil, err
		}
		op, err := p.parseOperator()
		if err != nil {
			return nil, err
		}
		if op != "=" {
			return nil, fmt.Errorf("sql: join condition must be an equality")
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		stmt.Join = &JoinClause{Table: joinTable, On: Predicate{Table: leftTable, Column: leftCol, Op: "=", Right: right}}
	}

	where, err := p.parseWhere()
	if err != nil {
		return nil, err
	}
	stmt.Where = where

	if p.tryKeyword("GROUP") {
		if err := p.eatKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			_, col, err := p.parseQualifiedColumn()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, col)
			if p.peekPunct(",") {
				p.next()
				continue
			}
			break
		}
	}

	return stmt, nil
}

func (p *parser) parseSelectItems() ([]SelectItem, error) {
	var items []SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.peekPunct(",") {
			p.next()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	if p.peekPunct("*") {
		p.next()
		return SelectItem{Column: "*"}, nil
	}

	t := p.cur()
	if t.kind == tokIdent {
		if fn, ok := aggFuncs[strings.ToUpper(t.text)]; ok && p.peekAhead(1).kind == tokPunct && p.peekAhead(1).text == "(" {
			p.next() // func name
			p.next() // (
			if fn == AggCount && p.peekPunct("*") {
				p.next()
				if err := p.eatPunct(")"); err != nil {
					return SelectItem{}, err
				}
				return SelectItem{Func: AggCount, Column: "*"}, nil
			}
			table, col, err := p.parseQualifiedColumn()
			if err != nil {
				return SelectItem{}, err
			}
			if err := p.eatPunct(")"); err != nil {
				return SelectItem{}, err
			}
			return SelectItem{Func: fn, Table: table, Column: col}, nil
		}
	}

	table, col, err := p.parseQualifiedColumn()
	if err != nil {
		return SelectItem{}, err
	}
	return SelectItem{Table: table, Column: col}, nil
}

func (p *parser) peekAhead(n int) token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}
