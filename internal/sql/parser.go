package sql

import (
	"fmt"
	"strconv"
	"strings"

	"goDB/internal/catalog"
)

// parser walks a token stream with one token of lookahead.
type parser struct {
	toks []token
	pos  int
}

// Parse parses a single statement (trailing ';' optional).
func Parse(query string) (Statement, error) {
	toks, err := tokenize(query)
	if err != nil {
		return nil, fmt.Errorf("sql: %w", err)
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.peekPunct(";") {
		p.next()
	}
	if !p.atEOF() {
		return nil, fmt.Errorf("sql: unexpected trailing input near %q", p.cur().text)
	}
	return stmt, nil
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) peekKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) peekPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) eatKeyword(kw string) error {
	if !p.peekKeyword(kw) {
		return fmt.Errorf("sql: expected %q, got %q", kw, p.cur().text)
	}
	p.next()
	return nil
}

func (p *parser) tryKeyword(kw string) bool {
	if p.peekKeyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) eatPunct(s string) error {
	if !p.peekPunct(s) {
		return fmt.Errorf("sql: expected %q, got %q", s, p.cur().text)
	}
	p.next()
	return nil
}

func (p *parser) eatIdent() (string, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return "", fmt.Errorf("sql: expected identifier, got %q", t.text)
	}
	p.next()
	return t.text, nil
}

func (p *parser) parseStatement() (Statement, error) {
	switch {
	case p.peekKeyword("CREATE"):
		return p.parseCreate()
	case p.peekKeyword("DROP"):
		return p.parseDrop()
	case p.peekKeyword("USE"):
		return p.parseUse()
	case p.peekKeyword("SHOW"):
		return p.parseShow()
	case p.peekKeyword("DESC") || p.peekKeyword("DESCRIBE"):
		return p.parseDesc()
	case p.peekKeyword("LOAD"):
		return p.parseLoad()
	case p.peekKeyword("INSERT"):
		return p.parseInsert()
	case p.peekKeyword("SELECT"):
		return p.parseSelect()
	case p.peekKeyword("UPDATE"):
		return p.parseUpdate()
	case p.peekKeyword("DELETE"):
		return p.parseDelete()
	case p.peekKeyword("ALTER"):
		return p.parseAlterTable()
	default:
		return nil, fmt.Errorf("sql: unrecognized statement near %q", p.cur().text)
	}
}

func (p *parser) parseCreate() (Statement, error) {
	p.next() // CREATE
	switch {
	case p.tryKeyword("DATABASE"):
		name, err := p.eatIdent()
		if err != nil {
			return nil, err
		}
		return &CreateDatabaseStmt{Name: name}, nil
	case p.tryKeyword("TABLE"):
		return p.parseCreateTable()
	case p.tryKeyword("INDEX"):
		return p.parseCreateIndex()
	default:
		return nil, fmt.Errorf("sql: expected DATABASE, TABLE, or INDEX after CREATE")
	}
}

func (p *parser) parseDrop() (Statement, error) {
	p.next() // DROP
	switch {
	case p.tryKeyword("DATABASE"):
		name, err := p.eatIdent()
		if err != nil {
			return nil, err
		}
		return &DropDatabaseStmt{Name: name}, nil
	case p.tryKeyword("TABLE"):
		name, err := p.eatIdent()
		if err != nil {
			return nil, err
		}
		return &DropTableStmt{TableName: name}, nil
	default:
		return nil, fmt.Errorf("sql: expected DATABASE or TABLE after DROP")
	}
}

func (p *parser) parseUse() (Statement, error) {
	p.next() // USE
	name, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	return &UseDatabaseStmt{Name: name}, nil
}

func (p *parser) parseShow() (Statement, error) {
	p.next() // SHOW
	switch {
	case p.tryKeyword("DATABASES"):
		return &ShowDatabasesStmt{}, nil
	case p.tryKeyword("TABLES"):
		return &ShowTablesStmt{}, nil
	default:
		return nil, fmt.Errorf("sql: expected DATABASES or TABLES after SHOW")
	}
}

func (p *parser) parseDesc() (Statement, error) {
	p.next() // DESC/DESCRIBE
	name, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	return &DescStmt{TableName: name}, nil
}

func (p *parser) parseLoad() (Statement, error) {
	p.next() // LOAD
	t := p.cur()
	if t.kind != tokString {
		return nil, fmt.Errorf("sql: expected quoted file path after LOAD")
	}
	p.next()
	if err := p.eatKeyword("INTO"); err != nil {
		return nil, err
	}
	if err := p.eatKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.eatIdent()
	if err != nil {
		return nil, err
	}
	return &LoadStmt{File: t.text, TableName: name}, nil
}

// parseLiteral parses one literal token into a catalog.Value. Strings
// become Text (a DATE column accepts a Text value; see catalog.CheckType);
// numbers with a '.' become Float, otherwise Int.
func (p *parser) parseLiteral() (catalog.Value, error) {
	t := p.cur()
	switch {
	case t.kind == tokString:
		p.next()
		return catalog.TextValue(t.text), nil
	case t.kind == tokNumber:
		p.next()
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return catalog.Value{}, fmt.Errorf("sql: invalid number %q: %w", t.text, err)
			}
			return catalog.FloatValue(f), nil
		}
		n, err := strconv.ParseInt(t.text, 10, 32)
		if err != nil {
			return catalog.Value{}, fmt.Errorf("sql: invalid integer %q: %w", t.text, err)
		}
		return catalog.IntValue(int32(n)), nil
	case t.kind == tokIdent && (strings.EqualFold(t.text, "NULL") || strings.EqualFold(t.text, "DEFAULT")):
		p.next()
		return catalog.NullValue(), nil
	default:
		return catalog.Value{}, fmt.Errorf("sql: expected a literal, got %q", t.text)
	}
}

// parseQualifiedColumn parses `name` or `table.name`.
func (p *parser) parseQualifiedColumn() (table, column string, err error) {
	first, err := p.eatIdent()
	if err != nil {
		return "", "", err
	}
	if p.peekPunct(".") {
		p.next()
		second, err := p.eatIdent()
		if err != nil {
			return "", "", err
		}
		return first, second, nil
	}
	return "", first, nil
}

var compareOps = []string{"<>", "<=", ">=", "=", "<", ">"}

func (p *parser) parseOperator() (string, error) {
	t := p.cur()
	if t.kind == tokIdent && strings.EqualFold(t.text, "LIKE") {
		p.next()
		return "LIKE", nil
	}
	if t.kind != tokPunct {
		return "", fmt.Errorf("sql: expected comparison operator, got %q", t.text)
	}
	for _, op := range compareOps {
		if t.text == op {
			p.next()
			return op, nil
		}
	}
	return "", fmt.Errorf("sql: unsupported operator %q", t.text)
}

// parseOperand parses the right-hand side of a predicate: either a
// literal or a qualified column reference.
func (p *parser) parseOperand() (Operand, error) {
	t := p.cur()
	if t.kind == tokIdent && !strings.EqualFold(t.text, "NULL") && !strings.EqualFold(t.text, "DEFAULT") {
		table, col, err := p.parseQualifiedColumn()
		if err != nil {
			return Operand{}, err
		}
		return Operand{IsColumn: true, Table: table, Column: col}, nil
	}
	lit, err := p.parseLiteral()
	if err != nil {
		return Operand{}, err
	}
	return Operand{Literal: lit}, nil
}

// parseWhere parses `WHERE pred AND pred AND ...` (no OR — spec.md §4.6
// treats a WHERE clause as one flat conjunction).
func (p *parser) parseWhere() ([]Predicate, error) {
	if !p.tryKeyword("WHERE") {
		return nil, nil
	}
	var preds []Predicate
	for {
		table, col, err := p.parseQualifiedColumn()
		if err != nil {
			return nil, err
		}
		op, err := p.parseOperator()
		if err != nil {
			return nil, err
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		preds = append(preds, Predicate{Table: table, Column: col, Op: op, Right: right})
		if !p.tryKeyword("AND") {
			break
		}
	}
	return preds, nil
}
