package engine

import (
	"regexp"
	"strings"

	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/sql"
)

// boundColumn names one projected or source column, qualified by the table
// it came from so a join's combined row can still resolve "t.col" and,
// where unambiguous, a bare "col".
type boundColumn struct {
	Table string
	Name  string
}

// row is the executor's working unit during WHERE filtering, joins,
// projection, and grouping: parallel column identities and values.
type row struct {
	cols []boundColumn
	vals []catalog.Value
}

func rowFrom(table string, schema *catalog.TableSchema, vals []catalog.Value) row {
	cols := make([]boundColumn, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = boundColumn{Table: table, Name: c.Name}
	}
	return row{cols: cols, vals: vals}
}

// combine concatenates two rows' columns and values, used to build a
// joined row out of one outer row and one inner row.
func (r row) combine(other row) row {
	cols := make([]boundColumn, 0, len(r.cols)+len(other.cols))
	vals := make([]catalog.Value, 0, len(r.vals)+len(other.vals))
	cols = append(cols, r.cols...)
	cols = append(cols, other.cols...)
	vals = append(vals, r.vals...)
	vals = append(vals, other.vals...)
	return row{cols: cols, vals: vals}
}

// lookup resolves a (possibly unqualified) column reference. An
// unqualified name that exists in more than one source table is
// inexact-column — the caller must qualify it.
func (r row) lookup(table, column string) (catalog.Value, error) {
	idx := -1
	for i, c := range r.cols {
		if c.Name != column {
			continue
		}
		if table != "" && c.Table != table {
			continue
		}
		if idx != -1 {
			return catalog.Value{}, dberr.New(dberr.KindInexactColumn, "column %q is ambiguous between %q and %q", column, r.cols[idx].Table, c.Table)
		}
		idx = i
	}
	if idx == -1 {
		return catalog.Value{}, dberr.New(dberr.KindColumnNotFound, "column %q not found", column)
	}
	return r.vals[idx], nil
}

func evalOperand(r row, op sql.Operand) (catalog.Value, error) {
	if !op.IsColumn {
		return op.Literal, nil
	}
	return r.lookup(op.Table, op.Column)
}

// matchPredicate evaluates one `left OP right` clause against a row.
func matchPredicate(r row, p sql.Predicate) (bool, error) {
	left, err := r.lookup(p.Table, p.Column)
	if err != nil {
		return false, err
	}
	right, err := evalOperand(r, p.Right)
	if err != nil {
		return false, err
	}

	if p.Op == "LIKE" {
		return likeMatch(left, right)
	}

	ord := catalog.Compare(left, right)
	switch p.Op {
	case "=":
		return ord == catalog.Equal, nil
	case "<>":
		return ord != catalog.Equal, nil
	case "<":
		return ord == catalog.Less, nil
	case "<=":
		return ord == catalog.Less || ord == catalog.Equal, nil
	case ">":
		return ord == catalog.Greater, nil
	case ">=":
		return ord == catalog.Greater || ord == catalog.Equal, nil
	default:
		return false, dberr.New(dberr.KindJoinOperation, "unsupported operator %q", p.Op)
	}
}

// matchWhere evaluates the flat conjunction of a WHERE clause (spec.md
// §4.4 "a row passes iff every clause matches").
func matchWhere(r row, preds []sql.Predicate) (bool, error) {
	for _, p := range preds {
		ok, err := matchPredicate(r, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// likeMatch implements `column LIKE pattern`: % and _ expand to .* and .
// after escaping every other regex metacharacter in the pattern.
func likeMatch(value, pattern catalog.Value) (bool, error) {
	if value.Kind != catalog.KindText && value.Kind != catalog.KindDate {
		return false, dberr.New(dberr.KindTypeMismatch, "LIKE requires a text operand, got %s", value.Kind)
	}
	if pattern.Kind != catalog.KindText && pattern.Kind != catalog.KindDate {
		return false, dberr.New(dberr.KindTypeMismatch, "LIKE pattern must be text, got %s", pattern.Kind)
	}
	re, err := regexp.Compile("^" + globToRegex(pattern.String()) + "$")
	if err != nil {
		return false, dberr.Wrap(dberr.KindRegex, err, "compile LIKE pattern %q", pattern.String())
	}
	return re.MatchString(value.String()), nil
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
