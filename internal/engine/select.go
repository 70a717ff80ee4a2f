package engine

import (
	"math"
	"strings"

	"goDB/internal/btree"
	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/dbms"
	"goDB/internal/heap"
	"goDB/internal/record"
	"goDB/internal/sql"
)

func (e *Engine) selectStmt(s *sql.SelectStmt) (Result, error) {
	db, err := e.mgr.Current()
	if err != nil {
		return Result{}, err
	}
	outerOt, err := db.OpenTable(s.From)
	if err != nil {
		return Result{}, err
	}

	var rows []row
	if s.Join == nil {
		rows, err = e.fetchSingleTable(outerOt, s.From, s.Where)
	} else {
		rows, err = e.fetchJoin(db, outerOt, s)
	}
	if err != nil {
		return Result{}, err
	}

	hasAgg := false
	for _, item := range s.Items {
		if item.Func != sql.AggNone {
			hasAgg = true
			break
		}
	}
	if hasAgg || len(s.GroupBy) > 0 {
		return e.projectAggregated(rows, s)
	}
	return e.projectPlain(rows, s)
}

// rangeBound is a per-column [left, right] int32 bound derived from a
// bucketed WHERE clause (spec.md §4.6 "match-index").
type rangeBound struct {
	left, right *int32
}

func setMax(p **int32, v int32) {
	if *p == nil || v > **p {
		vv := v
		*p = &vv
	}
}

func setMin(p **int32, v int32) {
	if *p == nil || v < **p {
		vv := v
		*p = &vv
	}
}

// matchIndexBounds buckets `column OP int-literal` clauses by column,
// closing each operator into an inclusive [left, right] range.
func matchIndexBounds(table string, where []sql.Predicate) map[string]*rangeBound {
	bounds := map[string]*rangeBound{}
	for _, p := range where {
		if p.Table != "" && p.Table != table {
			continue
		}
		if p.Right.IsColumn || p.Right.Literal.Kind != catalog.KindInt {
			continue
		}
		v := p.Right.Literal.I32
		b, ok := bounds[p.Column]
		if !ok {
			b = &rangeBound{}
			bounds[p.Column] = b
		}
		switch p.Op {
		case "=":
			setMax(&b.left, v)
			setMin(&b.right, v)
		case "<":
			setMin(&b.right, v-1)
		case "<=":
			setMin(&b.right, v)
		case ">":
			setMax(&b.left, v+1)
		case ">=":
			setMax(&b.left, v)
		}
	}
	return bounds
}

// fetchSingleTable returns this table's filtered rows, via an
// index-accelerated range scan when a bucketed WHERE column has a
// matching single-column index, otherwise a full scan.
func (e *Engine) fetchSingleTable(ot *dbms.OpenTable, table string, where []sql.Predicate) ([]row, error) {
	for col, b := range matchIndexBounds(table, where) {
		if idx, ok := ot.Schema.IndexOnColumns(col); ok {
			return e.scanViaIndex(ot, table, idx, b, where)
		}
	}
	return e.scanFull(ot, table, where)
}

func (e *Engine) scanFull(ot *dbms.OpenTable, table string, where []sql.Predicate) ([]row, error) {
	var out []row
	err := ot.Heap.Scan(func(_ heap.RowID, r record.Record) error {
		rr := rowFrom(table, ot.Schema, r.Values)
		ok, err := matchWhere(rr, where)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, rr)
		}
		return nil
	})
	return out, err
}

// scanViaIndex walks the leaf chain from the bound's left edge forward,
// stopping once a key exceeds the right edge, and re-checks every WHERE
// clause against each fetched row per spec.md §9 Open Question (b).
func (e *Engine) scanViaIndex(ot *dbms.OpenTable, table string, idx *catalog.IndexSchema, b *rangeBound, where []sql.Predicate) ([]row, error) {
	tree := ot.Indexes[idx.Name]
	left := int32(math.MinInt32)
	if b.left != nil {
		left = *b.left
	}
	it, err := tree.Find(record.New([]catalog.Value{catalog.IntValue(left)}))
	if err != nil {
		return nil, err
	}

	var out []row
	for !it.AtEnd() {
		k := it.Key()
		if b.right != nil && k.Values[0].Kind == catalog.KindInt && k.Values[0].I32 > *b.right {
			break
		}
		rid := toRowID(it.Pointer())
		rec, err := ot.Heap.Get(rid)
		if err != nil {
			return nil, err
		}
		rr := rowFrom(table, ot.Schema, rec.Values)
		ok, err := matchWhere(rr, where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rr)
		}
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fetchJoin implements the two-table join: prefer whichever side's join
// column has a single-column index as the probed (inner) side, otherwise
// fall back to block-nested-loop (spec.md §4.6 "Join").
func (e *Engine) fetchJoin(db *dbms.Database, outerOt *dbms.OpenTable, s *sql.SelectStmt) ([]row, error) {
	on := s.Join.On
	if on.Op != "=" {
		return nil, dberr.New(dberr.KindJoinOperation, "join condition must be an equality, got %q", on.Op)
	}
	innerOt, err := db.OpenTable(s.Join.Table)
	if err != nil {
		return nil, err
	}

	leftTable, rightTable := s.From, s.Join.Table
	leftCol, rightCol, err := joinColumns(on, leftTable, rightTable)
	if err != nil {
		return nil, err
	}

	var leftWhere, rightWhere, restWhere []sql.Predicate
	for _, p := range s.Where {
		switch p.Table {
		case leftTable:
			leftWhere = append(leftWhere, p)
		case rightTable:
			rightWhere = append(rightWhere, p)
		default:
			restWhere = append(restWhere, p)
		}
	}

	if rightIdx, ok := innerOt.Schema.IndexOnColumns(rightCol); ok {
		leftRows, err := e.fetchSingleTable(outerOt, leftTable, leftWhere)
		if err != nil {
			return nil, err
		}
		tree := innerOt.Indexes[rightIdx.Name]
		var out []row
		for _, lr := range leftRows {
			lv, err := lr.lookup(leftTable, leftCol)
			if err != nil {
				return nil, err
			}
			matches, err := e.probeIndexEqual(innerOt, rightTable, tree, lv, rightWhere)
			if err != nil {
				return nil, err
			}
			for _, ir := range matches {
				combined := lr.combine(ir)
				ok, err := matchWhere(combined, restWhere)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, combined)
				}
			}
		}
		return out, nil
	}

	if leftIdx, ok := outerOt.Schema.IndexOnColumns(leftCol); ok {
		rightRows, err := e.fetchSingleTable(innerOt, rightTable, rightWhere)
		if err != nil {
			return nil, err
		}
		tree := outerOt.Indexes[leftIdx.Name]
		var out []row
		for _, rr := range rightRows {
			rv, err := rr.lookup(rightTable, rightCol)
			if err != nil {
				return nil, err
			}
			matches, err := e.probeIndexEqual(outerOt, leftTable, tree, rv, leftWhere)
			if err != nil {
				return nil, err
			}
			for _, lr := range matches {
				combined := lr.combine(rr)
				ok, err := matchWhere(combined, restWhere)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, combined)
				}
			}
		}
		return out, nil
	}

	leftRows, err := e.fetchSingleTable(outerOt, leftTable, leftWhere)
	if err != nil {
		return nil, err
	}
	rightRows, err := e.fetchSingleTable(innerOt, rightTable, rightWhere)
	if err != nil {
		return nil, err
	}
	var out []row
	for _, lr := range leftRows {
		lv, err := lr.lookup(leftTable, leftCol)
		if err != nil {
			return nil, err
		}
		for _, rr := range rightRows {
			rv, err := rr.lookup(rightTable, rightCol)
			if err != nil {
				return nil, err
			}
			if catalog.Compare(lv, rv) != catalog.Equal {
				continue
			}
			combined := lr.combine(rr)
			ok, err := matchWhere(combined, restWhere)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, combined)
			}
		}
	}
	return out, nil
}

func joinColumns(on sql.Predicate, leftTable, rightTable string) (string, string, error) {
	if !on.Right.IsColumn {
		return "", "", dberr.New(dberr.KindJoinConditionCount, "join condition must equate two columns")
	}
	switch {
	case on.Table == leftTable && on.Right.Table == rightTable:
		return on.Column, on.Right.Column, nil
	case on.Table == rightTable && on.Right.Table == leftTable:
		return on.Right.Column, on.Column, nil
	default:
		return "", "", dberr.New(dberr.KindJoinConditionCount, "join condition must reference both %q and %q", leftTable, rightTable)
	}
}

func (e *Engine) probeIndexEqual(ot *dbms.OpenTable, table string, tree *btree.Tree, value catalog.Value, where []sql.Predicate) ([]row, error) {
	it, err := tree.Find(record.New([]catalog.Value{value}))
	if err != nil {
		return nil, err
	}
	var out []row
	for !it.AtEnd() {
		if catalog.Compare(it.Key().Values[0], value) != catalog.Equal {
			break
		}
		rid := toRowID(it.Pointer())
		rec, err := ot.Heap.Get(rid)
		if err != nil {
			return nil, err
		}
		rr := rowFrom(table, ot.Schema, rec.Values)
		ok, err := matchWhere(rr, where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rr)
		}
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) projectPlain(rows []row, s *sql.SelectStmt) (Result, error) {
	cols := make([]string, len(s.Items))
	for i, item := range s.Items {
		cols[i] = projectedName(item)
	}
	out := make([][]catalog.Value, len(rows))
	for i, r := range rows {
		vals := make([]catalog.Value, len(s.Items))
		for j, item := range s.Items {
			v, err := r.lookup(item.Table, item.Column)
			if err != nil {
				return Result{}, err
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return Result{Columns: cols, Rows: out}, nil
}

func projectedName(item sql.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if item.Func != sql.AggNone {
		return string(item.Func) + "(" + item.Column + ")"
	}
	return item.Column
}

// projectAggregated groups rows by GROUP BY column values and computes
// each item's aggregate (or, for a plain column, its value — which must
// be a grouping column) per group (spec.md §4.6 "Aggregation / grouping").
func (e *Engine) projectAggregated(rows []row, s *sql.SelectStmt) (Result, error) {
	for _, item := range s.Items {
		if item.Func == sql.AggNone && !containsString(s.GroupBy, item.Column) {
			return Result{}, dberr.New(dberr.KindMixedAggregate, "column %q must appear in GROUP BY or be aggregated", item.Column)
		}
	}

	groups := map[string][]row{}
	var order []string
	for _, r := range rows {
		key, err := groupKey(r, s.GroupBy)
		if err != nil {
			return Result{}, err
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	if len(order) == 0 && len(s.GroupBy) == 0 {
		// a bare aggregate over zero matching rows still produces one row.
		order = []string{""}
		groups[""] = nil
	}

	cols := make([]string, len(s.Items))
	for i, item := range s.Items {
		cols[i] = projectedName(item)
	}

	out := make([][]catalog.Value, 0, len(order))
	for _, k := range order {
		groupRows := groups[k]
		vals := make([]catalog.Value, len(s.Items))
		for i, item := range s.Items {
			if item.Func == sql.AggNone {
				if len(groupRows) == 0 {
					vals[i] = catalog.NullValue()
					continue
				}
				v, err := groupRows[0].lookup(item.Table, item.Column)
				if err != nil {
					return Result{}, err
				}
				vals[i] = v
				continue
			}
			v, err := aggregate(item.Func, item.Column, groupRows)
			if err != nil {
				return Result{}, err
			}
			vals[i] = v
		}
		out = append(out, vals)
	}
	return Result{Columns: cols, Rows: out}, nil
}

func groupKey(r row, groupBy []string) (string, error) {
	if len(groupBy) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, col := range groupBy {
		v, err := r.lookup("", col)
		if err != nil {
			return "", err
		}
		b.WriteString(v.String())
		b.WriteByte(0)
	}
	return b.String(), nil
}

func aggregate(fn sql.AggFunc, column string, rows []row) (catalog.Value, error) {
	if fn == sql.AggCount && column == "*" {
		return catalog.IntValue(int32(len(rows))), nil
	}

	vals := make([]catalog.Value, 0, len(rows))
	for _, r := range rows {
		v, err := r.lookup("", column)
		if err != nil {
			return catalog.Value{}, err
		}
		if !v.IsNull() {
			vals = append(vals, v)
		}
	}

	switch fn {
	case sql.AggCount:
		return catalog.IntValue(int32(len(vals))), nil
	case sql.AggSum, sql.AggAvg:
		var sumF float64
		var sumI int64
		isFloat := false
		for _, v := range vals {
			switch v.Kind {
			case catalog.KindFloat:
				isFloat = true
				sumF += v.F64
			case catalog.KindInt:
				sumI += int64(v.I32)
			default:
				return catalog.Value{}, dberr.New(dberr.KindTypeMismatch, "%s requires a numeric column", fn)
			}
		}
		if fn == sql.AggAvg {
			if len(vals) == 0 {
				return catalog.NullValue(), nil
			}
			total := sumF + float64(sumI)
			return catalog.FloatValue(total / float64(len(vals))), nil
		}
		if isFloat {
			return catalog.FloatValue(sumF + float64(sumI)), nil
		}
		return catalog.IntValue(int32(sumI)), nil
	case sql.AggMin, sql.AggMax:
		if len(vals) == 0 {
			return catalog.NullValue(), nil
		}
		best := vals[0]
		for _, v := range vals[1:] {
			ord := catalog.Compare(v, best)
			if fn == sql.AggMin && ord == catalog.Less {
				best = v
			}
			if fn == sql.AggMax && ord == catalog.Greater {
				best = v
			}
		}
		return best, nil
	default:
		return catalog.Value{}, dberr.New(dberr.KindNotImplemented, "aggregate %s", fn)
	}
}
