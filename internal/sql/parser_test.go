package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goDB/internal/catalog"
)

func TestParseCreateDatabase(t *testing.T) {
	stmt, err := Parse("CREATE DATABASE shop")
	require.NoError(t, err)
	require.Equal(t, &CreateDatabaseStmt{Name: "shop"}, stmt)
}

func TestParseCreateTableWithConstraints(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE orders (
		id INT NOT NULL,
		customer_id INT NOT NULL,
		note VARCHAR(32),
		placed DATE,
		PRIMARY KEY (id),
		CONSTRAINT fk_customer FOREIGN KEY (customer_id) REFERENCES customers (id)
	);`)
	require.NoError(t, err)
	ct, ok := stmt.(*CreateTableStmt)
	require.True(t, ok)
	require.Equal(t, "orders", ct.TableName)
	require.Len(t, ct.Columns, 4)
	require.Equal(t, catalog.Column{Name: "id", Type: catalog.ColumnType{Kind: catalog.KindInt}, Nullable: false}, ct.Columns[0])
	require.Equal(t, catalog.ColumnType{Kind: catalog.KindText, Width: 32}, ct.Columns[2].Type)
	require.Len(t, ct.Constraints, 2)
	require.Equal(t, catalog.ConstraintPrimaryKey, ct.Constraints[0].Kind)
	require.Equal(t, catalog.ConstraintForeignKey, ct.Constraints[1].Kind)
	require.Equal(t, "customers", ct.Constraints[1].RefTable)
}

func TestParseInsertMultiRow(t *testing.T) {
	stmt, err := Parse(`INSERT INTO t VALUES (1, 'Alice'), (2, 'Bob')`)
	require.NoError(t, err)
	ins, ok := stmt.(*InsertStmt)
	require.True(t, ok)
	require.Len(t, ins.Rows, 2)
	require.Equal(t, catalog.IntValue(1), ins.Rows[0][0])
	require.Equal(t, catalog.TextValue("Alice"), ins.Rows[0][1])
}

func TestParseSelectWithWhereAnd(t *testing.T) {
	stmt, err := Parse(`SELECT id, name FROM t WHERE id > 3 AND id <= 7`)
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok)
	require.Len(t, sel.Items, 2)
	require.Len(t, sel.Where, 2)
	require.Equal(t, ">", sel.Where[0].Op)
	require.Equal(t, "<=", sel.Where[1].Op)
}

func TestParseSelectJoinAndGroupBy(t *testing.T) {
	stmt, err := Parse(`SELECT cls, AVG(pts) FROM scores JOIN students ON scores.sid = students.id GROUP BY cls`)
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok)
	require.NotNil(t, sel.Join)
	require.Equal(t, "students", sel.Join.Table)
	require.Equal(t, AggAvg, sel.Items[1].Func)
	require.Equal(t, []string{"cls"}, sel.GroupBy)
}

func TestParseSelectCountStar(t *testing.T) {
	stmt, err := Parse(`SELECT COUNT(*) FROM t`)
	require.NoError(t, err)
	sel := stmt.(*SelectStmt)
	require.Equal(t, AggCount, sel.Items[0].Func)
	require.Equal(t, "*", sel.Items[0].Column)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse(`UPDATE t SET name = 'Bob', score = 9.5 WHERE id = 1`)
	require.NoError(t, err)
	upd := stmt.(*UpdateStmt)
	require.Len(t, upd.Assignments, 2)
	require.Equal(t, catalog.FloatValue(9.5), upd.Assignments[1].Value)
}

func TestParseDeleteRequiresWellFormedWhere(t *testing.T) {
	_, err := Parse(`DELETE FROM t WHERE`)
	require.Error(t, err)
}

func TestParseAlterTableAddForeignKey(t *testing.T) {
	stmt, err := Parse(`ALTER TABLE child ADD FOREIGN KEY (pid) REFERENCES parent (id)`)
	require.NoError(t, err)
	alt := stmt.(*AlterTableStmt)
	require.Equal(t, AlterAddForeignKey, alt.Action)
	require.Equal(t, "parent", alt.Constraint.RefTable)
}

func TestParseLoad(t *testing.T) {
	stmt, err := Parse(`LOAD 'data.csv' INTO TABLE t`)
	require.NoError(t, err)
	require.Equal(t, &LoadStmt{File: "data.csv", TableName: "t"}, stmt)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`SELECT * FROM t EXTRA`)
	require.Error(t, err)
}
