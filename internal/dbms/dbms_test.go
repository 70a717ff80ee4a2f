package dbms

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"goDB/internal/catalog"
)

func widgetSchema(t *testing.T) *catalog.TableSchema {
	t.Helper()
	s := &catalog.TableSchema{
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.ColumnType{Kind: catalog.KindInt}},
			{Name: "name", Type: catalog.ColumnType{Kind: catalog.KindText, Width: 16}},
		},
		Constraints: []catalog.Constraint{
			{Kind: catalog.ConstraintPrimaryKey, Columns: []string{"id"}},
		},
	}
	require.NoError(t, s.Prepare())
	return s
}

func TestDatabaseLifecycle(t *testing.T) {
	m, err := NewManager(t.TempDir(), 64, nil)
	require.NoError(t, err)

	require.NoError(t, m.CreateDatabase("shop"))
	require.Error(t, m.CreateDatabase("shop")) // already exists

	dbs, err := m.ListDatabases()
	require.NoError(t, err)
	require.Equal(t, []string{"shop"}, dbs)

	_, err = m.Current()
	require.Error(t, err)

	require.NoError(t, m.UseDatabase("shop"))
	db, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "shop", db.Name())

	require.NoError(t, m.DropDatabase("shop"))
	_, err = m.Current()
	require.Error(t, err)
}

func TestTableOpenCreateDropRoundTrip(t *testing.T) {
	m, err := NewManager(t.TempDir(), 64, nil)
	require.NoError(t, err)
	require.NoError(t, m.CreateDatabase("shop"))
	require.NoError(t, m.UseDatabase("shop"))
	db, err := m.Current()
	require.NoError(t, err)

	_, err = db.OpenTable("widgets")
	require.Error(t, err) // not created yet

	ot, err := db.CreateTable("widgets", widgetSchema(t))
	require.NoError(t, err)
	require.Equal(t, "widgets", ot.Name)

	tables, err := db.ListTables()
	require.NoError(t, err)
	require.Equal(t, []string{"widgets"}, tables)

	_, err = db.CreateTable("widgets", widgetSchema(t))
	require.Error(t, err) // already exists

	// re-opening the same table returns the cached *OpenTable
	again, err := db.OpenTable("widgets")
	require.NoError(t, err)
	require.Same(t, ot, again)

	require.NoError(t, db.DropTable("widgets"))
	_, err = db.OpenTable("widgets")
	require.Error(t, err)
}

func TestTableSurvivesCloseAndReopen(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(base, 64, nil)
	require.NoError(t, err)
	require.NoError(t, m.CreateDatabase("shop"))
	require.NoError(t, m.UseDatabase("shop"))
	db, err := m.Current()
	require.NoError(t, err)

	_, err = db.CreateTable("widgets", widgetSchema(t))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	require.FileExists(t, filepath.Join(base, "shop", "widgets", "meta.json"))
	require.FileExists(t, filepath.Join(base, "shop", "widgets", "data.bin"))

	require.NoError(t, m.UseDatabase("shop"))
	db, err = m.Current()
	require.NoError(t, err)
	ot, err := db.OpenTable("widgets")
	require.NoError(t, err)
	require.Len(t, ot.Schema.Columns, 2)
}

func TestIndexCreateAndDrop(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(base, 64, nil)
	require.NoError(t, err)
	require.NoError(t, m.CreateDatabase("shop"))
	require.NoError(t, m.UseDatabase("shop"))
	db, err := m.Current()
	require.NoError(t, err)

	ot, err := db.CreateTable("widgets", widgetSchema(t))
	require.NoError(t, err)

	require.NoError(t, db.CreateIndex(ot, "by_name", []string{"name"}, true))
	require.Contains(t, ot.Indexes, "by_name")
	require.FileExists(t, filepath.Join(base, "shop", "widgets", "by_name.index.bin"))
	require.FileExists(t, filepath.Join(base, "shop", "widgets", "by_name.index.json"))

	require.Error(t, db.CreateIndex(ot, "by_name", []string{"name"}, true)) // duplicate

	require.NoError(t, db.DropIndex(ot, "by_name"))
	require.NotContains(t, ot.Indexes, "by_name")
	require.NoFileExists(t, filepath.Join(base, "shop", "widgets", "by_name.index.bin"))

	require.Error(t, db.DropIndex(ot, "by_name")) // already gone
}

func TestSwitchingDatabaseClosesThePrevious(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(base, 64, nil)
	require.NoError(t, err)
	require.NoError(t, m.CreateDatabase("a"))
	require.NoError(t, m.CreateDatabase("b"))

	require.NoError(t, m.UseDatabase("a"))
	dbA, err := m.Current()
	require.NoError(t, err)
	_, err = dbA.CreateTable("t", widgetSchema(t))
	require.NoError(t, err)

	require.NoError(t, m.UseDatabase("b"))
	dbB, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "b", dbB.Name())

	require.NoError(t, m.UseDatabase("a"))
	dbA2, err := m.Current()
	require.NoError(t, err)
	ot, err := dbA2.OpenTable("t")
	require.NoError(t, err)
	require.Equal(t, "t", ot.Name)
}
