package heap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"goDB/internal/cache"
	"goDB/internal/catalog"
	"goDB/internal/dblog"
	"goDB/internal/pagestore"
	"goDB/internal/record"
)

func newTestTable(t *testing.T, capacity int) (*Table, *catalog.TableSchema) {
	t.Helper()
	schema := &catalog.TableSchema{
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.ColumnType{Kind: catalog.KindInt}},
		},
	}
	require.NoError(t, schema.Prepare())
	if capacity > 0 {
		// force a small per-page capacity so list-transition scenarios
		// (spec.md §8 S2) don't require thousands of rows.
		schema.Capacity = capacity
		schema.FreeBitmapSize = (capacity + 7) / 8
	}

	f, err := pagestore.Open(filepath.Join(t.TempDir(), "data.bin"), dblog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	c, err := cache.New(64, dblog.Nop())
	require.NoError(t, err)

	return Open(schema, f, c, dblog.Nop()), schema
}

func row(id int32) record.Record {
	return record.New([]catalog.Value{catalog.IntValue(id)})
}

func TestInsertGetRoundTrip(t *testing.T) {
	tbl, _ := newTestTable(t, 0)
	rid, err := tbl.Insert(row(42))
	require.NoError(t, err)

	got, err := tbl.Get(rid)
	require.NoError(t, err)
	require.Equal(t, int32(42), got.Values[0].I32)
}

func TestFreeFullTransitionsHeads(t *testing.T) {
	tbl, schema := newTestTable(t, 2)

	r1, err := tbl.Insert(row(1))
	require.NoError(t, err)
	_, err = tbl.Insert(row(2))
	require.NoError(t, err)

	// both slots of page 1 used: it must now be the full list's head and
	// absent from the free list.
	require.Equal(t, uint32(r1.Page), schema.FullHead)

	r3, err := tbl.Insert(row(3))
	require.NoError(t, err)
	require.Equal(t, uint32(r3.Page), schema.FreeHead)
	require.NotEqual(t, uint32(r1.Page), schema.FreeHead)

	// deleting one row from the full page moves it back to the free list.
	require.NoError(t, tbl.Delete(r1))
	require.Equal(t, uint32(r1.Page), schema.FreeHead)
}

func TestScanVisitsAllOccupiedSlots(t *testing.T) {
	tbl, _ := newTestTable(t, 2)
	for i := int32(1); i <= 5; i++ {
		_, err := tbl.Insert(row(i))
		require.NoError(t, err)
	}

	seen := map[int32]bool{}
	err := tbl.Scan(func(rid RowID, r record.Record) error {
		seen[r.Values[0].I32] = true
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 5)
	for i := int32(1); i <= 5; i++ {
		require.True(t, seen[i])
	}
}

func TestDeleteThenReinsertReusesSlot(t *testing.T) {
	tbl, _ := newTestTable(t, 2)
	rid, err := tbl.Insert(row(1))
	require.NoError(t, err)
	require.NoError(t, tbl.Delete(rid))

	_, err = tbl.Get(rid)
	require.Error(t, err)

	rid2, err := tbl.Insert(row(9))
	require.NoError(t, err)
	require.Equal(t, rid.Page, rid2.Page)
	require.Equal(t, rid.Slot, rid2.Slot)
}

func TestUpdateOverwritesInPlace(t *testing.T) {
	tbl, _ := newTestTable(t, 0)
	rid, err := tbl.Insert(row(1))
	require.NoError(t, err)

	require.NoError(t, tbl.Update(rid, row(99)))
	got, err := tbl.Get(rid)
	require.NoError(t, err)
	require.Equal(t, int32(99), got.Values[0].I32)
}
