package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"goDB/internal/catalog"
)

func testSchema(t *testing.T) *catalog.TableSchema {
	t.Helper()
	s := &catalog.TableSchema{
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.ColumnType{Kind: catalog.KindInt}},
			{Name: "name", Type: catalog.ColumnType{Kind: catalog.KindText, Width: 16}, Nullable: true},
			{Name: "score", Type: catalog.ColumnType{Kind: catalog.KindFloat}, Nullable: true},
			{Name: "born", Type: catalog.ColumnType{Kind: catalog.KindDate}, Nullable: true},
		},
	}
	require.NoError(t, s.Prepare())
	return s
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{
		catalog.IntValue(7),
		catalog.TextValue("ada"),
		catalog.FloatValue(3.5),
		catalog.DateValue("2024-01-02"),
	})

	buf, err := Encode(r, schema)
	require.NoError(t, err)
	require.Len(t, buf, schema.RecordSize)

	got, err := Decode(buf, schema)
	require.NoError(t, err)
	// Decode keeps a text slot's NUL padding; only compare/display trim it.
	want := append([]catalog.Value{}, r.Values...)
	want[1] = catalog.TextValue("ada" + strings.Repeat("\x00", 13))
	require.Equal(t, want, got.Values)
}

func TestEncodeDecodeWithNulls(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{
		catalog.IntValue(1),
		catalog.NullValue(),
		catalog.NullValue(),
		catalog.NullValue(),
	})

	buf, err := Encode(r, schema)
	require.NoError(t, err)

	got, err := Decode(buf, schema)
	require.NoError(t, err)
	require.True(t, got.Values[1].IsNull())
	require.True(t, got.Values[2].IsNull())
	require.True(t, got.Values[3].IsNull())
	require.Equal(t, int32(1), got.Values[0].I32)
}

func TestEncodeRejectsNullOnNotNullable(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{
		catalog.NullValue(),
		catalog.TextValue("x"),
		catalog.NullValue(),
		catalog.NullValue(),
	})
	_, err := Encode(r, schema)
	require.Error(t, err)
}

func TestEncodeRejectsFieldCountMismatch(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{catalog.IntValue(1)})
	_, err := Encode(r, schema)
	require.Error(t, err)
}

func TestCompareUsesCompareKeyCount(t *testing.T) {
	a := Record{
		Values:          []catalog.Value{catalog.IntValue(1), catalog.TextValue("a")},
		CompareKeyCount: 1,
	}
	b := Record{
		Values:          []catalog.Value{catalog.IntValue(1), catalog.TextValue("z")},
		CompareKeyCount: 1,
	}
	require.Equal(t, catalog.Equal, Compare(a, b))

	full := Record{Values: []catalog.Value{catalog.IntValue(1), catalog.TextValue("z")}}
	require.Equal(t, catalog.Equal, Compare(a, full))
}

func TestSelectProjectsColumns(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{
		catalog.IntValue(1), catalog.TextValue("ada"), catalog.FloatValue(1.0), catalog.NullValue(),
	})
	projected, err := Select(r, schema, []string{"name", "id"})
	require.NoError(t, err)
	require.Equal(t, "ada", projected.Values[0].Str)
	require.Equal(t, int32(1), projected.Values[1].I32)
}

func TestUpdateReplacesNamedColumns(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{
		catalog.IntValue(1), catalog.TextValue("ada"), catalog.FloatValue(1.0), catalog.NullValue(),
	})
	updated, err := Update(r, schema, map[string]catalog.Value{"name": catalog.TextValue("grace")})
	require.NoError(t, err)
	require.Equal(t, "grace", updated.Values[1].Str)
	require.Equal(t, int32(1), updated.Values[0].I32)
}

func TestUpdateRejectsTypeMismatch(t *testing.T) {
	schema := testSchema(t)
	r := New([]catalog.Value{
		catalog.IntValue(1), catalog.TextValue("ada"), catalog.FloatValue(1.0), catalog.NullValue(),
	})
	_, err := Update(r, schema, map[string]catalog.Value{"id": catalog.TextValue("nope")})
	require.Error(t, err)
}
