package pagestore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"goDB/internal/dblog"
)

func TestReadPageUnwrittenIsZero(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "data.bin"), dblog.Nop())
	require.NoError(t, err)
	defer f.Close()

	buf, err := f.ReadPage(1)
	require.NoError(t, err)
	require.Len(t, buf, PageSize)
	require.True(t, bytes.Equal(buf, make([]byte, PageSize)))
}

func TestWriteThenReadPageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "data.bin"), dblog.Nop())
	require.NoError(t, err)
	defer f.Close()

	page := make([]byte, PageSize)
	copy(page, []byte("hello page"))

	require.NoError(t, f.WritePage(3, page))

	got, err := f.ReadPage(3)
	require.NoError(t, err)
	require.True(t, bytes.Equal(got, page))

	// pages before the written one, never touched, still read as zero.
	zero, err := f.ReadPage(2)
	require.NoError(t, err)
	require.True(t, bytes.Equal(zero, make([]byte, PageSize)))
}

func TestPageCountGrowsWithWrites(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "data.bin"), dblog.Nop())
	require.NoError(t, err)
	defer f.Close()

	n, err := f.PageCount()
	require.NoError(t, err)
	require.Equal(t, uint32(0), n)

	require.NoError(t, f.WritePage(1, make([]byte, PageSize)))
	n, err = f.PageCount()
	require.NoError(t, err)
	require.Equal(t, uint32(1), n)

	require.NoError(t, f.WritePage(5, make([]byte, PageSize)))
	n, err = f.PageCount()
	require.NoError(t, err)
	require.Equal(t, uint32(5), n)
}

func TestWritePageRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "data.bin"), dblog.Nop())
	require.NoError(t, err)
	defer f.Close()

	err = f.WritePage(1, make([]byte, PageSize-1))
	require.Error(t, err)
}

func TestPageIDZeroIsInvalid(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(filepath.Join(dir, "data.bin"), dblog.Nop())
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadPage(0)
	require.Error(t, err)

	err = f.WritePage(0, make([]byte, PageSize))
	require.Error(t, err)
}
