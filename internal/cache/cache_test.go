package cache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"goDB/internal/dblog"
	"goDB/internal/pagestore"
)

func openFile(t *testing.T) *pagestore.File {
	t.Helper()
	f, err := pagestore.Open(filepath.Join(t.TempDir(), "data.bin"), dblog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestGetLoadsFromDiskOnMiss(t *testing.T) {
	f := openFile(t)
	page := make([]byte, pagestore.PageSize)
	copy(page, []byte("disk contents"))
	require.NoError(t, f.WritePage(1, page))

	c, err := New(4, dblog.Nop())
	require.NoError(t, err)

	got, err := c.Get(f, 1)
	require.NoError(t, err)
	require.True(t, bytes.Equal(got, page))
}

func TestGetMutMarksDirtyAndWritesBackOnClose(t *testing.T) {
	f := openFile(t)
	c, err := New(4, dblog.Nop())
	require.NoError(t, err)

	buf, err := c.GetMut(f, 1)
	require.NoError(t, err)
	copy(buf, []byte("mutated"))

	require.NoError(t, c.CloseFile(f))

	onDisk, err := f.ReadPage(1)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(onDisk, []byte("mutated")))
}

func TestEvictionFlushesDirtyPage(t *testing.T) {
	f := openFile(t)
	c, err := New(2, dblog.Nop())
	require.NoError(t, err)

	buf, err := c.GetMut(f, 1)
	require.NoError(t, err)
	copy(buf, []byte("page-one"))

	// fill the cache past capacity so page 1 is evicted.
	_, err = c.GetMut(f, 2)
	require.NoError(t, err)
	_, err = c.GetMut(f, 3)
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())

	onDisk, err := f.ReadPage(1)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(onDisk, []byte("page-one")))
}

func TestPutInstallsDirtyWithoutReadingDisk(t *testing.T) {
	f := openFile(t)
	c, err := New(4, dblog.Nop())
	require.NoError(t, err)

	fresh := make([]byte, pagestore.PageSize)
	copy(fresh, []byte("brand new"))
	c.Put(f, 1, fresh)

	got, err := c.Get(f, 1)
	require.NoError(t, err)
	require.True(t, bytes.Equal(got, fresh))

	require.NoError(t, c.WriteBack(f, 1))
	onDisk, err := f.ReadPage(1)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(onDisk, []byte("brand new")))
}

func TestClearFlushesEverything(t *testing.T) {
	f := openFile(t)
	c, err := New(4, dblog.Nop())
	require.NoError(t, err)

	buf, err := c.GetMut(f, 1)
	require.NoError(t, err)
	copy(buf, []byte("clear me"))

	require.NoError(t, c.Clear())
	require.Equal(t, 0, c.Len())

	onDisk, err := f.ReadPage(1)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(onDisk, []byte("clear me")))
}
