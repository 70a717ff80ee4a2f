package dbms

import (
	"path/filepath"

	"goDB/internal/btree"
	"goDB/internal/cache"
	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/dblog"
	"goDB/internal/heap"
	"goDB/internal/pagestore"
)

// OpenTable bundles one open table's heap, schema, and open index trees.
// The engine holds onto these across statements within a session; dbms
// only ever hands out one instance per table name per Database.
type OpenTable struct {
	Name   string
	Schema *catalog.TableSchema
	Heap   *heap.Table

	// Indexes maps index name to its open tree. Rebuilt from Schema.Indexes
	// whenever the slice is mutated, since catalog.IndexSchema pointers
	// into it are invalidated by append.
	Indexes map[string]*btree.Tree

	dir      string
	file     *pagestore.File
	idxFiles map[string]*pagestore.File
}

func metaPath(tableDir string) string { return filepath.Join(tableDir, "meta.json") }
func dataPath(tableDir string) string { return filepath.Join(tableDir, "data.bin") }
func indexBinPath(tableDir, idxName string) string {
	return filepath.Join(tableDir, idxName+".index.bin")
}
func indexJSONPath(tableDir, idxName string) string {
	return filepath.Join(tableDir, idxName+".index.json")
}

// rebuildIndexes (re)opens a btree.Tree for every entry in ot.Schema.Indexes,
// reusing already-open index files and opening new ones as needed. Called
// after any append/removal on Schema.Indexes, since that invalidates the
// *catalog.IndexSchema pointers btree.Tree instances hold.
func (ot *OpenTable) rebuildIndexes(c *cache.Cache, log *dblog.Logger) error {
	newFiles := make(map[string]*pagestore.File, len(ot.Schema.Indexes))
	newTrees := make(map[string]*btree.Tree, len(ot.Schema.Indexes))

	for i := range ot.Schema.Indexes {
		idx := &ot.Schema.Indexes[i]
		f, ok := ot.idxFiles[idx.Name]
		if !ok {
			var err error
			f, err = pagestore.Open(indexBinPath(ot.dir, idx.Name), log)
			if err != nil {
				return err
			}
		}
		newFiles[idx.Name] = f

		cols, err := columnsFor(ot.Schema, idx.Columns)
		if err != nil {
			return err
		}
		tree, err := btree.Open(idx, cols, f, c, log)
		if err != nil {
			return err
		}
		newTrees[idx.Name] = tree
	}

	// close files for any index dropped in this mutation
	for name, f := range ot.idxFiles {
		if _, ok := newFiles[name]; !ok {
			if err := c.CloseFile(f); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
	}

	ot.idxFiles = newFiles
	ot.Indexes = newTrees
	return nil
}

func columnsFor(schema *catalog.TableSchema, names []string) ([]catalog.Column, error) {
	cols := make([]catalog.Column, 0, len(names))
	for _, n := range names {
		i, ok := schema.ColumnIndex(n)
		if !ok {
			return nil, dberr.New(dberr.KindColumnNotFound, "index references unknown column %q", n)
		}
		cols = append(cols, schema.Columns[i])
	}
	return cols, nil
}
