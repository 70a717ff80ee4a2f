package dbms

import (
	"os"
	"path/filepath"
	"sort"

	"goDB/internal/cache"
	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/dblog"
	"goDB/internal/heap"
	"goDB/internal/pagestore"
)

// Database is one selected database directory: its open tables, each with
// its heap and index trees, all sharing the process-wide page cache.
type Database struct {
	name string
	dir  string

	cache  *cache.Cache
	log    *dblog.Logger
	tables map[string]*OpenTable
}

func newDatabase(name, dir string, c *cache.Cache, log *dblog.Logger) *Database {
	return &Database{name: name, dir: dir, cache: c, log: log, tables: map[string]*OpenTable{}}
}

// Name returns the selected database's name.
func (d *Database) Name() string { return d.name }

func (d *Database) tableDir(name string) string { return filepath.Join(d.dir, name) }

// ListTables returns every table subdirectory, sorted.
func (d *Database) ListTables() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "list tables of %s", d.name)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// OpenTable returns the already-open table, or opens it from its meta.json
// and data.bin sidecars on first use.
func (d *Database) OpenTable(name string) (*OpenTable, error) {
	if ot, ok := d.tables[name]; ok {
		return ot, nil
	}

	dir := d.tableDir(name)
	if _, err := os.Stat(dir); err != nil {
		return nil, dberr.New(dberr.KindTableNotFound, "table %q does not exist", name)
	}

	schema, err := catalog.LoadTableSchema(metaPath(dir))
	if err != nil {
		return nil, err
	}
	file, err := pagestore.Open(dataPath(dir), d.log)
	if err != nil {
		return nil, err
	}

	ot := &OpenTable{
		Name:     name,
		Schema:   schema,
		Heap:     heap.Open(schema, file, d.cache, d.log),
		dir:      dir,
		file:     file,
		idxFiles: map[string]*pagestore.File{},
	}
	if err := ot.rebuildIndexes(d.cache, d.log); err != nil {
		return nil, err
	}

	d.tables[name] = ot
	return ot, nil
}

// CreateTable makes a new table directory, writes its initial meta.json,
// and opens it. schema must already have Prepare() applied.
func (d *Database) CreateTable(name string, schema *catalog.TableSchema) (*OpenTable, error) {
	dir := d.tableDir(name)
	if _, err := os.Stat(dir); err == nil {
		return nil, dberr.New(dberr.KindTableExists, "table %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "create table directory %s", name)
	}

	file, err := pagestore.Open(dataPath(dir), d.log)
	if err != nil {
		return nil, err
	}
	ot := &OpenTable{
		Name:     name,
		Schema:   schema,
		Heap:     heap.Open(schema, file, d.cache, d.log),
		dir:      dir,
		file:     file,
		idxFiles: map[string]*pagestore.File{},
	}
	if err := ot.rebuildIndexes(d.cache, d.log); err != nil {
		return nil, err
	}
	if err := d.PersistSchema(ot); err != nil {
		return nil, err
	}
	d.tables[name] = ot
	return ot, nil
}

// DropTable closes and deletes a table entirely, flushing its pages out
// of the shared cache first.
func (d *Database) DropTable(name string) error {
	dir := d.tableDir(name)
	if _, err := os.Stat(dir); err != nil {
		return dberr.New(dberr.KindTableNotFound, "table %q does not exist", name)
	}
	if ot, ok := d.tables[name]; ok {
		if err := d.closeTable(ot); err != nil {
			return err
		}
		delete(d.tables, name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return dberr.Wrap(dberr.KindIO, err, "drop table %s", name)
	}
	return nil
}

func (d *Database) closeTable(ot *OpenTable) error {
	for _, f := range ot.idxFiles {
		if err := d.cache.CloseFile(f); err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if err := d.cache.CloseFile(ot.file); err != nil {
		return err
	}
	return ot.file.Close()
}

// PersistSchema writes a table's current in-memory schema back to
// meta.json plus each index's own sidecar, e.g. after an ALTER TABLE or
// implicit index change. Spec.md §6's "mutated in memory, written back on
// drop" is generalized here to also cover mid-session DDL, so a crash
// doesn't silently lose it.
func (d *Database) PersistSchema(ot *OpenTable) error {
	if err := catalog.SaveTableSchema(metaPath(ot.dir), ot.Schema); err != nil {
		return err
	}
	for i := range ot.Schema.Indexes {
		idx := &ot.Schema.Indexes[i]
		if err := catalog.SaveIndexSchema(indexJSONPath(ot.dir, idx.Name), idx); err != nil {
			return err
		}
	}
	return nil
}

// CreateIndex appends a new index to a table's schema, opens its backing
// file, and persists the schema. name must not already be in use.
func (d *Database) CreateIndex(ot *OpenTable, name string, columns []string, explicit bool) error {
	if _, ok := ot.Schema.IndexByName(name); ok {
		return dberr.New(dberr.KindDuplicateIndex, "index %q already exists on table %q", name, ot.Name)
	}
	ot.Schema.Indexes = append(ot.Schema.Indexes, catalog.IndexSchema{
		Explicit: explicit,
		Name:     name,
		Columns:  columns,
	})
	if err := ot.rebuildIndexes(d.cache, d.log); err != nil {
		return err
	}
	return d.PersistSchema(ot)
}

// DropIndex removes an index from a table's schema, closes and deletes
// its backing file, and persists the schema.
func (d *Database) DropIndex(ot *OpenTable, name string) error {
	i := -1
	for j := range ot.Schema.Indexes {
		if ot.Schema.Indexes[j].Name == name {
			i = j
			break
		}
	}
	if i == -1 {
		return dberr.New(dberr.KindIndexNotFound, "index %q does not exist on table %q", name, ot.Name)
	}
	ot.Schema.Indexes = append(ot.Schema.Indexes[:i], ot.Schema.Indexes[i+1:]...)
	if err := ot.rebuildIndexes(d.cache, d.log); err != nil {
		return err
	}
	if err := d.PersistSchema(ot); err != nil {
		return err
	}
	if err := os.Remove(indexBinPath(ot.dir, name)); err != nil && !os.IsNotExist(err) {
		return dberr.Wrap(dberr.KindIO, err, "remove index file for %s", name)
	}
	if err := os.Remove(indexJSONPath(ot.dir, name)); err != nil && !os.IsNotExist(err) {
		return dberr.Wrap(dberr.KindIO, err, "remove index sidecar for %s", name)
	}
	return nil
}

// Close flushes and closes every open table in the database, persisting
// each one's schema.
func (d *Database) Close() error {
	for name, ot := range d.tables {
		if err := d.PersistSchema(ot); err != nil {
			return err
		}
		if err := d.closeTable(ot); err != nil {
			return err
		}
		delete(d.tables, name)
	}
	return nil
}
