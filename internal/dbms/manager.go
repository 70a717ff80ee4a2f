// Package dbms owns database lifecycle: directories under a configured
// base, the process-wide page cache, and the one currently selected
// database's open tables and indexes (spec.md §4.6 "Database lifecycle").
package dbms

import (
	"os"
	"path/filepath"
	"sort"

	"goDB/internal/cache"
	"goDB/internal/dberr"
	"goDB/internal/dblog"
)

// Manager is the top-level handle the engine talks to: it tracks which
// database is selected and owns the single process-wide page cache that
// every open table and index shares.
type Manager struct {
	baseDir string
	cache   *cache.Cache
	log     *dblog.Logger

	current *Database
}

// NewManager creates the base directory if needed and wires up the
// shared page cache.
func NewManager(baseDir string, cacheCapacity int, log *dblog.Logger) (*Manager, error) {
	if log == nil {
		log = dblog.Nop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "create base directory %s", baseDir)
	}
	c, err := cache.New(cacheCapacity, log)
	if err != nil {
		return nil, err
	}
	return &Manager{baseDir: baseDir, cache: c, log: log.Component("dbms")}, nil
}

func (m *Manager) dbDir(name string) string { return filepath.Join(m.baseDir, name) }

// CreateDatabase makes a new database directory. It does not select it.
func (m *Manager) CreateDatabase(name string) error {
	dir := m.dbDir(name)
	if _, err := os.Stat(dir); err == nil {
		return dberr.New(dberr.KindDatabaseExists, "database %q already exists", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dberr.Wrap(dberr.KindIO, err, "create database %s", name)
	}
	return nil
}

// DropDatabase removes a database directory entirely. If it is the
// currently selected database, its open tables/indexes are closed and
// the cache is flushed of its pages first.
func (m *Manager) DropDatabase(name string) error {
	dir := m.dbDir(name)
	if _, err := os.Stat(dir); err != nil {
		return dberr.New(dberr.KindDatabaseNotFound, "database %q does not exist", name)
	}
	if m.current != nil && m.current.name == name {
		if err := m.current.Close(); err != nil {
			return err
		}
		m.current = nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return dberr.Wrap(dberr.KindIO, err, "drop database %s", name)
	}
	return nil
}

// UseDatabase selects name as current, closing and flushing whatever was
// previously selected.
func (m *Manager) UseDatabase(name string) error {
	dir := m.dbDir(name)
	if _, err := os.Stat(dir); err != nil {
		return dberr.New(dberr.KindDatabaseNotFound, "database %q does not exist", name)
	}
	if m.current != nil {
		if err := m.current.Close(); err != nil {
			return err
		}
	}
	m.current = newDatabase(name, dir, m.cache, m.log)
	return nil
}

// ListDatabases returns every database directory under the base, sorted.
func (m *Manager) ListDatabases() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "list databases")
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

// Current returns the selected database, or a no-database-selected error.
func (m *Manager) Current() (*Database, error) {
	if m.current == nil {
		return nil, dberr.New(dberr.KindNoDatabaseSelected, "no database selected")
	}
	return m.current, nil
}

// Close flushes and closes whatever database is currently selected, for
// clean process shutdown.
func (m *Manager) Close() error {
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}
