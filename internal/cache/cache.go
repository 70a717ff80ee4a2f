// Package cache is the global LRU page cache sitting between the heap and
// B+-tree layers and pagestore (spec.md §4.2). Every page in the engine,
// whether it belongs to a table heap or an index file, is read and
// written through here; the cache owns deciding when a dirty page
// actually hits disk.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"goDB/internal/dberr"
	"goDB/internal/dblog"
	"goDB/internal/pagestore"
)

// DefaultCapacity is the default number of cached pages (spec.md §4.2).
const DefaultCapacity = 16384

// key identifies a cached page by the backing file and page id. File
// pointers are stable for the lifetime of an open file, so comparing
// them is sufficient to distinguish pages across table and index files
// sharing one process-wide cache.
type key struct {
	file *pagestore.File
	page pagestore.PageID
}

type entry struct {
	data  []byte
	dirty bool
}

// Cache is a single LRU cache of raw pages shared by every open file.
// It takes no lock of its own and is not safe for concurrent use.
type Cache struct {
	lru *lru.LRU[key, *entry]
	log *dblog.Logger
}

// New creates a page cache with room for capacity pages. Eviction of a
// dirty page synchronously writes it back through pagestore before the
// slot is reused.
func New(capacity int, log *dblog.Logger) (*Cache, error) {
	if log == nil {
		log = dblog.Nop()
	}
	c := &Cache{log: log.Component("cache")}

	onEvict := func(k key, e *entry) {
		if !e.dirty {
			return
		}
		if err := k.file.WritePage(k.page, e.data); err != nil {
			c.log.Error().Err(err).Uint32("page", uint32(k.page)).Msg("evict: write-back failed")
		}
	}

	l, err := lru.NewLRU[key, *entry](capacity, onEvict)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "create page cache")
	}
	c.lru = l
	return c, nil
}

// Get returns a read-only view of a page, loading it from disk on a
// cache miss. Callers must not mutate the returned slice; use GetMut for
// that.
func (c *Cache) Get(f *pagestore.File, id pagestore.PageID) ([]byte, error) {
	e, err := c.load(f, id)
	if err != nil {
		return nil, err
	}
	return e.data, nil
}

// GetMut returns a page buffer the caller intends to mutate in place and
// marks it dirty immediately, so a subsequent eviction or Close writes it
// back even if the caller never calls WriteBack explicitly.
func (c *Cache) GetMut(f *pagestore.File, id pagestore.PageID) ([]byte, error) {
	e, err := c.load(f, id)
	if err != nil {
		return nil, err
	}
	e.dirty = true
	return e.data, nil
}

func (c *Cache) load(f *pagestore.File, id pagestore.PageID) (*entry, error) {
	k := key{file: f, page: id}
	if e, ok := c.lru.Get(k); ok {
		return e, nil
	}
	data, err := f.ReadPage(id)
	if err != nil {
		return nil, err
	}
	e := &entry{data: data}
	c.lru.Add(k, e)
	return e, nil
}

// Put installs a freshly allocated page (e.g. one that did not previously
// exist on disk) into the cache as dirty, without reading it first.
func (c *Cache) Put(f *pagestore.File, id pagestore.PageID, data []byte) {
	if len(data) != pagestore.PageSize {
		panic("cache.Put: page must be exactly PageSize bytes")
	}
	c.lru.Add(key{file: f, page: id}, &entry{data: data, dirty: true})
}

// WriteBack flushes one page to disk immediately if dirty, clearing the
// dirty bit but keeping it cached.
func (c *Cache) WriteBack(f *pagestore.File, id pagestore.PageID) error {
	k := key{file: f, page: id}
	e, ok := c.lru.Get(k)
	if !ok || !e.dirty {
		return nil
	}
	if err := f.WritePage(id, e.data); err != nil {
		return err
	}
	e.dirty = false
	return nil
}

// CloseFile flushes and evicts every page belonging to f. Callers invoke
// this when a table or index is closed or a database is switched away
// from, so dirty pages do not linger pinned to a *pagestore.File the
// caller is about to close.
func (c *Cache) CloseFile(f *pagestore.File) error {
	var firstErr error
	for _, k := range c.lru.Keys() {
		if k.file != f {
			continue
		}
		e, ok := c.lru.Peek(k)
		if ok && e.dirty {
			if err := f.WritePage(k.page, e.data); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		c.lru.Remove(k)
	}
	return firstErr
}

// Clear flushes every dirty page in the cache and evicts everything.
func (c *Cache) Clear() error {
	var firstErr error
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if ok && e.dirty {
			if err := k.file.WritePage(k.page, e.data); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	c.lru.Purge()
	return firstErr
}

// Len reports how many pages are currently resident, for tests.
func (c *Cache) Len() int { return c.lru.Len() }
