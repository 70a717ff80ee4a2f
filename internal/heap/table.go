// Package heap implements the slotted table page format and the
// free/full page-list bookkeeping that sits on top of it (spec.md §4.4).
package heap

import (
	"goDB/internal/cache"
	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/dblog"
	"goDB/internal/pagestore"
	"goDB/internal/record"
)

// RowID addresses one record by its table page and slot index, matching
// the `(table-page, table-slot)` pointer the B+-tree leaves store.
type RowID struct {
	Page pagestore.PageID
	Slot int
}

// Table is the slotted-page heap backing one table's data.bin.
type Table struct {
	schema *catalog.TableSchema
	file   *pagestore.File
	cache  *cache.Cache
	log    *dblog.Logger
}

// Open wraps an already-open page file and its loaded schema as a Table.
func Open(schema *catalog.TableSchema, file *pagestore.File, c *cache.Cache, log *dblog.Logger) *Table {
	if log == nil {
		log = dblog.Nop()
	}
	return &Table{schema: schema, file: file, cache: c, log: log.Component("heap")}
}

// Schema returns the table's schema, which Insert/Update/Delete keep in
// sync with the free/full list heads and page count as pages transition.
func (t *Table) Schema() *catalog.TableSchema { return t.schema }

// allocatePage returns the free-list head if one exists (the page stays on
// the free list), otherwise appends a fresh zeroed page to the file and
// pushes it onto the free list.
func (t *Table) allocatePage() (pagestore.PageID, error) {
	if t.schema.FreeHead != 0 {
		return pagestore.PageID(t.schema.FreeHead), nil
	}

	id := pagestore.PageID(t.schema.Pages + 1)
	buf := newPageBuffer()
	writeLinks(buf, 0, 0)
	t.cache.Put(t.file, id, buf)

	t.schema.Pages++
	t.schema.FreeHead = uint32(id)
	return id, nil
}

// unlinkFree removes id from the free list.
func (t *Table) unlinkFree(id pagestore.PageID, prev, next uint32) error {
	if prev != 0 {
		pbuf, err := t.cache.GetMut(t.file, pagestore.PageID(prev))
		if err != nil {
			return err
		}
		pp, _ := readLinks(pbuf)
		writeLinks(pbuf, pp, next)
	} else {
		t.schema.FreeHead = next
	}
	if next != 0 {
		nbuf, err := t.cache.GetMut(t.file, pagestore.PageID(next))
		if err != nil {
			return err
		}
		_, nn := readLinks(nbuf)
		writeLinks(nbuf, prev, nn)
	}
	return nil
}

// pushFull links id onto the head of the full list.
func (t *Table) pushFull(id pagestore.PageID) error {
	buf, err := t.cache.GetMut(t.file, id)
	if err != nil {
		return err
	}
	oldHead := t.schema.FullHead
	writeLinks(buf, 0, oldHead)
	if oldHead != 0 {
		hbuf, err := t.cache.GetMut(t.file, pagestore.PageID(oldHead))
		if err != nil {
			return err
		}
		_, hn := readLinks(hbuf)
		writeLinks(hbuf, uint32(id), hn)
	}
	t.schema.FullHead = uint32(id)
	return nil
}

// unlinkFull removes id from the full list.
func (t *Table) unlinkFull(id pagestore.PageID, prev, next uint32) error {
	if prev != 0 {
		pbuf, err := t.cache.GetMut(t.file, pagestore.PageID(prev))
		if err != nil {
			return err
		}
		pp, _ := readLinks(pbuf)
		writeLinks(pbuf, pp, next)
	} else {
		t.schema.FullHead = next
	}
	if next != 0 {
		nbuf, err := t.cache.GetMut(t.file, pagestore.PageID(next))
		if err != nil {
			return err
		}
		_, nn := readLinks(nbuf)
		writeLinks(nbuf, prev, nn)
	}
	return nil
}

// pushFree links id onto the head of the free list.
func (t *Table) pushFree(id pagestore.PageID) error {
	buf, err := t.cache.GetMut(t.file, id)
	if err != nil {
		return err
	}
	oldHead := t.schema.FreeHead
	writeLinks(buf, 0, oldHead)
	if oldHead != 0 {
		hbuf, err := t.cache.GetMut(t.file, pagestore.PageID(oldHead))
		if err != nil {
			return err
		}
		_, hn := readLinks(hbuf)
		writeLinks(hbuf, uint32(id), hn)
	}
	t.schema.FreeHead = uint32(id)
	return nil
}

// Insert writes r into the first available slot of the free-list head
// page, allocating a fresh page first if the free list is empty. If the
// insert fills the page, it transitions from free to full.
func (t *Table) Insert(r record.Record) (RowID, error) {
	id, err := t.allocatePage()
	if err != nil {
		return RowID{}, err
	}

	buf, err := t.cache.GetMut(t.file, id)
	if err != nil {
		return RowID{}, err
	}

	slot := firstFreeSlot(buf, t.schema)
	if slot == -1 {
		// the free-list head should never be full; a schema/list
		// inconsistency would land here.
		return RowID{}, dberr.New(dberr.KindIO, "free-list head page %d has no free slot", id)
	}

	enc, err := record.Encode(r, t.schema)
	if err != nil {
		return RowID{}, err
	}
	copy(recordSlot(buf, t.schema, slot), enc)
	setOccupied(buf, t.schema, slot, true)

	if isFull(buf, t.schema) {
		prev, next := readLinks(buf)
		if err := t.unlinkFree(id, prev, next); err != nil {
			return RowID{}, err
		}
		if err := t.pushFull(id); err != nil {
			return RowID{}, err
		}
	}

	return RowID{Page: id, Slot: slot}, nil
}

// Get reads the record at rid.
func (t *Table) Get(rid RowID) (record.Record, error) {
	buf, err := t.cache.Get(t.file, rid.Page)
	if err != nil {
		return record.Record{}, err
	}
	if !isOccupied(buf, t.schema, rid.Slot) {
		return record.Record{}, dberr.New(dberr.KindIO, "slot (%d,%d) is not occupied", rid.Page, rid.Slot)
	}
	return record.Decode(recordSlot(buf, t.schema, rid.Slot), t.schema)
}

// Update overwrites the record at rid in place. Table records are
// fixed-width, so an update never changes a record's size or slot.
func (t *Table) Update(rid RowID, r record.Record) error {
	buf, err := t.cache.GetMut(t.file, rid.Page)
	if err != nil {
		return err
	}
	if !isOccupied(buf, t.schema, rid.Slot) {
		return dberr.New(dberr.KindIO, "slot (%d,%d) is not occupied", rid.Page, rid.Slot)
	}
	enc, err := record.Encode(r, t.schema)
	if err != nil {
		return err
	}
	copy(recordSlot(buf, t.schema, rid.Slot), enc)
	return nil
}

// Delete clears the slot at rid. If the page was full (on the full list)
// before the delete, it moves to the free list.
func (t *Table) Delete(rid RowID) error {
	buf, err := t.cache.GetMut(t.file, rid.Page)
	if err != nil {
		return err
	}
	if !isOccupied(buf, t.schema, rid.Slot) {
		return dberr.New(dberr.KindIO, "slot (%d,%d) is not occupied", rid.Page, rid.Slot)
	}
	wasFull := isFull(buf, t.schema)
	setOccupied(buf, t.schema, rid.Slot, false)

	if wasFull {
		prev, next := readLinks(buf)
		if err := t.unlinkFull(rid.Page, prev, next); err != nil {
			return err
		}
		if err := t.pushFree(rid.Page); err != nil {
			return err
		}
	}
	return nil
}

// Scan calls fn for every occupied slot across the free list then the
// full list, stopping early if fn returns an error. Pages whose last
// slot empties out mid-scan are moved from full to free only after the
// scan completes (spec.md §4.4 "delete/update scans"), so Scan itself
// never mutates list membership — callers that delete during iteration
// collect row ids and call Delete once the walk is done.
func (t *Table) Scan(fn func(RowID, record.Record) error) error {
	for _, head := range []uint32{t.schema.FreeHead, t.schema.FullHead} {
		id := head
		for id != 0 {
			buf, err := t.cache.Get(t.file, pagestore.PageID(id))
			if err != nil {
				return err
			}
			_, next := readLinks(buf)
			for slot := 0; slot < t.schema.Capacity; slot++ {
				if !isOccupied(buf, t.schema, slot) {
					continue
				}
				r, err := record.Decode(recordSlot(buf, t.schema, slot), t.schema)
				if err != nil {
					return err
				}
				if err := fn(RowID{Page: pagestore.PageID(id), Slot: slot}, r); err != nil {
					return err
				}
			}
			id = next
		}
	}
	return nil
}
