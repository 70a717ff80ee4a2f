package heap

import (
	"encoding/binary"

	"goDB/internal/catalog"
	"goDB/internal/pagestore"
)

// headerSize is the fixed part of a table page: prev + next links
// (catalog.TableHeaderSize), matching the two-link-field header spec.md §3
// reserves room for when it computes per-page capacity.
const headerSize = catalog.TableHeaderSize

func readLinks(buf []byte) (prev, next uint32) {
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8])
}

func writeLinks(buf []byte, prev, next uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], prev)
	binary.LittleEndian.PutUint32(buf[4:8], next)
}

func bitmapOf(buf []byte, schema *catalog.TableSchema) []byte {
	return buf[headerSize : headerSize+schema.FreeBitmapSize]
}

func slotsOf(buf []byte, schema *catalog.TableSchema) []byte {
	return buf[headerSize+schema.FreeBitmapSize:]
}

func slotOffset(schema *catalog.TableSchema, slot int) int {
	return slot * schema.RecordSize
}

// isOccupied reports whether free-bitmap bit i is set: "slot i occupied"
// per spec.md §3.
func isOccupied(buf []byte, schema *catalog.TableSchema, slot int) bool {
	bm := bitmapOf(buf, schema)
	return bm[slot/8]&(1<<uint(slot%8)) != 0
}

func setOccupied(buf []byte, schema *catalog.TableSchema, slot int, occupied bool) {
	bm := bitmapOf(buf, schema)
	if occupied {
		bm[slot/8] |= 1 << uint(slot%8)
	} else {
		bm[slot/8] &^= 1 << uint(slot%8)
	}
}

// firstFreeSlot returns the index of the first unoccupied slot, or -1 if
// the page is full.
func firstFreeSlot(buf []byte, schema *catalog.TableSchema) int {
	for i := 0; i < schema.Capacity; i++ {
		if !isOccupied(buf, schema, i) {
			return i
		}
	}
	return -1
}

// isFull reports whether every slot up to capacity is occupied.
func isFull(buf []byte, schema *catalog.TableSchema) bool {
	return firstFreeSlot(buf, schema) == -1
}

func recordSlot(buf []byte, schema *catalog.TableSchema, slot int) []byte {
	s := slotsOf(buf, schema)
	off := slotOffset(schema, slot)
	return s[off : off+schema.RecordSize]
}

func newPageBuffer() []byte {
	return make([]byte, pagestore.PageSize)
}
