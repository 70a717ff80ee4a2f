package btree

import (
	"encoding/binary"

	"goDB/internal/catalog"
	"goDB/internal/dberr"
	"goDB/internal/pagestore"
	"goDB/internal/record"
)

// headerSize is the fixed node header: is_leaf(1) + pad(3) + size(4) +
// prev(4) + next(4) + parent(4), 20 bytes total (spec.md §4.5).
const headerSize = 20

// leafEntry is a (key, table pointer) pair stored in a leaf node.
type leafEntry struct {
	key  record.Record
	page uint32
	slot uint32
}

// internalEntry is a (max-key, child page) pair. Unlike a classical
// B+-tree, the key stored here is the MAX key reachable in the child
// subtree, not a separator (spec.md §4.5 "max-key propagation").
type internalEntry struct {
	key   record.Record
	child uint32
}

// node is the decoded in-memory form of one btree page. Exactly one of
// leaves/internals is populated, selected by isLeaf.
type node struct {
	id       pagestore.PageID
	isLeaf   bool
	prev     uint32 // leaf sibling chain only
	next     uint32 // leaf sibling chain only
	parent   uint32 // 0 = this is the root
	leaves   []leafEntry
	internal []internalEntry
}

func (n *node) size() int {
	if n.isLeaf {
		return len(n.leaves)
	}
	return len(n.internal)
}

func (n *node) maxKey() record.Record {
	if n.isLeaf {
		return n.leaves[len(n.leaves)-1].key
	}
	return n.internal[len(n.internal)-1].key
}

// keyCodec knows how to encode/decode the fixed-width key that prefixes
// every entry in this index's nodes.
type keyCodec struct {
	schema *catalog.TableSchema // Columns = the indexed columns only
}

func newKeyCodec(cols []catalog.Column) (*keyCodec, error) {
	s := &catalog.TableSchema{Columns: cols}
	if err := s.Prepare(); err != nil {
		return nil, err
	}
	return &keyCodec{schema: s}, nil
}

func (kc *keyCodec) size() int { return kc.schema.RecordSize }

func (kc *keyCodec) encode(r record.Record) ([]byte, error) {
	return record.Encode(record.New(r.Values), kc.schema)
}

func (kc *keyCodec) decode(buf []byte) (record.Record, error) {
	r, err := record.Decode(buf, kc.schema)
	if err != nil {
		return record.Record{}, err
	}
	r.CompareKeyCount = len(kc.schema.Columns)
	return r, nil
}

func (kc *keyCodec) leafEntrySize() int     { return kc.size() + 8 }
func (kc *keyCodec) internalEntrySize() int { return kc.size() + 4 }

// maxLeafEntries / maxInternalEntries are the per-node-type capacities
// this index's key width allows within one page, minus one entry of
// headroom: insert appends the overflow entry before splitting, and that
// transient (maxEntries+1)-sized node must still fit the page.
func (kc *keyCodec) maxLeafEntries() int {
	return (pagestore.PageSize-headerSize)/kc.leafEntrySize() - 1
}

func (kc *keyCodec) maxInternalEntries() int {
	return (pagestore.PageSize-headerSize)/kc.internalEntrySize() - 1
}

func readHeader(buf []byte) (isLeaf bool, size int, prev, next, parent uint32) {
	isLeaf = buf[0] != 0
	size = int(binary.LittleEndian.Uint32(buf[4:8]))
	prev = binary.LittleEndian.Uint32(buf[8:12])
	next = binary.LittleEndian.Uint32(buf[12:16])
	parent = binary.LittleEndian.Uint32(buf[16:20])
	return
}

func writeHeaderInto(buf []byte, isLeaf bool, size int, prev, next, parent uint32) {
	if isLeaf {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	buf[1], buf[2], buf[3] = 0, 0, 0
	binary.LittleEndian.PutUint32(buf[4:8], uint32(size))
	binary.LittleEndian.PutUint32(buf[8:12], prev)
	binary.LittleEndian.PutUint32(buf[12:16], next)
	binary.LittleEndian.PutUint32(buf[16:20], parent)
}

// decodeNode parses a raw page buffer into a node using kc for key width.
func (kc *keyCodec) decodeNode(id pagestore.PageID, buf []byte) (*node, error) {
	isLeaf, size, prev, next, parent := readHeader(buf)
	n := &node{id: id, isLeaf: isLeaf, prev: prev, next: next, parent: parent}

	if isLeaf {
		entrySize := kc.leafEntrySize()
		n.leaves = make([]leafEntry, size)
		for i := 0; i < size; i++ {
			off := headerSize + i*entrySize
			key, err := kc.decode(buf[off : off+kc.size()])
			if err != nil {
				return nil, err
			}
			page := binary.LittleEndian.Uint32(buf[off+kc.size() : off+kc.size()+4])
			slot := binary.LittleEndian.Uint32(buf[off+kc.size()+4 : off+kc.size()+8])
			n.leaves[i] = leafEntry{key: key, page: page, slot: slot}
		}
	} else {
		entrySize := kc.internalEntrySize()
		n.internal = make([]internalEntry, size)
		for i := 0; i < size; i++ {
			off := headerSize + i*entrySize
			key, err := kc.decode(buf[off : off+kc.size()])
			if err != nil {
				return nil, err
			}
			child := binary.LittleEndian.Uint32(buf[off+kc.size() : off+kc.size()+4])
			n.internal[i] = internalEntry{key: key, child: child}
		}
	}
	return n, nil
}

// encodeNode serializes n into a fresh PageSize buffer.
func (kc *keyCodec) encodeNode(n *node) ([]byte, error) {
	buf := make([]byte, pagestore.PageSize)
	writeHeaderInto(buf, n.isLeaf, n.size(), n.prev, n.next, n.parent)

	if n.isLeaf {
		entrySize := kc.leafEntrySize()
		if len(n.leaves) > kc.maxLeafEntries() {
			return nil, dberr.New(dberr.KindIO, "leaf node overflowed capacity (%d > %d)", len(n.leaves), kc.maxLeafEntries())
		}
		for i, e := range n.leaves {
			off := headerSize + i*entrySize
			kb, err := kc.encode(e.key)
			if err != nil {
				return nil, err
			}
			copy(buf[off:off+kc.size()], kb)
			binary.LittleEndian.PutUint32(buf[off+kc.size():off+kc.size()+4], e.page)
			binary.LittleEndian.PutUint32(buf[off+kc.size()+4:off+kc.size()+8], e.slot)
		}
	} else {
		entrySize := kc.internalEntrySize()
		if len(n.internal) > kc.maxInternalEntries() {
			return nil, dberr.New(dberr.KindIO, "internal node overflowed capacity (%d > %d)", len(n.internal), kc.maxInternalEntries())
		}
		for i, e := range n.internal {
			off := headerSize + i*entrySize
			kb, err := kc.encode(e.key)
			if err != nil {
				return nil, err
			}
			copy(buf[off:off+kc.size()], kb)
			binary.LittleEndian.PutUint32(buf[off+kc.size():off+kc.size()+4], e.child)
		}
	}
	return buf, nil
}
