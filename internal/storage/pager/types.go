// Package pager implements a single-writer, disk-resident B-tree index with
// variable-length entries stored in slotted pages.
//
// A database is a single file: a fixed-size header followed by a dense grid
// of fixed-size pages. Every page is either an INTERNAL node (separator keys
// plus per-key payloads plus child pointers) or a LEAF node (keys plus
// payloads only). There is no buffer pool, no write-ahead log, and no
// page-id reuse — every read and write goes straight to the file, and a
// page id, once allocated, is stable for the lifetime of the file.
package pager

// NodeType discriminates the two page variants. It occupies a single byte
// in the page header.
type NodeType uint8

const (
	// Internal pages carry separator keys, their payloads, and child
	// pointers. Unlike a classical B+tree, a key found on an INTERNAL page
	// answers a search directly — its value is stored right there.
	Internal NodeType = 0
	// Leaf pages carry only keys and payloads; they terminate every
	// subtree.
	Leaf NodeType = 1
)

func (t NodeType) String() string {
	switch t {
	case Internal:
		return "INTERNAL"
	case Leaf:
		return "LEAF"
	default:
		return "UNKNOWN"
	}
}

// PageID is a dense, non-negative integer identifying a page. Byte offset
// of a page is HeaderSize + PageID*PageSize.
type PageID = uint64

const (
	// MinPageSize is the smallest page size this format accepts.
	MinPageSize = 256
	// MaxPageSize is the largest page size this format accepts — every
	// offset and length stored in a slot or free-list entry must fit in a
	// uint16.
	MaxPageSize = 65535

	// PageHeaderSize is the size in bytes of the per-page header:
	// page_id(8) | node_type(1) | num_keys(2) | free_space_end(2) |
	// free_list_count(2) | total_free(2).
	PageHeaderSize = 17

	// SlotSize is the size in bytes of one slot-array entry:
	// offset(2) | key_length(2) | value_length(2).
	SlotSize = 6

	// PointerSize is the size in bytes of one child-pointer entry on an
	// INTERNAL page.
	PointerSize = 8

	// FreeSpaceRegionSize is the size in bytes of one free-list entry:
	// offset(2) | length(2).
	FreeSpaceRegionSize = 4

	// MagicNumber is the non-zero sentinel written into every header.
	MagicNumber uint16 = 1

	// FormatVersion is the on-disk format version this package writes and
	// expects to read.
	FormatVersion uint16 = 0

	// CompactionThreshold is the advisory hole-ratio above which a page is
	// considered worth compacting (holes / total_free > 0.3). Nothing in
	// this package invokes compaction automatically; see the compactor
	// package for an opt-in background sweep that uses this threshold.
	CompactionThreshold = 0.3
)
