package pager

import "encoding/binary"

// HeaderSize is the fixed size in bytes of the file header. It never
// changes for the lifetime of a database file.
const HeaderSize = 28

// Header is the fixed-size file prefix: magic number, format version, page
// size, root page id, and page count. It is rewritten whenever PageCount or
// RootPageID changes.
type Header struct {
	MagicNumber uint16
	Version     uint16
	PageSize    uint64
	RootPageID  PageID
	PageCount   uint64
}

// NewHeader builds a fresh header for a newly-initialized database file.
func NewHeader(pageSize uint64) *Header {
	return &Header{
		MagicNumber: MagicNumber,
		Version:     FormatVersion,
		PageSize:    pageSize,
		RootPageID:  0,
		PageCount:   0,
	}
}

// PagesEmpty reports whether no page has been allocated yet.
func (h *Header) PagesEmpty() bool {
	return h.PageCount == 0
}

// AddRootPage records a newly allocated root page id and accounts for it in
// PageCount.
func (h *Header) AddRootPage(id PageID) {
	h.RootPageID = id
	h.PageCount++
}

// Serialize encodes the header into a little-endian HeaderSize-byte buffer.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.MagicNumber)
	binary.LittleEndian.PutUint16(buf[2:4], h.Version)
	binary.LittleEndian.PutUint64(buf[4:12], h.PageSize)
	binary.LittleEndian.PutUint64(buf[12:20], h.RootPageID)
	binary.LittleEndian.PutUint64(buf[20:28], h.PageCount)
	return buf
}

// DeserializeHeader decodes a header from buf. It returns
// ErrInvalidMagicNumber if the magic number is zero (an uninitialized file)
// and InvalidBufferSizeError if buf is shorter than HeaderSize.
func DeserializeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, &InvalidBufferSizeError{Expected: HeaderSize, Got: len(buf)}
	}
	magic := binary.LittleEndian.Uint16(buf[0:2])
	if magic == 0 {
		return nil, ErrInvalidMagicNumber
	}
	return &Header{
		MagicNumber: magic,
		Version:     binary.LittleEndian.Uint16(buf[2:4]),
		PageSize:    binary.LittleEndian.Uint64(buf[4:12]),
		RootPageID:  binary.LittleEndian.Uint64(buf[12:20]),
		PageCount:   binary.LittleEndian.Uint64(buf[20:28]),
	}, nil
}
